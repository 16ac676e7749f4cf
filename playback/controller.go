// Package playback 用一个播放/暂停开关协调音频流、处理图和频谱渲染
package playback

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"bourgade-tui/audiograph"
	"bourgade-tui/config"
	"bourgade-tui/player"
	"bourgade-tui/spectrum"
)

// ErrBusy 连接过程中再次切换时记录
var ErrBusy = errors.New("playback: still connecting")

// State 播放状态
type State int

const (
	Idle State = iota
	Loading
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

// LoadedMsg 一次播放尝试的结果
type LoadedMsg struct {
	Err error
	seq int
}

// Controller 持有播放状态，所有方法都在 UI 循环中调用
type Controller struct {
	media    player.Media
	graphs   *audiograph.Manager
	renderer *spectrum.Renderer

	playTimeout time.Duration

	state State
	seq   int
	err   error
	graph *audiograph.Graph

	volume     float64
	lastVolume float64
	muted      bool
}

// New 创建 Idle 状态的控制器，音量取媒体当前音量
func New(media player.Media, graphs *audiograph.Manager, renderer *spectrum.Renderer, playTimeout time.Duration) *Controller {
	if playTimeout <= 0 {
		playTimeout = 15 * time.Second
	}
	return &Controller{
		media:       media,
		graphs:      graphs,
		renderer:    renderer,
		playTimeout: playTimeout,
		state:       Idle,
		volume:      media.Volume(),
	}
}

func (c *Controller) State() State { return c.state }

// Err 最近一次播放错误，下一次播放时清除
func (c *Controller) Err() error { return c.err }

func (c *Controller) Renderer() *spectrum.Renderer { return c.renderer }

// Toggle 在播放与暂停之间切换。开始播放是异步的，返回的命令产生 LoadedMsg 交给 Update
func (c *Controller) Toggle() tea.Cmd {
	switch c.state {
	case Loading:
		c.err = ErrBusy
		log.Debug().Msg("toggle ignored while connecting")
		return nil

	case Playing:
		c.renderer.Stop()
		c.media.Pause()
		c.state = Paused
		log.Info().Msg("playback paused")
		return nil
	}

	prev := c.state
	c.state = Loading

	g, err := c.graphs.EnsureGraph(c.media)
	if err != nil {
		c.fail(err)
		return nil
	}
	if g == nil {
		// 尚未就绪，下一次切换时重试
		c.state = prev
		return nil
	}

	c.graph = g
	c.err = nil
	c.seq++

	seq, media, timeout := c.seq, c.media, c.playTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if g.Context.State() == audiograph.StateSuspended {
			if err := g.Context.Resume(ctx); err != nil {
				return LoadedMsg{Err: fmt.Errorf("resume audio: %w", err), seq: seq}
			}
		}
		if err := media.Play(ctx); err != nil {
			return LoadedMsg{Err: err, seq: seq}
		}
		return LoadedMsg{seq: seq}
	}
}

// Update 处理播放结果和绘制 tick，播放中断流时回到 Idle
func (c *Controller) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case LoadedMsg:
		if msg.seq != c.seq || c.state != Loading {
			return nil
		}
		if msg.Err != nil {
			c.media.Pause()
			c.fail(msg.Err)
			return nil
		}

		c.state = Playing
		log.Info().Msg("playback started")
		if err := c.renderer.Attach(c.graph); err != nil {
			log.Warn().Err(err).Msg("spectrum unavailable")
			return nil
		}
		return c.renderer.Start()

	case spectrum.TickMsg:
		if c.state == Playing {
			if err := c.media.Err(); err != nil {
				c.renderer.Stop()
				c.media.Pause()
				c.fail(err)
				return nil
			}
		}
		return c.renderer.Update(msg)
	}
	return nil
}

func (c *Controller) fail(err error) {
	c.state = Idle
	c.err = err
	log.Error().Err(err).Msg("playback failed to start")
}

// SetVolume 把 v 限制在 [0, 1]，任何状态下都生效，同时取消静音
func (c *Controller) SetVolume(v float64) {
	c.volume = config.ClampVolume(v)
	c.muted = false
	c.media.SetVolume(c.volume)
}

// AdjustVolume 按 delta 调整音量
func (c *Controller) AdjustVolume(delta float64) {
	c.SetVolume(c.volume + delta)
}

// ToggleMute 静音，或恢复静音前的音量
func (c *Controller) ToggleMute() {
	if c.muted {
		c.SetVolume(c.lastVolume)
		return
	}
	c.lastVolume = c.volume
	c.muted = true
	c.media.SetVolume(0)
}

func (c *Controller) Volume() float64 { return c.volume }

func (c *Controller) Muted() bool { return c.muted }
