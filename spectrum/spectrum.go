// Package spectrum 把分析节点的频率数据画成柱状图，并用可取消的 tick 驱动绘制循环
package spectrum

import (
	"fmt"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/rs/zerolog/log"

	"bourgade-tui/audiograph"
	"bourgade-tui/canvas"
	"bourgade-tui/model"
)

const (
	// FFTSize 对应 128 个频段
	FFTSize = audiograph.DefaultFFTSize

	barWidthScale = 2.5
	barGap        = 1.0
	maxMagnitude  = 255.0
)

var (
	gradientLow  = colorful.MustParseHex(model.ColorGreen)
	gradientMid  = colorful.MustParseHex(model.ColorYellow)
	gradientHigh = colorful.MustParseHex(model.ColorRed)
)

var lastID int64

func nextID() int {
	return int(atomic.AddInt64(&lastID, 1))
}

// TickMsg 绘制循环的一帧
type TickMsg struct {
	Time time.Time
	ID   int
	tag  int
}

// loopHandle 标识当前循环，tag 不同的 tick 已过期
type loopHandle struct {
	tag int
}

// Renderer 持有处理图上的分析节点和唯一的绘制循环
type Renderer struct {
	id       int
	tag      int
	handle   *loopHandle
	interval time.Duration

	surface  canvas.Surface
	gradient *canvas.LinearGradient

	graph    *audiograph.Graph
	analyser *audiograph.Analyser
	frame    []byte
	frames   uint64
}

// New 创建按 fps 帧率绘制到 surface 的渲染器
func New(surface canvas.Surface, fps int) *Renderer {
	if fps <= 0 {
		fps = 60
	}
	return &Renderer{
		id:       nextID(),
		interval: time.Second / time.Duration(fps),
		surface:  surface,
	}
}

// ID 本渲染器 tick 消息的标识
func (r *Renderer) ID() int { return r.id }

// Attach 在 g 的 source 上挂一个分析节点。同一个图重复调用无效果，g 为 nil 时不接入
func (r *Renderer) Attach(g *audiograph.Graph) error {
	if g == nil || g == r.graph {
		return nil
	}

	a, err := audiograph.NewAnalyser(FFTSize)
	if err != nil {
		return err
	}
	if err := g.Source.Connect(a); err != nil {
		return fmt.Errorf("attach analyser: %w", err)
	}

	r.graph = g
	r.analyser = a
	r.frame = make([]byte, a.FrequencyBinCount())

	log.Debug().
		Int("fft_size", a.FFTSize()).
		Int("bins", a.FrequencyBinCount()).
		Msg("spectrum analyser attached")
	return nil
}

// Ready 是否已接入分析节点
func (r *Renderer) Ready() bool { return r.analyser != nil }

// Scheduled 绘制循环是否在运行
func (r *Renderer) Scheduled() bool { return r.handle != nil }

// Frames 已绘制的帧数
func (r *Renderer) Frames() uint64 { return r.frames }

// Start 取代正在运行的循环，绘制第一帧并安排下一帧。没有分析节点时什么也不做
func (r *Renderer) Start() tea.Cmd {
	if r.analyser == nil {
		return nil
	}
	r.tag++
	r.handle = &loopHandle{tag: r.tag}
	r.draw()
	return r.schedule()
}

// Stop 取消待执行的 tick 并清空画布
func (r *Renderer) Stop() {
	r.tag++
	r.handle = nil
	r.surface.Clear()
}

// Update 处理本渲染器的 TickMsg
func (r *Renderer) Update(msg tea.Msg) tea.Cmd {
	tick, ok := msg.(TickMsg)
	if !ok || tick.ID != r.id {
		return nil
	}
	if r.handle == nil || tick.tag != r.handle.tag {
		return nil
	}
	r.draw()
	return r.schedule()
}

func (r *Renderer) schedule() tea.Cmd {
	id, tag := r.id, r.handle.tag
	return tea.Tick(r.interval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t, ID: id, tag: tag}
	})
}

// draw 绘制一帧: 取数据、清屏、画柱
func (r *Renderer) draw() {
	n := 0
	if r.analyser != nil {
		n = r.analyser.ByteFrequencyData(r.frame)
	}

	r.surface.Clear()
	r.frames++

	w, h := r.surface.Width(), r.surface.Height()
	if n == 0 || w <= 0 || h <= 0 {
		return
	}

	grad := r.gradientFor(h)
	barWidth := (w / float64(n)) * barWidthScale
	x := 0.0
	for i := 0; i < n; i++ {
		if x >= w {
			break
		}
		barHeight := float64(r.frame[i]) / maxMagnitude * h
		r.surface.FillRectGradient(x, h-barHeight, barWidth, barHeight, grad)
		x += barWidth + barGap
	}
}

// gradientFor 高度为 h 的画布上自下而上的绿/黄/红渐变，同一帧的柱子共用
func (r *Renderer) gradientFor(h float64) *canvas.LinearGradient {
	if r.gradient != nil && r.gradient.Y0 == h {
		return r.gradient
	}
	g := canvas.NewLinearGradient(0, h, 0, 0)
	g.AddColorStop(0, gradientLow)
	g.AddColorStop(0.5, gradientMid)
	g.AddColorStop(1, gradientHigh)
	r.gradient = g
	return g
}
