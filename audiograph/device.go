package audiograph

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/ebitengine/oto/v3"
	"github.com/rs/zerolog/log"
)

// DeviceContext 以系统音频设备为输出的处理上下文
// 创建后处于 suspended 状态，设备就绪后变为 running
type DeviceContext struct {
	sampleRate int
	otoContext *oto.Context
	ready      chan struct{}

	mu        sync.Mutex
	sources   map[MediaElement]*Source
	input     io.Reader
	otoPlayer *oto.Player
	closed    bool
}

// NewDeviceContext 打开音频设备，每个进程只能有一个
func NewDeviceContext(sampleRate int) (*DeviceContext, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	}

	otoCtx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}

	return &DeviceContext{
		sampleRate: sampleRate,
		otoContext: otoCtx,
		ready:      ready,
		sources:    make(map[MediaElement]*Source),
	}, nil
}

func (c *DeviceContext) isReady() bool {
	select {
	case <-c.ready:
		return true
	default:
		return false
	}
}

func (c *DeviceContext) State() ContextState {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.closed:
		return StateClosed
	case c.isReady():
		return StateRunning
	default:
		return StateSuspended
	}
}

func (c *DeviceContext) Resume(ctx context.Context) error {
	select {
	case <-c.ready:
	case <-ctx.Done():
		return fmt.Errorf("waiting for audio device: %w", ctx.Err())
	}

	if err := c.otoContext.Err(); err != nil {
		return fmt.Errorf("audio device: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrContextClosed
	}
	c.startOutputLocked()
	return nil
}

func (c *DeviceContext) SampleRate() int { return c.sampleRate }

func (c *DeviceContext) CreateMediaElementSource(el MediaElement) (*Source, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrContextClosed
	}
	if _, exists := c.sources[el]; exists {
		return nil, ErrSourceExists
	}
	src := NewSource(el)
	c.sources[el] = src
	return src, nil
}

func (c *DeviceContext) Destination() Node {
	return DestinationFunc(func(r io.Reader) error {
		c.mu.Lock()
		defer c.mu.Unlock()

		if c.closed {
			return ErrContextClosed
		}
		c.input = NewGainReader(r, levelOf(r))
		if c.isReady() {
			c.startOutputLocked()
		}
		return nil
	})
}

// startOutputLocked 设备就绪且已有输入时创建播放器（只创建一次）
func (c *DeviceContext) startOutputLocked() {
	if c.otoPlayer != nil || c.input == nil {
		return
	}
	c.otoPlayer = c.otoContext.NewPlayer(c.input)
	c.otoPlayer.Play()
	log.Debug().Int("sample_rate", c.sampleRate).Msg("audio output started")
}

func (c *DeviceContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var err error
	if c.otoPlayer != nil {
		err = c.otoPlayer.Close()
		c.otoPlayer = nil
	}
	if c.isReady() {
		if suspendErr := c.otoContext.Suspend(); err == nil {
			err = suspendErr
		}
	}
	return err
}
