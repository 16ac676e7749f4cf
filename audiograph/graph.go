// Package audiograph 音频处理图: source -> destination，分析节点挂在 source 上
package audiograph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog/log"
)

var (
	ErrSourceExists  = errors.New("audiograph: media element already has a source node")
	ErrContextClosed = errors.New("audiograph: context is closed")
)

// ContextState 处理上下文的生命周期状态
type ContextState int

const (
	StateSuspended ContextState = iota
	StateRunning
	StateClosed
)

func (s ContextState) String() string {
	switch s {
	case StateSuspended:
		return "suspended"
	case StateRunning:
		return "running"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// MediaElement 可接入处理图的媒体元素，输出 s16le 立体声 PCM
type MediaElement interface {
	io.Reader
	// Available 元素是否已就绪、可以接入
	Available() bool
}

// Node 可连接到 Source 下游的节点
type Node interface {
	accept(src *Source) error
}

// Context 承载节点并持有音频输出
type Context interface {
	State() ContextState
	// Resume 阻塞到上下文运行或 ctx 结束
	Resume(ctx context.Context) error
	SampleRate() int
	// CreateMediaElementSource 为 el 创建唯一的 source 节点
	CreateMediaElementSource(el MediaElement) (*Source, error)
	Destination() Node
	Close() error
}

// ContextFactory 首次使用时创建处理上下文
type ContextFactory func() (Context, error)

// Graph 一个媒体元素对应的 (context, source)
type Graph struct {
	Context Context
	Source  *Source
}

// Manager 每个媒体元素最多构建一次处理图，并在元素生命周期内保留
type Manager struct {
	newContext ContextFactory

	mu     sync.Mutex
	graphs map[MediaElement]*Graph
}

// NewManager 创建使用 f 构建上下文的 Manager
func NewManager(f ContextFactory) *Manager {
	return &Manager{
		newContext: f,
		graphs:     make(map[MediaElement]*Graph),
	}
}

// EnsureGraph 返回 el 的处理图，首次调用时构建
// el 为 nil 或未就绪时返回 (nil, nil)，调用方在下一次操作时重试
func (m *Manager) EnsureGraph(el MediaElement) (*Graph, error) {
	if el == nil || !el.Available() {
		return nil, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if g, ok := m.graphs[el]; ok {
		return g, nil
	}

	ctx, err := m.newContext()
	if err != nil {
		return nil, fmt.Errorf("create context: %w", err)
	}

	src, err := ctx.CreateMediaElementSource(el)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("create source: %w", err), ctx.Close())
	}

	// 先直连输出，分析节点接入前也能出声
	if err := src.Connect(ctx.Destination()); err != nil {
		return nil, errors.Join(fmt.Errorf("connect destination: %w", err), ctx.Close())
	}

	g := &Graph{Context: ctx, Source: src}
	m.graphs[el] = g

	log.Debug().
		Int("sample_rate", ctx.SampleRate()).
		Str("state", ctx.State().String()).
		Msg("audio graph built")

	return g, nil
}

// Graph 返回已构建的处理图，没有则为 nil
func (m *Manager) Graph(el MediaElement) *Graph {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.graphs[el]
}

// Close 关闭所有上下文，仅在退出时调用
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for el, g := range m.graphs {
		if err := g.Context.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(m.graphs, el)
	}
	return errors.Join(errs...)
}
