package audiograph

import (
	"io"
	"sync"
)

type tap interface {
	observe(pcm []byte)
}

// Source 从媒体元素拉取 PCM。读取 Source 的一方 (destination) 驱动元素，
// 分析节点在每次读取时看到同一份原始数据
type Source struct {
	el MediaElement

	mu     sync.Mutex
	taps   []tap
	output bool
}

// NewSource 包装 el，由 CreateMediaElementSource 调用
func NewSource(el MediaElement) *Source {
	return &Source{el: el}
}

// Element 返回 source 背后的媒体元素
func (s *Source) Element() MediaElement {
	return s.el
}

// Connect 把 n 接到 s 下游，重复连接同一节点无效果
func (s *Source) Connect(n Node) error {
	return n.accept(s)
}

// Taps 已接入的分析节点数
func (s *Source) Taps() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.taps)
}

func (s *Source) Read(p []byte) (int, error) {
	n, err := s.el.Read(p)
	if n > 0 {
		s.mu.Lock()
		taps := s.taps
		s.mu.Unlock()

		for _, t := range taps {
			t.observe(p[:n])
		}
	}
	return n, err
}

func (s *Source) addTap(t tap) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.taps {
		if existing == t {
			return
		}
	}
	// 写时复制，Read 遍历时无需持锁
	taps := make([]tap, len(s.taps), len(s.taps)+1)
	copy(taps, s.taps)
	s.taps = append(taps, t)
}

// claimOutput 标记 source 已接到输出，已标记过则返回 false
func (s *Source) claimOutput() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.output {
		return false
	}
	s.output = true
	return true
}

// DestinationFunc 把输出端适配为 Node，首次连接时以 reader 形式收到 source
type DestinationFunc func(r io.Reader) error

func (f DestinationFunc) accept(src *Source) error {
	if !src.claimOutput() {
		return nil
	}
	if err := f(src); err != nil {
		src.mu.Lock()
		src.output = false
		src.mu.Unlock()
		return err
	}
	return nil
}
