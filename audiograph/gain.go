package audiograph

import "io"

// Volumer 提供输出音量 (0.0-1.0)
type Volumer interface {
	Volume() float64
}

// GainReader 输出端的音量节点，位于分析节点之后，只影响听到的声音
// 上游按整采样 (s16le) 对齐输出
type GainReader struct {
	r     io.Reader
	level func() float64
}

// NewGainReader 按 level() 缩放 r 的采样，level 为 nil 时原样输出
func NewGainReader(r io.Reader, level func() float64) *GainReader {
	return &GainReader{r: r, level: level}
}

func (g *GainReader) Read(p []byte) (int, error) {
	n, err := g.r.Read(p)
	if n > 0 && g.level != nil {
		applyGain(p[:n&^1], g.level())
	}
	return n, err
}

// levelOf 取 source 背后媒体元素的音量
func levelOf(r io.Reader) func() float64 {
	src, ok := r.(*Source)
	if !ok {
		return nil
	}
	if v, ok := src.Element().(Volumer); ok {
		return v.Volume
	}
	return nil
}

func applyGain(pcm []byte, volume float64) {
	if volume == 1 {
		return
	}
	for i := 0; i+1 < len(pcm); i += 2 {
		sample := int16(uint16(pcm[i]) | uint16(pcm[i+1])<<8)
		sample = int16(float64(sample) * volume)
		pcm[i] = byte(sample)
		pcm[i+1] = byte(uint16(sample) >> 8)
	}
}
