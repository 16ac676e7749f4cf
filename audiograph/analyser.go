package audiograph

import (
	"errors"
	"math"
	"math/cmplx"
	"sync"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

const (
	DefaultFFTSize     = 256
	DefaultSmoothing   = 0.8
	DefaultMinDecibels = -100.0
	DefaultMaxDecibels = -30.0

	minFFTSize = 32
	maxFFTSize = 32768
)

var ErrFFTSize = errors.New("audiograph: fft size must be a power of two in [32, 32768]")

// Analyser 只读的分析节点，把最近 fftSize 个采样转换为 0-255 的频率幅度
type Analyser struct {
	fftSize   int
	smoothing float64
	minDB     float64
	maxDB     float64

	mu     sync.Mutex
	ring   []float64
	pos    int
	win    []float64
	buf    []float64
	smooth []float64
}

// NewAnalyser 按给定的变换长度创建分析节点
func NewAnalyser(fftSize int) (*Analyser, error) {
	if fftSize < minFFTSize || fftSize > maxFFTSize || fftSize&(fftSize-1) != 0 {
		return nil, ErrFFTSize
	}
	return &Analyser{
		fftSize:   fftSize,
		smoothing: DefaultSmoothing,
		minDB:     DefaultMinDecibels,
		maxDB:     DefaultMaxDecibels,
		ring:      make([]float64, fftSize),
		win:       window.Hann(fftSize),
		buf:       make([]float64, fftSize),
		smooth:    make([]float64, fftSize/2),
	}, nil
}

// FFTSize 变换长度
func (a *Analyser) FFTSize() int { return a.fftSize }

// FrequencyBinCount 频段数，为变换长度的一半
func (a *Analyser) FrequencyBinCount() int { return a.fftSize / 2 }

func (a *Analyser) accept(src *Source) error {
	src.addTap(a)
	return nil
}

// observe 把 s16le 立体声混成单声道写入环形缓冲
func (a *Analyser) observe(pcm []byte) {
	const frameSize = 4

	a.mu.Lock()
	defer a.mu.Unlock()

	for i := 0; i+frameSize <= len(pcm); i += frameSize {
		l := int16(uint16(pcm[i]) | uint16(pcm[i+1])<<8)
		r := int16(uint16(pcm[i+2]) | uint16(pcm[i+3])<<8)
		a.ring[a.pos] = (float64(l) + float64(r)) / 2 / 32768
		a.pos = (a.pos + 1) % a.fftSize
	}
}

// ByteFrequencyData 向 dst 写入最多 FrequencyBinCount 个 [0, 255] 的幅度，返回写入个数
func (a *Analyser) ByteFrequencyData(dst []byte) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := len(dst)
	if bins := a.fftSize / 2; n > bins {
		n = bins
	}

	for i := 0; i < a.fftSize; i++ {
		a.buf[i] = a.ring[(a.pos+i)%a.fftSize] * a.win[i]
	}
	spectrum := fft.FFTReal(a.buf)

	scale := 255 / (a.maxDB - a.minDB)
	for k := 0; k < a.fftSize/2; k++ {
		mag := cmplx.Abs(spectrum[k]) / float64(a.fftSize)
		a.smooth[k] = a.smoothing*a.smooth[k] + (1-a.smoothing)*mag
		if k >= n {
			continue
		}

		if a.smooth[k] <= 0 {
			dst[k] = 0
			continue
		}
		db := 20 * math.Log10(a.smooth[k])
		v := scale * (db - a.minDB)
		dst[k] = byte(math.Max(0, math.Min(255, v)))
	}
	return n
}
