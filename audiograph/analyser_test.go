package audiograph

import (
	"math"
	"testing"
)

func sinePCM(freq, amp float64, sampleRate, frames int) []byte {
	pcm := make([]byte, frames*4)
	for i := 0; i < frames; i++ {
		v := int16(amp * 32767 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
		for ch := 0; ch < 2; ch++ {
			pcm[i*4+ch*2] = byte(v)
			pcm[i*4+ch*2+1] = byte(uint16(v) >> 8)
		}
	}
	return pcm
}

func TestNewAnalyserRejectsBadSizes(t *testing.T) {
	for _, n := range []int{0, 16, 100, 65536} {
		if _, err := NewAnalyser(n); err == nil {
			t.Errorf("NewAnalyser(%d) should fail", n)
		}
	}
	a, err := NewAnalyser(DefaultFFTSize)
	if err != nil {
		t.Fatal(err)
	}
	if a.FrequencyBinCount() != 128 {
		t.Errorf("FrequencyBinCount = %d, want 128", a.FrequencyBinCount())
	}
}

func TestAnalyserSilence(t *testing.T) {
	a, _ := NewAnalyser(DefaultFFTSize)
	a.observe(make([]byte, 4096))

	data := make([]byte, a.FrequencyBinCount())
	if n := a.ByteFrequencyData(data); n != 128 {
		t.Fatalf("ByteFrequencyData wrote %d bins, want 128", n)
	}
	for i, v := range data {
		if v != 0 {
			t.Fatalf("bin %d = %d on silence, want 0", i, v)
		}
	}
}

func TestAnalyserFindsTone(t *testing.T) {
	const (
		sampleRate = 44100
		bin        = 16
	)
	a, _ := NewAnalyser(DefaultFFTSize)
	freq := float64(bin) * sampleRate / DefaultFFTSize

	data := make([]byte, a.FrequencyBinCount())
	for iter := 0; iter < 10; iter++ {
		a.observe(sinePCM(freq, 0.045, sampleRate, DefaultFFTSize))
		a.ByteFrequencyData(data)
	}

	peak := 0
	for i := range data {
		if data[i] > data[peak] {
			peak = i
		}
	}
	if peak != bin {
		t.Errorf("peak bin = %d, want %d", peak, bin)
	}
	if data[bin] < 200 {
		t.Errorf("peak magnitude = %d, want >= 200", data[bin])
	}
	if data[60] > 50 {
		t.Errorf("far bin magnitude = %d, want near 0", data[60])
	}
}

func TestAnalyserShortDestination(t *testing.T) {
	a, _ := NewAnalyser(DefaultFFTSize)
	a.observe(sinePCM(1000, 0.5, 44100, 512))

	data := make([]byte, 10)
	if n := a.ByteFrequencyData(data); n != 10 {
		t.Errorf("ByteFrequencyData wrote %d, want 10", n)
	}
	if n := a.ByteFrequencyData(nil); n != 0 {
		t.Errorf("ByteFrequencyData(nil) wrote %d, want 0", n)
	}
}
