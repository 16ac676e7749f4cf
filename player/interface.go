package player

import (
	"context"
	"io"
)

// Media 可播放的音频流
// 通过 io.Reader 读取解码后的 PCM (s16le 立体声)，暂停时为静音
type Media interface {
	io.Reader

	// Play 开始或恢复播放，阻塞到有音频输出或失败为止
	Play(ctx context.Context) error
	Pause()
	Paused() bool

	// 音量只作用于输出端，Read 返回的数据不受影响
	SetVolume(volume float64)
	Volume() float64

	// Available 是否有可播放的来源
	Available() bool

	// Err 最近一次失败或断流的原因，正常播放时为 nil
	Err() error
}
