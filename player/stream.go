package player

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hajimehoshi/go-mp3"
	"github.com/rs/zerolog/log"
)

const (
	NetworkBufferSize = 65536
	StallTimeout      = 5 * time.Second
	MonitorInterval   = 2 * time.Second
	MaxRetries        = 3
	RetryDelay        = 2 * time.Second
	ReconnectTimeout  = 15 * time.Second

	userAgent = "bourgade-tui/1.0"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported stream format")
	ErrSampleRate        = errors.New("stream sample rate does not match the output device")
	ErrInterrupted       = errors.New("playback request superseded")
)

// streamConn 一条 HTTP 连接及其解码器
type streamConn struct {
	body   io.Closer
	dec    io.Reader
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
	failed atomic.Bool
}

func (c *streamConn) close() {
	c.once.Do(func() {
		c.cancel()
		c.body.Close()
		close(c.done)
	})
}

// StreamMedia 播放 MP3 网络电台流
// 暂停时断开连接，再次播放时从直播最新位置重连
type StreamMedia struct {
	url        string
	sampleRate int
	httpClient *http.Client

	mu           sync.Mutex
	paused       bool
	session      int
	conn         *streamConn
	volume       float64
	lastErr      error
	lastDataTime time.Time

	// 仅由读取协程使用
	residue     []byte
	residueConn *streamConn
}

// NewStreamMedia 创建一个暂停状态的流，按 sampleRate 解码
func NewStreamMedia(url string, sampleRate int, initialVolume float64) *StreamMedia {
	if initialVolume < 0 {
		initialVolume = 0
	} else if initialVolume > 1 {
		initialVolume = 1
	}

	return &StreamMedia{
		url:        url,
		sampleRate: sampleRate,
		paused:     true,
		volume:     initialVolume,
		residue:    make([]byte, 0, 4),
		httpClient: &http.Client{
			Timeout: 0, // 流媒体不设整体超时
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 15 * time.Second,
				IdleConnTimeout:       90 * time.Second,
				DisableCompression:    true,
			},
		},
	}
}

// URL 返回流地址
func (m *StreamMedia) URL() string { return m.url }

func (m *StreamMedia) Available() bool { return m.url != "" }

// Play 连接并开始解码。ctx 只限制连接阶段，流本身持续到 Pause
func (m *StreamMedia) Play(ctx context.Context) error {
	m.mu.Lock()
	if m.conn != nil && !m.paused {
		m.mu.Unlock()
		return nil
	}
	m.session++
	session := m.session
	m.mu.Unlock()

	log.Info().Str("url", m.URL()).Msg("connecting to stream")
	conn, err := m.dial(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		m.lastErr = err
		return err
	}
	if m.session != session {
		conn.close()
		return ErrInterrupted
	}

	if m.conn != nil {
		m.conn.close()
	}
	m.conn = conn
	m.paused = false
	m.lastErr = nil
	m.lastDataTime = time.Now()

	go m.monitor(session, conn)
	return nil
}

// Pause 断开连接，之后 Read 输出静音直到下一次 Play
func (m *StreamMedia) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.paused = true
	m.session++
	if m.conn != nil {
		m.conn.close()
		m.conn = nil
	}
}

func (m *StreamMedia) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

// Err 返回最近一次播放失败或断流的错误，重连过程中为 nil
func (m *StreamMedia) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *StreamMedia) SetVolume(volume float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if volume < 0 {
		volume = 0
	} else if volume > 1 {
		volume = 1
	}
	m.volume = volume
}

func (m *StreamMedia) Volume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

func (m *StreamMedia) dial(ctx context.Context) (*streamConn, error) {
	streamCtx, cancel := context.WithCancel(context.Background())
	stop := context.AfterFunc(ctx, cancel)

	fail := func(body io.Closer, err error) (*streamConn, error) {
		stop()
		cancel()
		if body != nil {
			body.Close()
		}
		return nil, err
	}

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, m.url, nil)
	if err != nil {
		return fail(nil, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fail(nil, fmt.Errorf("failed to connect to stream: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return fail(resp.Body, fmt.Errorf("stream returned status %d", resp.StatusCode))
	}

	br := bufio.NewReaderSize(resp.Body, NetworkBufferSize)
	if err := sniff(br, resp.Header.Get("Content-Type")); err != nil {
		return fail(resp.Body, err)
	}

	dec, err := mp3.NewDecoder(br)
	if err != nil {
		return fail(resp.Body, fmt.Errorf("failed to decode stream: %w", err))
	}
	if dec.SampleRate() != m.sampleRate {
		return fail(resp.Body, fmt.Errorf("%w: stream %d Hz, device %d Hz", ErrSampleRate, dec.SampleRate(), m.sampleRate))
	}

	if !stop() {
		// 连接期间 ctx 已结束
		return fail(resp.Body, fmt.Errorf("failed to connect to stream: %w", ctx.Err()))
	}

	return &streamConn{
		body:   resp.Body,
		dec:    dec,
		cancel: cancel,
		done:   make(chan struct{}),
	}, nil
}

// sniff 提前拒绝 MP3 解码器无法处理的流
func sniff(br *bufio.Reader, contentType string) error {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "aac"), strings.Contains(ct, "ogg"), strings.Contains(ct, "opus"):
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, contentType)
	}

	head, err := br.Peek(3)
	if err != nil {
		return fmt.Errorf("failed to read stream: %w", err)
	}
	if string(head) == "ID3" {
		return nil
	}
	if head[0] == 0xFF && head[1]&0xE0 == 0xE0 {
		// layer 位为 00 表示 ADTS (AAC)，不是 MPEG 音频
		if (head[1]>>1)&0x03 == 0 {
			return fmt.Errorf("%w: AAC (ADTS)", ErrUnsupportedFormat)
		}
	}
	return nil
}

// monitor 连接不再有数据时触发重连
func (m *StreamMedia) monitor(session int, conn *streamConn) {
	ticker := time.NewTicker(MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-conn.done:
			return
		case <-ticker.C:
			m.mu.Lock()
			if m.session != session {
				m.mu.Unlock()
				return
			}
			stalled := conn.failed.Load() || time.Since(m.lastDataTime) > StallTimeout
			m.mu.Unlock()

			if stalled {
				m.reconnect(session)
				return
			}
		}
	}
}

// reconnect 在同一会话内重新建立连接
// 超过 MaxRetries 后放弃，输出静音并设置 Err
func (m *StreamMedia) reconnect(session int) {
	var lastErr error
	for attempt := 1; attempt <= MaxRetries; attempt++ {
		log.Warn().Int("attempt", attempt).Msg("stream stalled, reconnecting")

		ctx, cancel := context.WithTimeout(context.Background(), ReconnectTimeout)
		conn, err := m.dial(ctx)
		cancel()

		m.mu.Lock()
		if m.session != session {
			m.mu.Unlock()
			if conn != nil {
				conn.close()
			}
			return
		}
		if err == nil {
			old := m.conn
			m.conn = conn
			m.lastErr = nil
			m.lastDataTime = time.Now()
			m.mu.Unlock()

			if old != nil {
				old.close()
			}
			log.Info().Int("attempt", attempt).Msg("stream reconnected")
			go m.monitor(session, conn)
			return
		}
		m.mu.Unlock()

		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt).Msg("reconnect failed")
		time.Sleep(RetryDelay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == session && m.conn != nil {
		m.conn.close()
		m.conn = nil
		m.lastErr = fmt.Errorf("stream lost: %w", lastErr)
		log.Error().Err(lastErr).Msg("stream lost")
	}
}

// Read 输出未经音量处理的 s16le 立体声 PCM，没有连接时输出静音
// 音量由图的输出端处理。不返回错误，保证输出设备持续运行
func (m *StreamMedia) Read(p []byte) (int, error) {
	// PCM 帧大小: 每个采样 2 字节 * 2 声道 = 4 字节
	const frameSize = 4

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()

	if conn == nil || conn.failed.Load() {
		return silence(p), nil
	}

	if conn != m.residueConn {
		m.residue = m.residue[:0]
		m.residueConn = conn
	}

	offset := 0
	if len(m.residue) > 0 {
		offset = copy(p, m.residue)
		m.residue = m.residue[:0]
	}

	n, err := conn.dec.Read(p[offset:])
	if n > 0 {
		m.mu.Lock()
		m.lastDataTime = time.Now()
		m.mu.Unlock()
	}
	n += offset

	if err != nil {
		// 由 monitor 发现并重连
		conn.failed.Store(true)
		log.Debug().Err(err).Msg("stream read ended")
	}

	// 保证帧对齐
	alignedLen := (n / frameSize) * frameSize
	if alignedLen < n {
		m.residue = append(m.residue, p[alignedLen:n]...)
		n = alignedLen
	}

	if n == 0 && err != nil {
		return silence(p), nil
	}
	return n, nil
}

func silence(p []byte) int {
	n := len(p) &^ 3
	clear(p[:n])
	return n
}
