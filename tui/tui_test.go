package tui

import (
	"context"
	"image"
	"image/color"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lucasb-eyer/go-colorful"

	"bourgade-tui/audiograph"
	"bourgade-tui/canvas"
	"bourgade-tui/facts"
	"bourgade-tui/playback"
	"bourgade-tui/spectrum"
)

type stubMedia struct {
	volume float64
}

func (m *stubMedia) Read(p []byte) (int, error)     { clear(p); return len(p), nil }
func (m *stubMedia) Play(ctx context.Context) error { return nil }
func (m *stubMedia) Pause()                         {}
func (m *stubMedia) Paused() bool                   { return true }
func (m *stubMedia) SetVolume(v float64)            { m.volume = v }
func (m *stubMedia) Volume() float64                { return m.volume }
func (m *stubMedia) Available() bool                { return false }
func (m *stubMedia) Err() error                     { return nil }

func newTestModel() (Model, *stubMedia) {
	media := &stubMedia{volume: 0.5}
	graphs := audiograph.NewManager(func() (audiograph.Context, error) {
		panic("no context expected")
	})
	surface := canvas.New(canvas.Width, canvas.Height)
	ctrl := playback.New(media, graphs, spectrum.New(surface, 30), time.Second)
	return NewModel(ctrl, surface, nil, "http://example.test/live.mp3"), media
}

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestSampleBlock(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	bg := colorful.Color{R: 0.1, G: 0.1, B: 0.1}

	if got := sampleBlock(img, img.Bounds(), bg); got != bg {
		t.Errorf("transparent block = %v, want background", got)
	}

	for x := 0; x < 4; x++ {
		img.SetRGBA(x, 0, color.RGBA{G: 255, A: 255})
		img.SetRGBA(x, 1, color.RGBA{G: 255, A: 255})
	}
	got := sampleBlock(img, img.Bounds(), bg)
	if got.R != 0 || got.G != 1 || got.B != 0 {
		t.Errorf("opaque green block = %v", got)
	}

	half := image.NewRGBA(image.Rect(0, 0, 2, 1))
	half.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	got = sampleBlock(half, half.Bounds(), colorful.Color{})
	if d := got.R - 0.5; d > 0.01 || d < -0.01 {
		t.Errorf("half-covered red = %v, want R=0.5", got)
	}
}

func TestRasterizeDimensions(t *testing.T) {
	c := canvas.New(canvas.Width, canvas.Height)
	out := rasterize(c.Image(), 24, 3, backdrop)

	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("rows = %d, want 3", len(lines))
	}
	for i, l := range lines {
		if n := strings.Count(l, "▀"); n != 24 {
			t.Errorf("row %d has %d cells, want 24", i, n)
		}
	}

	if rasterize(c.Image(), 0, 3, backdrop) != "" {
		t.Error("zero columns should render nothing")
	}
}

func TestVisRows(t *testing.T) {
	if got := visRows(96); got != 12 {
		t.Errorf("visRows(96) = %d, want 12", got)
	}
	if got := visRows(4); got != 1 {
		t.Errorf("visRows(4) = %d, want 1", got)
	}
}

func TestViewPlaceholderAndFacts(t *testing.T) {
	m, _ := newTestModel()

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m = updated.(Model)

	view := m.View()
	if !strings.Contains(view, "En attente du direct") {
		t.Error("idle view should show the placeholder")
	}
	if !strings.Contains(view, "Chargement") {
		t.Error("facts should show as loading before they arrive")
	}

	updated, _ = m.Update(factsLoadedMsg{facts: facts.Fallback()})
	m = updated.(Model)
	view = m.View()
	for _, f := range facts.Fallback() {
		if !strings.Contains(view, f.Title) {
			t.Errorf("view is missing fact %q", f.Title)
		}
	}
}

func TestLoadFactsWithoutClient(t *testing.T) {
	msg := loadFacts(nil)()
	got, ok := msg.(factsLoadedMsg)
	if !ok || len(got.facts) != 3 {
		t.Errorf("msg = %#v, want the fallback facts", msg)
	}
}

func TestKeys(t *testing.T) {
	m, media := newTestModel()

	updated, cmd := m.Update(keyPress(" "))
	m = updated.(Model)
	if cmd != nil {
		t.Error("toggle with unavailable media should issue nothing")
	}
	if m.ctrl.State() != playback.Idle {
		t.Errorf("state = %v, want idle", m.ctrl.State())
	}

	updated, _ = m.Update(keyPress("+"))
	m = updated.(Model)
	if media.volume != 0.55 {
		t.Errorf("volume = %v, want 0.55", media.volume)
	}

	updated, _ = m.Update(keyPress("7"))
	m = updated.(Model)
	if media.volume != 0.7 {
		t.Errorf("volume = %v, want 0.7", media.volume)
	}

	updated, _ = m.Update(keyPress("m"))
	m = updated.(Model)
	if !m.ctrl.Muted() || media.volume != 0 {
		t.Errorf("mute: muted=%v volume=%v", m.ctrl.Muted(), media.volume)
	}

	updated, _ = m.Update(keyPress("?"))
	m = updated.(Model)
	if !m.help.ShowAll {
		t.Error("? should expand the help")
	}

	_, cmd = m.Update(keyPress("q"))
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should produce a QuitMsg")
	}
}

func TestVolumeIcon(t *testing.T) {
	cases := map[float64]string{0: "🔇", 0.2: "🔉", 0.49: "🔉", 0.5: "🔊", 1: "🔊"}
	for v, want := range cases {
		if got := volumeIcon(v); got != want {
			t.Errorf("volumeIcon(%v) = %q, want %q", v, got, want)
		}
	}
}

func TestViewStationDetails(t *testing.T) {
	m, _ := newTestModel()
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 140, Height: 60})
	m = updated.(Model)

	view := m.View()
	for _, want := range []string{
		"À propos du promoteur",
		"Ladji Hamed",
		"Facebook",
		"bourgadefm.com",
		"BOURGADE FM - CURIEUX MÉDIAS SA",
		"Fierté à Ouahigouya",
		"http://example.test/live.mp3",
		"🔊",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("view is missing %q", want)
		}
	}

	updated, _ = m.Update(keyPress("m"))
	m = updated.(Model)
	if !strings.Contains(m.View(), "🔇") {
		t.Error("muted view should show the mute icon")
	}
}
