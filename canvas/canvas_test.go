package canvas

import (
	"image/color"
	"testing"

	"github.com/lucasb-eyer/go-colorful"
)

func hex(t *testing.T, s string) colorful.Color {
	t.Helper()
	c, err := colorful.Hex(s)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func triColor(t *testing.T) *LinearGradient {
	g := NewLinearGradient(0, Height, 0, 0)
	g.AddColorStop(0, hex(t, "#009E49"))
	g.AddColorStop(0.5, hex(t, "#FCD116"))
	g.AddColorStop(1, hex(t, "#EF2B2D"))
	return g
}

func TestLinearGradientColorAt(t *testing.T) {
	g := triColor(t)

	cases := []struct {
		y    float64
		want string
	}{
		{Height, "#009E49"},
		{Height / 2, "#FCD116"},
		{0, "#EF2B2D"},
		{Height + 50, "#009E49"},
		{-50, "#EF2B2D"},
	}
	for _, tc := range cases {
		got := g.ColorAt(10, tc.y)
		if d := got.DistanceRgb(hex(t, tc.want)); d > 0.01 {
			t.Errorf("ColorAt(y=%v) = %s, want %s", tc.y, got.Hex(), tc.want)
		}
	}

	// 垂直渐变与横坐标无关
	if a, b := g.ColorAt(0, 40), g.ColorAt(590, 40); a.DistanceRgb(b) > 1e-9 {
		t.Errorf("vertical gradient varies with x: %s vs %s", a.Hex(), b.Hex())
	}
}

func TestLinearGradientClampsOffsets(t *testing.T) {
	g := NewLinearGradient(0, 0, 0, 1)
	g.AddColorStop(-1, color.Black)
	g.AddColorStop(2, color.White)
	if g.Stops[0].Offset != 0 || g.Stops[1].Offset != 1 {
		t.Errorf("offsets = %v, %v; want 0, 1", g.Stops[0].Offset, g.Stops[1].Offset)
	}
}

func TestCanvasFillAndClear(t *testing.T) {
	c := New(Width, Height)
	if c.Width() != Width || c.Height() != Height {
		t.Fatalf("size = %vx%v", c.Width(), c.Height())
	}

	c.FillRectGradient(0, 0, Width, Height, triColor(t))

	probe := func(y int, want string) {
		t.Helper()
		got, ok := colorful.MakeColor(c.Image().At(300, y))
		if !ok {
			t.Fatalf("pixel at y=%d is transparent", y)
		}
		if d := got.DistanceRgb(hex(t, want)); d > 0.1 {
			t.Errorf("pixel y=%d = %s, want ~%s", y, got.Hex(), want)
		}
	}
	probe(Height-1, "#009E49")
	probe(Height/2, "#FCD116")
	probe(0, "#EF2B2D")

	c.Clear()
	if _, _, _, a := c.Image().At(300, 75).RGBA(); a != 0 {
		t.Errorf("alpha after Clear = %d, want 0", a)
	}
}

func TestCanvasIgnoresEmptyRects(t *testing.T) {
	c := New(10, 10)
	c.FillRect(0, 0, 0, 10, color.White)
	c.FillRectGradient(0, 0, 10, -1, triColor(t))
	c.FillRectGradient(0, 0, 10, 10, nil)
	if _, _, _, a := c.Image().At(5, 5).RGBA(); a != 0 {
		t.Errorf("alpha = %d, want untouched surface", a)
	}

	c.FillRect(0, 0, 10, 10, color.White)
	if _, _, _, a := c.Image().At(5, 5).RGBA(); a == 0 {
		t.Error("FillRect left the surface transparent")
	}
}
