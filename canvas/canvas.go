// Package canvas 频谱绘制用的 2D 画布
package canvas

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"
)

// 画布逻辑尺寸
const (
	Width  = 600
	Height = 150
)

// Surface 渲染器需要的 2D 画布接口
type Surface interface {
	Width() float64
	Height() float64
	Clear()
	FillRect(x, y, w, h float64, c color.Color)
	FillRectGradient(x, y, w, h float64, g *LinearGradient)
}

// Stop 渐变的一个色标，offset 在 [0, 1]
type Stop struct {
	Offset float64
	Color  color.Color
}

// LinearGradient 从 (X0, Y0) 到 (X1, Y1) 的线性渐变，画布坐标
type LinearGradient struct {
	X0, Y0, X1, Y1 float64
	Stops          []Stop
}

func NewLinearGradient(x0, y0, x1, y1 float64) *LinearGradient {
	return &LinearGradient{X0: x0, Y0: y0, X1: x1, Y1: y1}
}

// AddColorStop 添加色标，offset 超出 [0, 1] 时截断
func (g *LinearGradient) AddColorStop(offset float64, c color.Color) {
	g.Stops = append(g.Stops, Stop{Offset: max(0, min(1, offset)), Color: c})
}

// ColorAt 把 (x, y) 投影到渐变线上，在相邻色标间按 RGB 插值
func (g *LinearGradient) ColorAt(x, y float64) colorful.Color {
	if len(g.Stops) == 0 {
		return colorful.Color{}
	}

	dx, dy := g.X1-g.X0, g.Y1-g.Y0
	t := 0.0
	if d := dx*dx + dy*dy; d > 0 {
		t = ((x-g.X0)*dx + (y-g.Y0)*dy) / d
	}

	first := toColorful(g.Stops[0].Color)
	if t <= g.Stops[0].Offset {
		return first
	}
	for i := 1; i < len(g.Stops); i++ {
		a, b := g.Stops[i-1], g.Stops[i]
		if t > b.Offset {
			continue
		}
		span := b.Offset - a.Offset
		if span <= 0 {
			return toColorful(b.Color)
		}
		return toColorful(a.Color).BlendRgb(toColorful(b.Color), (t-a.Offset)/span)
	}
	return toColorful(g.Stops[len(g.Stops)-1].Color)
}

func (g *LinearGradient) pattern() gg.Pattern {
	grad := gg.NewLinearGradient(g.X0, g.Y0, g.X1, g.Y1)
	for _, s := range g.Stops {
		grad.AddColorStop(s.Offset, s.Color)
	}
	return grad
}

func toColorful(c color.Color) colorful.Color {
	cf, ok := colorful.MakeColor(c)
	if !ok {
		// 完全透明
		return colorful.Color{}
	}
	return cf
}

// Canvas 基于 gg 的离屏 RGBA 画布
type Canvas struct {
	dc *gg.Context
}

// New 创建 w x h 像素的透明画布
func New(w, h int) *Canvas {
	c := &Canvas{dc: gg.NewContext(w, h)}
	c.Clear()
	return c
}

func (c *Canvas) Width() float64  { return float64(c.dc.Width()) }
func (c *Canvas) Height() float64 { return float64(c.dc.Height()) }

// Clear 把所有像素重置为透明
func (c *Canvas) Clear() {
	c.dc.SetRGBA(0, 0, 0, 0)
	c.dc.Clear()
}

func (c *Canvas) FillRect(x, y, w, h float64, col color.Color) {
	if w <= 0 || h <= 0 {
		return
	}
	c.dc.SetColor(col)
	c.dc.DrawRectangle(x, y, w, h)
	c.dc.Fill()
}

func (c *Canvas) FillRectGradient(x, y, w, h float64, g *LinearGradient) {
	if w <= 0 || h <= 0 || g == nil {
		return
	}
	c.dc.SetFillStyle(g.pattern())
	c.dc.DrawRectangle(x, y, w, h)
	c.dc.Fill()
}

// Image 返回底层像素
func (c *Canvas) Image() image.Image {
	return c.dc.Image()
}
