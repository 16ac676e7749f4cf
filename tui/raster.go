package tui

import (
	"image"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

// rasterize 把画布缩放成 cols x rows 个半块字符，每个字符上下各一个像素
func rasterize(img image.Image, cols, rows int, bg colorful.Color) string {
	if cols <= 0 || rows <= 0 {
		return ""
	}

	b := img.Bounds()
	var sb strings.Builder
	for row := 0; row < rows; row++ {
		if row > 0 {
			sb.WriteByte('\n')
		}
		for col := 0; col < cols; col++ {
			top := sampleBlock(img, cellRect(b, col, row*2, cols, rows*2), bg)
			bottom := sampleBlock(img, cellRect(b, col, row*2+1, cols, rows*2), bg)
			sb.WriteString(lipgloss.NewStyle().
				Foreground(lipgloss.Color(top.Hex())).
				Background(lipgloss.Color(bottom.Hex())).
				Render("▀"))
		}
	}
	return sb.String()
}

func cellRect(b image.Rectangle, x, y, nx, ny int) image.Rectangle {
	w, h := b.Dx(), b.Dy()
	return image.Rect(
		b.Min.X+x*w/nx, b.Min.Y+y*h/ny,
		b.Min.X+(x+1)*w/nx, b.Min.Y+(y+1)*h/ny,
	)
}

// sampleBlock 求区域内像素的平均色并按透明度叠加到背景色上
func sampleBlock(img image.Image, r image.Rectangle, bg colorful.Color) colorful.Color {
	var sr, sg, sb, sa float64
	n := 0

	rgba, fast := img.(*image.RGBA)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			var c color.RGBA
			if fast {
				c = rgba.RGBAAt(x, y)
			} else {
				c = color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			}
			sr += float64(c.R)
			sg += float64(c.G)
			sb += float64(c.B)
			sa += float64(c.A)
			n++
		}
	}
	if n == 0 || sa == 0 {
		return bg
	}

	// 预乘 alpha，先还原颜色再按覆盖率混合
	fg := colorful.Color{R: sr / sa, G: sg / sa, B: sb / sa}
	return bg.BlendRgb(fg, sa/float64(n)/255).Clamped()
}
