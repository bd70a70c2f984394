// Package testutil 生成测试用的动图夹具。只被 _test.go 引用。
package testutil

import (
	"image"
	"image/color"
	"image/gif"
	"os"
	"path/filepath"
	"testing"
)

// Frame 描述一帧：Rect 为空时铺满整个画面。
type Frame struct {
	Color    color.Color
	Rect     image.Rectangle
	Disposal byte
}

// WriteGIF 在 path 写出一个 w x h 的动图，每帧为单色块。
func WriteGIF(t testing.TB, path string, w, h int, frames ...Frame) {
	t.Helper()

	g := &gif.GIF{
		Config:   image.Config{Width: w, Height: h},
		Image:    make([]*image.Paletted, 0, len(frames)),
		Delay:    make([]int, 0, len(frames)),
		Disposal: make([]byte, 0, len(frames)),
	}
	for _, fr := range frames {
		r := fr.Rect
		if r.Empty() {
			r = image.Rect(0, 0, w, h)
		}
		pal := color.Palette{color.Black, fr.Color}
		img := image.NewPaletted(r, pal)
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				img.SetColorIndex(x, y, 1)
			}
		}
		g.Image = append(g.Image, img)
		g.Delay = append(g.Delay, 10)
		g.Disposal = append(g.Disposal, fr.Disposal)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("创建 gif 失败：%v", err)
	}
	defer f.Close()
	if err := gif.EncodeAll(f, g); err != nil {
		t.Fatalf("编码 gif 失败：%v", err)
	}
}

// Solid 是铺满画面、不做 disposal 的单色帧。
func Solid(c color.Color) Frame {
	return Frame{Color: c}
}

var (
	Red   = color.RGBA{255, 0, 0, 255}
	Green = color.RGBA{0, 255, 0, 255}
	Blue  = color.RGBA{0, 0, 255, 255}
)

// Near 判断 got 与 want 在 JPEG 有损误差内是否一致。
func Near(got color.Color, want color.RGBA, tol int) bool {
	c := color.RGBAModel.Convert(got).(color.RGBA)
	return absDiff(c.R, want.R) <= tol && absDiff(c.G, want.G) <= tol && absDiff(c.B, want.B) <= tol
}

func absDiff(a, b uint8) int {
	d := int(a) - int(b)
	if d < 0 {
		return -d
	}
	return d
}
