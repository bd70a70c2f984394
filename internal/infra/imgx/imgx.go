package imgx

import (
	"bufio"
	"errors"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif" // 注册 GIF 解码器（DecodeFile 也可用于读首帧）
	"image/jpeg"
	_ "image/png" // 注册 PNG 解码器
	"io"
	"os"

	xdraw "golang.org/x/image/draw"
)

// JPEGQuality 是所有 JPEG 输出（帧与网格）的固定质量。
// 同一输入重复运行必须得到逐字节一致的输出。
const JPEGQuality = 75

// Flatten 把 img 合成到不透明的 bg 上，返回一张新的 RGBA（原点归零）。
func Flatten(img image.Image, bg color.Color) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

// EncodeJPEG 以固定质量编码。
func EncodeJPEG(w io.Writer, img image.Image) error {
	return jpeg.Encode(w, img, &jpeg.Options{Quality: JPEGQuality})
}

// WriteJPEGFile 直接创建/截断 path 并写入 JPEG（非原子：失败可能留下半个文件）。
func WriteJPEGFile(path string, img image.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	bw := bufio.NewWriter(f)
	if err := EncodeJPEG(bw, img); err != nil {
		return err
	}
	return bw.Flush()
}

// DecodeFile 打开并解码一张静态图片（JPEG/PNG/GIF 首帧）。
func DecodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, errors.New("图片尺寸无效")
	}
	return img, nil
}

// Fit 把 img 缩放到 size；尺寸已一致时原样返回。
// 缩放使用 Catmull-Rom，不保持宽高比（格子尺寸是硬约束）。
func Fit(img image.Image, size image.Point) image.Image {
	if img.Bounds().Size() == size {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst
}
