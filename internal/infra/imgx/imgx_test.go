package imgx

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatten_TransparentBecomesBackground(t *testing.T) {
	// 左半透明、右半不透明红色。
	src := image.NewNRGBA(image.Rect(10, 10, 14, 12))
	src.Set(12, 10, color.NRGBA{255, 0, 0, 255})

	got := Flatten(src, color.Black)

	require.Equal(t, image.Rect(0, 0, 4, 2), got.Bounds())
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, got.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, got.RGBAAt(2, 0))
}

func TestWriteJPEGFile_Deterministic(t *testing.T) {
	dir := t.TempDir()
	img := solid(16, 16, color.RGBA{0, 128, 255, 255})

	a := filepath.Join(dir, "a.jpg")
	b := filepath.Join(dir, "b.jpg")
	require.NoError(t, WriteJPEGFile(a, img))
	require.NoError(t, WriteJPEGFile(b, img))

	ba, err := os.ReadFile(a)
	require.NoError(t, err)
	bb, err := os.ReadFile(b)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(ba, bb), "同一图片两次编码应逐字节一致")

	_, err = jpeg.Decode(bytes.NewReader(ba))
	require.NoError(t, err)
}

func TestDecodeFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "x.jpg")
	require.NoError(t, WriteJPEGFile(p, solid(20, 10, color.White)))

	img, err := DecodeFile(p)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(20, 10), img.Bounds().Size())

	_, err = DecodeFile(filepath.Join(dir, "missing.jpg"))
	require.Error(t, err)

	bad := filepath.Join(dir, "bad.jpg")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0o644))
	_, err = DecodeFile(bad)
	require.Error(t, err)
}

func TestFit(t *testing.T) {
	img := solid(8, 8, color.RGBA{255, 255, 255, 255})

	// 尺寸一致：原样返回。
	assert.Same(t, img, Fit(img, image.Pt(8, 8)))

	got := Fit(img, image.Pt(16, 4))
	assert.Equal(t, image.Pt(16, 4), got.Bounds().Size())
	c := color.RGBAModel.Convert(got.At(8, 2)).(color.RGBA)
	assert.GreaterOrEqual(t, c.R, uint8(250))
}

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}
