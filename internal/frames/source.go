package frames

import (
	"bufio"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"io"
	"os"
)

// Source 按顺序逐帧产出合成后的画面；序列结束时 Next 返回 io.EOF。
type Source interface {
	Next() (image.Image, error)
	// Len 返回总帧数（已知时）。
	Len() int
}

// DecodeError 表示输入无法打开或无法解码为动图容器。
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("无法解码动图 %q：%v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// OpenGIF 读取并校验整个 GIF，文件句柄在返回前关闭。
// 解码失败时不会产生任何副作用。
func OpenGIF(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	defer f.Close()

	g, err := gif.DecodeAll(bufio.NewReader(f))
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	return newGIFSource(g), nil
}

// gifSource 在逻辑屏幕大小的画布上按 disposal 规则合成每一帧，
// 得到与播放器看到的一致的完整画面（而不是 GIF 里的局部子图）。
type gifSource struct {
	g      *gif.GIF
	next   int
	canvas *image.RGBA
	saved  *image.RGBA // DisposalPrevious 需要恢复的画面
}

func newGIFSource(g *gif.GIF) *gifSource {
	screen := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if screen.Empty() {
		for _, fr := range g.Image {
			screen = screen.Union(fr.Bounds())
		}
	}
	return &gifSource{
		g:      g,
		canvas: image.NewRGBA(screen),
	}
}

func (s *gifSource) Len() int { return len(s.g.Image) }

// Next 返回的画面在下一次调用 Next 前有效。
func (s *gifSource) Next() (image.Image, error) {
	if s.next >= len(s.g.Image) {
		return nil, io.EOF
	}

	if s.next > 0 {
		s.dispose(s.next - 1)
	}

	fr := s.g.Image[s.next]
	if s.disposal(s.next) == gif.DisposalPrevious {
		s.saved = cloneRGBA(s.canvas)
	}
	draw.Draw(s.canvas, fr.Bounds(), fr, fr.Bounds().Min, draw.Over)

	s.next++
	return s.canvas, nil
}

func (s *gifSource) dispose(i int) {
	switch s.disposal(i) {
	case gif.DisposalBackground:
		draw.Draw(s.canvas, s.g.Image[i].Bounds(), image.Transparent, image.Point{}, draw.Src)
	case gif.DisposalPrevious:
		if s.saved != nil {
			draw.Draw(s.canvas, s.canvas.Bounds(), s.saved, s.saved.Bounds().Min, draw.Src)
			s.saved = nil
		}
	}
}

func (s *gifSource) disposal(i int) byte {
	if i < len(s.g.Disposal) {
		return s.g.Disposal[i]
	}
	return 0
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}
