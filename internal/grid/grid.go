// Package grid 把一组同尺寸的静态图按行优先顺序拼成一张网格图。
package grid

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/John-Robertt/gifgrid/internal/domain"
	"github.com/John-Robertt/gifgrid/internal/infra/fsx"
	"github.com/John-Robertt/gifgrid/internal/infra/imgx"
	"github.com/John-Robertt/gifgrid/internal/infra/logger"
)

// DefaultOutput 是单文件模式下的默认输出文件名（相对当前目录）。
const DefaultOutput = "concatenated_image_grid.jpg"

// 格子尺寸与首张图不一致时的处理策略。
const (
	FitResize = "resize"
	FitStrict = "strict"

	DefaultFit = FitResize
)

// Background 是空白格子的填充色。
var Background = color.RGBA{255, 255, 255, 255}

// DimensionMismatchError 仅在 FitStrict 下返回：某张图与格子尺寸不一致。
type DimensionMismatchError struct {
	Path string
	Want image.Point
	Got  image.Point
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("图片尺寸不一致：%q 为 %dx%d，格子为 %dx%d", e.Path, e.Got.X, e.Got.Y, e.Want.X, e.Want.Y)
}

// MaxCanvasPixels 是网格画布的像素上限（RGBA 约 1 GiB）。
const MaxCanvasPixels = 1 << 28

// CanvasTooLargeError 表示 shape 与格子尺寸相乘后超出 MaxCanvasPixels（或整数溢出）。
type CanvasTooLargeError struct {
	Shape domain.GridShape
	Cell  image.Point
}

func (e *CanvasTooLargeError) Error() string {
	if e.Cell == (image.Point{}) {
		return fmt.Sprintf("网格过大：%s 个格子超出上限 %d 像素", e.Shape, MaxCanvasPixels)
	}
	return fmt.Sprintf("网格过大：%s 个 %dx%d 的格子超出上限 %d 像素", e.Shape, e.Cell.X, e.Cell.Y, MaxCanvasPixels)
}

// checkCanvas 在分配画布前确认 rows*cols*cellW*cellH 不溢出且不超过上限。
// cell 为零值时只检查格子数。
func checkCanvas(shape domain.GridShape, cell image.Point) error {
	if shape.Rows > MaxCanvasPixels/shape.Cols {
		return &CanvasTooLargeError{Shape: shape, Cell: cell}
	}
	if cell == (image.Point{}) {
		return nil
	}
	px := int64(cell.X) * int64(cell.Y)
	if px > int64(MaxCanvasPixels)/int64(shape.Cells()) {
		return &CanvasTooLargeError{Shape: shape, Cell: cell}
	}
	return nil
}

func ValidFit(fit string) bool {
	return fit == FitResize || fit == FitStrict
}

type Options struct {
	// Shape 为 nil 时按图片数量自动计算（见 AutoShape）。
	Shape *domain.GridShape
	Fit   string
	Log   *zap.Logger
}

// Result 描述一次拼图。Empty=true 表示没有输入图片：未写出任何文件。
type Result struct {
	Path   string
	Shape  domain.GridShape
	Placed int
	Empty  bool
}

// AutoShape 返回行列均为 ceil(sqrt(n)) 的方形网格；格子可能多于图片，但不会不够。
func AutoShape(n int) domain.GridShape {
	if n <= 0 {
		return domain.GridShape{}
	}
	side := int(math.Ceil(math.Sqrt(float64(n))))
	// 浮点误差兜底。
	for side*side < n {
		side++
	}
	for side > 1 && (side-1)*(side-1) >= n {
		side--
	}
	return domain.GridShape{Rows: side, Cols: side}
}

// Compose 按行优先把 paths 贴到网格里并写出 JPEG 到 out（已存在则覆盖）。
//
// 规则：
// - 格子尺寸取第一张图
// - 第 i 张放在 row=i/cols, col=i%cols
// - 右下角格子贴完立即停止，剩余图片静默丢弃
// - paths 为空：不写文件，返回 Empty=true
func Compose(paths []string, out string, opt Options) (Result, error) {
	log := logger.OrNop(opt.Log)

	if len(paths) == 0 {
		log.Info("no images to compose")
		return Result{Empty: true}, nil
	}

	shape := AutoShape(len(paths))
	if opt.Shape != nil {
		if err := opt.Shape.Validate(); err != nil {
			return Result{}, err
		}
		shape = *opt.Shape
	}
	fit := opt.Fit
	if fit == "" {
		fit = DefaultFit
	}
	if !ValidFit(fit) {
		return Result{}, fmt.Errorf("未知的 cell fit 策略 %q", fit)
	}

	// 先确认输出位置可写，避免解码/拼接完才发现目标是目录。
	if err := fsx.CheckFileTarget(out); err != nil {
		return Result{}, err
	}

	if err := checkCanvas(shape, image.Point{}); err != nil {
		return Result{}, err
	}

	first, err := imgx.DecodeFile(paths[0])
	if err != nil {
		return Result{}, fmt.Errorf("读取 %q 失败：%w", paths[0], err)
	}
	cell := first.Bounds().Size()
	if err := checkCanvas(shape, cell); err != nil {
		return Result{}, err
	}

	canvas := image.NewRGBA(image.Rect(0, 0, shape.Cols*cell.X, shape.Rows*cell.Y))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(Background), image.Point{}, draw.Src)

	placed := 0
	for i, p := range paths {
		row, col := i/shape.Cols, i%shape.Cols

		img := first
		if i > 0 {
			img, err = imgx.DecodeFile(p)
			if err != nil {
				return Result{}, fmt.Errorf("读取 %q 失败：%w", p, err)
			}
		}
		if sz := img.Bounds().Size(); sz != cell {
			if fit == FitStrict {
				return Result{}, &DimensionMismatchError{Path: p, Want: cell, Got: sz}
			}
			log.Debug("resizing image to cell", zap.String("path", p), zap.Int("w", sz.X), zap.Int("h", sz.Y))
			img = imgx.Fit(img, cell)
		}

		at := image.Pt(col*cell.X, row*cell.Y)
		draw.Draw(canvas, image.Rectangle{Min: at, Max: at.Add(cell)}, img, img.Bounds().Min, draw.Src)
		placed++

		if row == shape.Rows-1 && col == shape.Cols-1 {
			break
		}
	}

	var buf bytes.Buffer
	if err := imgx.EncodeJPEG(&buf, canvas); err != nil {
		return Result{}, err
	}
	if err := fsx.WriteFileAtomicReplace(filepath.Dir(out), filepath.Base(out), buf.Bytes()); err != nil {
		return Result{}, fmt.Errorf("写入网格图 %q 失败：%w", out, err)
	}

	if dropped := len(paths) - placed; dropped > 0 {
		log.Info("grid full, images dropped", zap.Int("dropped", dropped))
	}
	log.Info("grid written",
		zap.String("path", out),
		zap.Stringer("shape", shape),
		zap.Int("placed", placed),
	)
	return Result{Path: out, Shape: shape, Placed: placed}, nil
}
