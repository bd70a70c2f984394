// Package frames 把动图拆成逐帧的 JPEG 文件。
package frames

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/John-Robertt/gifgrid/internal/infra/imgx"
	"github.com/John-Robertt/gifgrid/internal/infra/logger"
)

// Ext 是帧文件与网格输出的扩展名。
const Ext = ".jpg"

// FramePath 返回第 idx 帧的输出路径：<dir>/<base>_frame_<idx>.jpg。
func FramePath(input string, idx int) string {
	return filepath.Join(filepath.Dir(input), baseName(input)+"_frame_"+strconv.Itoa(idx)+Ext)
}

// Extract 把 input 的每一帧写成独立 JPEG（去透明，铺黑底），按帧序返回路径。
//
// 约束：
// - 输入无法解码时返回 *DecodeError，且不写任何文件
// - 写帧失败立即返回，已写出的帧保留在磁盘上（返回值包含它们）
func Extract(input string, log *zap.Logger) ([]string, error) {
	log = logger.OrNop(log)

	src, err := OpenGIF(input)
	if err != nil {
		return nil, err
	}
	return extractFrom(src, input, log)
}

func extractFrom(src Source, input string, log *zap.Logger) ([]string, error) {
	paths := make([]string, 0, src.Len())
	for {
		img, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return paths, &DecodeError{Path: input, Err: err}
		}

		p := FramePath(input, len(paths))
		if err := imgx.WriteJPEGFile(p, imgx.Flatten(img, color.Black)); err != nil {
			return paths, fmt.Errorf("写入帧 %q 失败：%w", p, err)
		}
		paths = append(paths, p)
		log.Debug("frame written", zap.String("path", p))
	}

	log.Info("frames extracted", zap.String("input", input), zap.Int("count", len(paths)))
	return paths, nil
}

func baseName(p string) string {
	name := filepath.Base(p)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
