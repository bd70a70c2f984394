package run

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/John-Robertt/gifgrid/internal/config"
	"github.com/John-Robertt/gifgrid/internal/dedup"
	"github.com/John-Robertt/gifgrid/internal/domain"
	"github.com/John-Robertt/gifgrid/internal/frames"
	"github.com/John-Robertt/gifgrid/internal/grid"
	"github.com/John-Robertt/gifgrid/internal/infra/fsx"
	"github.com/John-Robertt/gifgrid/internal/infra/logger"
	"github.com/John-Robertt/gifgrid/internal/scan"
)

// target 是一次“抽帧 -> 去重 -> 拼图”的输入与输出。
type target struct {
	Input  string
	Output string
}

// Execute 执行一次 run，并返回对外稳定的 RunReport。
// 单个输入失败只影响它自己的条目（目录模式下其余输入照常处理）。
func Execute(ctx context.Context, eff config.EffectiveConfig, log *zap.Logger) domain.RunReport {
	return ExecuteWithObserver(ctx, eff, log, nil)
}

// ExecuteWithObserver 与 Execute 相同，但允许传入 Observer 以输出进度/阶段信息。
func ExecuteWithObserver(ctx context.Context, eff config.EffectiveConfig, log *zap.Logger, obs Observer) domain.RunReport {
	log = logger.OrNop(log)

	rr := domain.RunReport{
		Path:      eff.Input,
		StartedAt: time.Now().UTC(),
		Items:     make([]domain.ItemResult, 0, 8),
	}

	targets, err := resolveTargets(eff)
	if err != nil {
		log.Error("scan failed", zap.String("path", eff.Input), zap.Error(err))
		rr.Items = append(rr.Items, domain.ItemResult{
			Status:    domain.StatusFailed,
			ErrorCode: domain.ErrCodeIOFailed,
			ErrorMsg:  "扫描失败：" + err.Error(),
		})
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		return rr
	}

	if obs != nil {
		obs.OnStart(eff, len(targets))
	}

	// 逐个串行处理；ctx 只在两个输入之间检查，进行中的阶段总是跑完或失败。
	for i, t := range targets {
		started := time.Now()

		var res domain.ItemResult
		if err := ctx.Err(); err != nil {
			res = failed(t.Input, domain.ErrCodeCanceled, err)
		} else {
			res = processOne(eff, t, log.With(zap.String("input", t.Input)), obs)
		}
		rr.Items = append(rr.Items, res)

		if obs != nil {
			obs.OnItemDone(i+1, len(targets), res, time.Since(started))
		}
	}

	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	return rr
}

// GridPathFor 返回目录模式下 input 对应的网格图路径：<dir>/<base>_grid.jpg。
func GridPathFor(input string) string {
	name := filepath.Base(input)
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return filepath.Join(filepath.Dir(input), base+"_grid"+frames.Ext)
}

func resolveTargets(eff config.EffectiveConfig) ([]target, error) {
	if !eff.InputIsDir {
		return []target{{Input: eff.Input, Output: eff.Output}}, nil
	}
	files, err := scan.ScanAnimations(eff.Input, eff.ExcludeDirs)
	if err != nil {
		return nil, err
	}
	out := make([]target, 0, len(files))
	for _, f := range files {
		out = append(out, target{Input: f.AbsPath, Output: GridPathFor(f.AbsPath)})
	}
	return out, nil
}

func processOne(eff config.EffectiveConfig, t target, log *zap.Logger, obs Observer) domain.ItemResult {
	res := domain.ItemResult{
		Input:      t.Input,
		Frames:     []string{},
		Duplicates: []string{},
	}

	started := time.Now()
	paths, err := frames.Extract(t.Input, log)
	res.Frames = append(res.Frames, paths...)
	if err != nil {
		return withError(res, err, log)
	}
	phaseDone(obs, t.Input, "extract", map[string]any{"frames": len(paths)}, started)

	started = time.Now()
	removed, err := dedup.RemoveDuplicates(paths, eff.Hash, log)
	res.Duplicates = append(res.Duplicates, removed...)
	if err != nil {
		return withError(res, err, log)
	}
	survivors := dedup.Remaining(paths, removed)
	phaseDone(obs, t.Input, "dedup", map[string]any{"removed": len(removed), "kept": len(survivors)}, started)

	started = time.Now()
	gr, err := grid.Compose(survivors, t.Output, grid.Options{
		Shape: eff.Shape,
		Fit:   eff.CellFit,
		Log:   log,
	})
	if err != nil {
		return withError(res, err, log)
	}
	phaseDone(obs, t.Input, "compose", map[string]any{
		"rows":   gr.Shape.Rows,
		"cols":   gr.Shape.Cols,
		"placed": gr.Placed,
	}, started)

	if gr.Empty {
		res.Status = domain.StatusEmpty
		return res
	}
	res.Status = domain.StatusProcessed
	res.Grid = gr.Path
	res.Rows = gr.Shape.Rows
	res.Cols = gr.Shape.Cols
	res.Placed = gr.Placed
	return res
}

func phaseDone(obs Observer, input, name string, fields map[string]any, started time.Time) {
	if obs != nil {
		obs.OnPhaseDone(input, name, fields, time.Since(started))
	}
}

func withError(res domain.ItemResult, err error, log *zap.Logger) domain.ItemResult {
	res.Status = domain.StatusFailed
	res.ErrorCode = ErrorCode(err)
	res.ErrorMsg = err.Error()
	log.Error("processing failed", zap.String("error_code", res.ErrorCode), zap.Error(err))
	if fsx.IsCrossDevice(err) {
		log.Warn("temp file and target are on different filesystems")
	}
	return res
}

func failed(input, code string, err error) domain.ItemResult {
	return domain.ItemResult{
		Input:      input,
		Status:     domain.StatusFailed,
		ErrorCode:  code,
		ErrorMsg:   err.Error(),
		Frames:     []string{},
		Duplicates: []string{},
	}
}

// ErrorCode 把阶段错误映射为报告中的 error_code。
func ErrorCode(err error) string {
	var (
		de *frames.DecodeError
		dm *grid.DimensionMismatchError
		tl *grid.CanvasTooLargeError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &de):
		return domain.ErrCodeDecodeFailed
	case errors.As(err, &dm):
		return domain.ErrCodeDimensionMismatch
	case errors.As(err, &tl):
		return domain.ErrCodeGridTooLarge
	case fsx.IsPathTypeConflict(err):
		return domain.ErrCodeTargetConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domain.ErrCodeCanceled
	case config.Code(err) != "":
		return config.Code(err)
	default:
		return domain.ErrCodeIOFailed
	}
}
