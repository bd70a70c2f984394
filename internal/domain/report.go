package domain

import (
	"sort"
	"time"
)

const (
	StatusProcessed = "processed"
	StatusEmpty     = "empty"
	StatusFailed    = "failed"
)

const (
	ErrCodeDecodeFailed      = "decode_failed"
	ErrCodeIOFailed          = "io_failed"
	ErrCodeDimensionMismatch = "dimension_mismatch"
	ErrCodeGridTooLarge      = "grid_too_large"
	ErrCodeTargetConflict    = "target_conflict"
	ErrCodeConfigInvalid     = "config_invalid"
	ErrCodeCanceled          = "canceled"
)

// RunReport 是对外稳定输出（--report 文件 / 非 TTY 时的 stdout JSON）的结构。
type RunReport struct {
	Path string `json:"path"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary ReportSummary `json:"summary"`
	Items   []ItemResult  `json:"items"`
}

type ReportSummary struct {
	Processed int `json:"processed"`
	Empty     int `json:"empty"`
	Failed    int `json:"failed"`
}

// ItemResult 记录一个输入动图的处理结果。
//
// Frames 是抽帧阶段写出的全部帧（含随后被删除的重复帧）；
// Duplicates 是去重阶段删除的帧，顺序与 Frames 中出现的顺序一致。
type ItemResult struct {
	Input  string `json:"input"`
	Status string `json:"status"`

	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`

	Frames     []string `json:"frames"`
	Duplicates []string `json:"duplicates"`

	Grid   string `json:"grid"`
	Rows   int    `json:"rows"`
	Cols   int    `json:"cols"`
	Placed int    `json:"placed"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC
// 2) items 稳定排序：按 input 字典序；input=="" 的合成条目排在最后
// 3) summary 由 items 计算得出
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Items, func(i, j int) bool {
		a := r.Items[i].Input
		b := r.Items[j].Input
		if a == "" {
			return false
		}
		if b == "" {
			return true
		}
		return a < b
	})

	var s ReportSummary
	for _, it := range r.Items {
		switch it.Status {
		case StatusProcessed:
			s.Processed++
		case StatusEmpty:
			s.Empty++
		case StatusFailed:
			s.Failed++
		}
	}
	r.Summary = s
}

// OK 表示没有失败条目（empty 视为正常的 no-op）。
func (r RunReport) OK() bool {
	return r.Summary.Failed == 0
}
