package run

import (
	"time"

	"github.com/John-Robertt/gifgrid/internal/config"
	"github.com/John-Robertt/gifgrid/internal/domain"
)

// Observer 用于把“运行进度/阶段/条目结果”从核心执行流程中解耦出来。
//
// run 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
type Observer interface {
	// OnStart 在 ExecuteWithObserver 开始时调用。
	OnStart(eff config.EffectiveConfig, total int)
	// OnPhaseDone 在某个输入的某个阶段（extract/dedup/compose）结束时调用。
	OnPhaseDone(input, name string, fields map[string]any, dur time.Duration)
	// OnItemDone 在某个输入处理完成时调用。
	OnItemDone(idx, total int, res domain.ItemResult, dur time.Duration)
}
