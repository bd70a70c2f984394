package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/John-Robertt/gifgrid/internal/app/run"
	"github.com/John-Robertt/gifgrid/internal/config"
	"github.com/John-Robertt/gifgrid/internal/domain"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 是交互终端下的进度输出：run 层只发事件，这里决定如何展示。
// 所有内容写到 stderr（或 fallback 到 stdout），不影响非 TTY 时的 JSON 契约。
type progressUI struct {
	w io.Writer

	startedAt time.Time
	ok        int
	empty     int
	fail      int
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{w: w}
}

func (p *progressUI) OnStart(eff config.EffectiveConfig, total int) {
	now := time.Now()
	p.startedAt = now

	fmt.Fprintf(p.w, "[%s] gifgrid run\n", now.Format("15:04:05"))
	fmt.Fprintln(p.w, "配置（生效）:")
	fmt.Fprintf(p.w, "  input: %s\n", eff.Input)
	if eff.InputIsDir {
		fmt.Fprintf(p.w, "  mode: 目录（%d 个动图）\n", total)
		fmt.Fprintf(p.w, "  exclude_dirs: %s\n", formatStringListJSON(eff.ExcludeDirs))
	} else {
		fmt.Fprintf(p.w, "  output: %s\n", eff.Output)
	}
	fmt.Fprintf(p.w, "  shape: %s\n", formatShape(eff.Shape))
	fmt.Fprintf(p.w, "  hash: %s\n", eff.Hash)
	fmt.Fprintf(p.w, "  cell_fit: %s\n", eff.CellFit)
	fmt.Fprintln(p.w)
}

func (p *progressUI) OnPhaseDone(input, name string, fields map[string]any, dur time.Duration) {
	switch name {
	case "extract":
		fmt.Fprintf(p.w, "  抽帧: frames=%d (%s)\n", intField(fields, "frames"), formatShortDuration(dur))
	case "dedup":
		fmt.Fprintf(p.w, "  去重: removed=%d kept=%d (%s)\n",
			intField(fields, "removed"), intField(fields, "kept"), formatShortDuration(dur),
		)
	case "compose":
		fmt.Fprintf(p.w, "  拼图: %dx%d placed=%d (%s)\n",
			intField(fields, "rows"), intField(fields, "cols"), intField(fields, "placed"), formatShortDuration(dur),
		)
	default:
		fmt.Fprintf(p.w, "  %s (%s)\n", name, formatShortDuration(dur))
	}
}

func (p *progressUI) OnItemDone(idx, total int, res domain.ItemResult, dur time.Duration) {
	switch res.Status {
	case domain.StatusProcessed:
		p.ok++
		fmt.Fprintf(p.w, "[%d/%d] %s OK grid=%s (%s)\n",
			idx, total, res.Input, res.Grid, formatShortDuration(dur),
		)
	case domain.StatusEmpty:
		p.empty++
		fmt.Fprintf(p.w, "[%d/%d] %s EMPTY (没有可拼接的帧) (%s)\n",
			idx, total, res.Input, formatShortDuration(dur),
		)
	default:
		p.fail++
		fmt.Fprintf(p.w, "[%d/%d] %s FAIL %s: %s (%s)\n",
			idx, total, res.Input, res.ErrorCode, truncate(res.ErrorMsg, 160), formatShortDuration(dur),
		)
	}

	if idx >= total {
		fmt.Fprintf(p.w, "\n进度: done=%d/%d ok=%d empty=%d fail=%d elapsed=%s\n",
			idx, total, p.ok, p.empty, p.fail, formatShortDuration(time.Since(p.startedAt)),
		)
	}
}

func formatShape(s *domain.GridShape) string {
	if s == nil {
		return "auto"
	}
	return s.String()
}

func formatStringListJSON(xs []string) string {
	// json.Marshal(nil slice) => "null"；对用户更友好的是 "[]"
	if xs == nil {
		xs = []string{}
	}
	b, err := json.Marshal(xs)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// truncate 按字符（rune）截断，max 为字符数，不会切开多字节字符。
func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func intField(fields map[string]any, key string) int {
	if fields == nil {
		return 0
	}
	v, ok := fields[key]
	if !ok {
		return 0
	}
	switch x := v.(type) {
	case int:
		return x
	case int64:
		return int(x)
	case float64:
		return int(x)
	default:
		return 0
	}
}
