// Package dedup 按内容哈希删除重复的帧文件。
package dedup

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/John-Robertt/gifgrid/internal/infra/logger"
)

// RemoveDuplicates 删除 paths 中与更早条目内容相同的文件，返回被删除的路径（保持输入顺序）。
//
// - 同一哈希首次出现的文件永远保留，与文件名无关
// - 先计算全部哈希再删除：任一文件读取失败时不删除任何文件
// - 删除不可逆；删除中途失败时返回已删除的部分与错误
func RemoveDuplicates(paths []string, algo string, log *zap.Logger) ([]string, error) {
	log = logger.OrNop(log)

	seen := make(map[ContentHash]struct{}, len(paths))
	dups := make([]string, 0)
	for _, p := range paths {
		h, err := HashFile(p, algo)
		if err != nil {
			return nil, fmt.Errorf("计算 %q 的哈希失败：%w", p, err)
		}
		if _, ok := seen[h]; ok {
			dups = append(dups, p)
			continue
		}
		seen[h] = struct{}{}
	}

	removed := make([]string, 0, len(dups))
	for _, p := range dups {
		if err := os.Remove(p); err != nil {
			return removed, fmt.Errorf("删除重复帧 %q 失败：%w", p, err)
		}
		removed = append(removed, p)
	}

	log.Info("duplicates removed",
		zap.String("algo", algo),
		zap.Int("checked", len(paths)),
		zap.Int("removed", len(removed)),
	)
	return removed, nil
}

// Remaining 返回 paths 中不在 removed 里的条目，顺序不变。
func Remaining(paths, removed []string) []string {
	gone := make(map[string]struct{}, len(removed))
	for _, p := range removed {
		gone[p] = struct{}{}
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, ok := gone[p]; ok {
			continue
		}
		out = append(out, p)
	}
	return out
}
