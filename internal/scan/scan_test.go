package scan

import (
	"os"
	"path/filepath"
	"testing"
)

func TestScanAnimations_OnlyGIF(t *testing.T) {
	root := t.TempDir()

	touch(t, filepath.Join(root, "in", "cat.gif"))
	touch(t, filepath.Join(root, "in", "cat_frame_0.jpg"))
	touch(t, filepath.Join(root, "in", "notes.txt"))

	got, err := ScanAnimations(root, nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(got) != 1 {
		t.Fatalf("期望 1 个动图文件，实际 %d", len(got))
	}
	wantRel := filepath.Join("in", "cat.gif")
	if got[0].RelPath != wantRel {
		t.Fatalf("期望 rel=%q，实际=%q", wantRel, got[0].RelPath)
	}
	if got[0].Base != "cat" {
		t.Fatalf("期望 base=cat，实际=%q", got[0].Base)
	}
}

func TestScanAnimations_ExcludeDirsFromConfig(t *testing.T) {
	root := t.TempDir()

	touch(t, filepath.Join(root, "temp", "a.gif"))
	touch(t, filepath.Join(root, "ok", "b.gif"))

	got, err := ScanAnimations(root, []string{"temp"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(got) != 1 {
		t.Fatalf("期望 1 个动图文件，实际 %d", len(got))
	}
	wantRel := filepath.Join("ok", "b.gif")
	if got[0].RelPath != wantRel {
		t.Fatalf("期望 rel=%q，实际=%q", wantRel, got[0].RelPath)
	}
}

func TestScanAnimations_ExtCaseInsensitiveAndSorted(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "b.GIF"))
	touch(t, filepath.Join(root, "a.gif"))

	got, err := ScanAnimations(root, nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(got) != 2 {
		t.Fatalf("期望 2 个动图文件，实际 %d", len(got))
	}
	if got[0].RelPath != "a.gif" || got[1].RelPath != "b.GIF" {
		t.Fatalf("输出顺序不稳定：%q, %q", got[0].RelPath, got[1].RelPath)
	}
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
}
