package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/gifgrid/internal/dedup"
	"github.com/John-Robertt/gifgrid/internal/domain"
	"github.com/John-Robertt/gifgrid/internal/grid"
)

func TestLoad_Defaults(t *testing.T) {
	cwd := t.TempDir()

	eff, err := load(cwd, CLIArgs{Input: "anim.gif"}, nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(cwd, "anim.gif"), eff.Input)
	assert.False(t, eff.InputIsDir)
	assert.Equal(t, filepath.Join(cwd, grid.DefaultOutput), eff.Output)
	assert.Nil(t, eff.Shape)
	assert.Equal(t, dedup.DefaultAlgo, eff.Hash)
	assert.Equal(t, grid.DefaultFit, eff.CellFit)
	assert.Equal(t, "warn", eff.LogLevel)
	assert.Empty(t, eff.Report)
}

func TestLoad_MissingInput(t *testing.T) {
	_, err := load(t.TempDir(), CLIArgs{}, nil)
	assert.Equal(t, ErrCodeInvalid, Code(err))
}

func TestLoad_PrecedenceCLIOverEnvOverFile(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), `{"hash":"sha256","cell_fit":"strict","output":"from-file.jpg","rows":1,"cols":5}`)

	// 仅配置文件。
	eff, err := load(cwd, CLIArgs{Input: "a.gif"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "sha256", eff.Hash)
	assert.Equal(t, "strict", eff.CellFit)
	assert.Equal(t, filepath.Join(cwd, "from-file.jpg"), eff.Output)
	assert.Equal(t, &domain.GridShape{Rows: 1, Cols: 5}, eff.Shape)

	// 环境变量覆盖配置文件。
	environ := map[string]string{
		"GIFGRID_HASH":   "xxhash",
		"GIFGRID_OUTPUT": "from-env.jpg",
		"GIFGRID_ROWS":   "2",
		"GIFGRID_COLS":   "2",
	}
	eff, err = load(cwd, CLIArgs{Input: "a.gif"}, environ)
	require.NoError(t, err)
	assert.Equal(t, "xxhash", eff.Hash)
	assert.Equal(t, "strict", eff.CellFit, "未被环境变量覆盖的字段仍来自配置文件")
	assert.Equal(t, filepath.Join(cwd, "from-env.jpg"), eff.Output)
	assert.Equal(t, &domain.GridShape{Rows: 2, Cols: 2}, eff.Shape)

	// CLI 覆盖一切。
	eff, err = load(cwd, CLIArgs{
		Input:      "a.gif",
		Hash:       "BLAKE3",
		HashSet:    true,
		Output:     "/abs/out.jpg",
		OutputSet:  true,
		Rows:       3,
		Cols:       1,
		ShapeSet:   true,
		CellFit:    "resize",
		CellFitSet: true,
	}, environ)
	require.NoError(t, err)
	assert.Equal(t, "blake3", eff.Hash)
	assert.Equal(t, "resize", eff.CellFit)
	assert.Equal(t, filepath.Clean("/abs/out.jpg"), eff.Output)
	assert.Equal(t, &domain.GridShape{Rows: 3, Cols: 1}, eff.Shape)
}

func TestLoad_InvalidValues(t *testing.T) {
	cwd := t.TempDir()

	cases := []struct {
		name    string
		cli     CLIArgs
		environ map[string]string
	}{
		{"unknown hash", CLIArgs{Input: "a.gif", Hash: "crc", HashSet: true}, nil},
		{"empty hash", CLIArgs{Input: "a.gif", Hash: "", HashSet: true}, nil},
		{"unknown fit", CLIArgs{Input: "a.gif"}, map[string]string{"GIFGRID_CELL_FIT": "stretch"}},
		{"unknown level", CLIArgs{Input: "a.gif", LogLevel: "loud", LogLevelSet: true}, nil},
		{"rows without cols", CLIArgs{Input: "a.gif"}, map[string]string{"GIFGRID_ROWS": "2"}},
		{"zero cli shape", CLIArgs{Input: "a.gif", Rows: 0, Cols: 2, ShapeSet: true}, nil},
		{"non numeric env", CLIArgs{Input: "a.gif"}, map[string]string{"GIFGRID_COLS": "many"}},
	}
	for _, c := range cases {
		_, err := load(cwd, c.cli, c.environ)
		assert.Equal(t, ErrCodeInvalid, Code(err), "%s: err=%v", c.name, err)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), `{"hash":`)

	_, err := load(cwd, CLIArgs{Input: "a.gif"}, nil)
	require.Error(t, err)
	assert.Equal(t, ErrCodeInvalid, Code(err))
	assert.Contains(t, err.Error(), FileName)
}

func TestLoad_DirectoryInput(t *testing.T) {
	cwd := t.TempDir()
	in := filepath.Join(cwd, "gifs")
	require.NoError(t, os.MkdirAll(in, 0o755))
	writeFile(t, filepath.Join(cwd, FileName), `{"exclude_dirs":["tmp"]}`)

	eff, err := load(cwd, CLIArgs{Input: "gifs"}, nil)
	require.NoError(t, err)
	assert.True(t, eff.InputIsDir)
	assert.Empty(t, eff.Output)
	assert.Equal(t, []string{"tmp"}, eff.ExcludeDirs)

	// 目录模式下指定 output 是配置错误。
	_, err = load(cwd, CLIArgs{Input: "gifs", Output: "x.jpg", OutputSet: true}, nil)
	assert.Equal(t, ErrCodeInvalid, Code(err))
}

func TestLoad_ReportResolvedAgainstCwd(t *testing.T) {
	cwd := t.TempDir()

	eff, err := load(cwd, CLIArgs{Input: "a.gif", Report: "out/report.json", ReportSet: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, "out", "report.json"), eff.Report)
}

func TestReadEnviron_DotEnvAndProcessEnv(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, DotEnvName), "GIFGRID_HASH=sha256\nGIFGRID_CELL_FIT=strict\n")
	t.Setenv("GIFGRID_HASH", "blake3")

	environ, err := readEnviron(cwd)
	require.NoError(t, err)
	assert.Equal(t, "blake3", environ["GIFGRID_HASH"], "进程环境变量优先于 .env")
	assert.Equal(t, "strict", environ["GIFGRID_CELL_FIT"])
}

func TestLoadEffective_UsesDotEnv(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, DotEnvName), "GIFGRID_LOG_LEVEL=debug\n")
	// 借 t.Setenv 注册恢复，再确保进程环境里没有该变量。
	t.Setenv("GIFGRID_LOG_LEVEL", "")
	require.NoError(t, os.Unsetenv("GIFGRID_LOG_LEVEL"))

	eff, err := LoadEffective(cwd, CLIArgs{Input: "a.gif"})
	require.NoError(t, err)
	assert.Equal(t, "debug", eff.LogLevel)
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}
