package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/John-Robertt/gifgrid/internal/dedup"
	"github.com/John-Robertt/gifgrid/internal/domain"
	"github.com/John-Robertt/gifgrid/internal/grid"
	"github.com/John-Robertt/gifgrid/internal/infra/logger"
)

const (
	// ErrCodeInvalid 表示配置（文件/环境变量/CLI）无法解析或字段不合法。
	ErrCodeInvalid = domain.ErrCodeConfigInvalid
)

const (
	// FileName 是可选的配置文件名，固定在当前目录下查找。
	FileName = "gifgrid.json"
	// DotEnvName 是可选的环境变量文件，已存在的进程环境变量优先。
	DotEnvName = ".env"
)

// CLIArgs 保留“是否显式指定”的信息，保证覆盖优先级可实现。
type CLIArgs struct {
	Input string

	Output    string
	OutputSet bool

	Rows     int
	Cols     int
	ShapeSet bool

	Hash    string
	HashSet bool

	CellFit    string
	CellFitSet bool

	Report    string
	ReportSet bool

	LogLevel    string
	LogLevelSet bool
}

// FileConfig 对应 gifgrid.json。
type FileConfig struct {
	Output      string   `json:"output"`
	Rows        int      `json:"rows"`
	Cols        int      `json:"cols"`
	Hash        string   `json:"hash"`
	CellFit     string   `json:"cell_fit"`
	LogLevel    string   `json:"log_level"`
	Report      string   `json:"report"`
	ExcludeDirs []string `json:"exclude_dirs"`
}

// EnvConfig 对应 GIFGRID_* 环境变量。
type EnvConfig struct {
	Output   string `env:"GIFGRID_OUTPUT"`
	Rows     int    `env:"GIFGRID_ROWS"`
	Cols     int    `env:"GIFGRID_COLS"`
	Hash     string `env:"GIFGRID_HASH"`
	CellFit  string `env:"GIFGRID_CELL_FIT"`
	LogLevel string `env:"GIFGRID_LOG_LEVEL"`
	Report   string `env:"GIFGRID_REPORT"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费）。
type EffectiveConfig struct {
	// Input 为 clean + absolute；InputIsDir=true 时按目录批量处理。
	Input      string
	InputIsDir bool

	// Output 仅用于单文件模式；目录模式下为空，网格图写在各输入旁边。
	Output string

	// Shape 为 nil 表示自动计算。
	Shape *domain.GridShape

	Hash     string
	CellFit  string
	LogLevel string

	// Report 非空时额外把 RunReport 写到该路径。
	Report string

	ExcludeDirs []string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s：%q：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：%q", e.Code, e.Path)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s：%v", e.Code, e.Err)
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 读取 <cwd>/gifgrid.json（可选）、<cwd>/.env（可选）与进程环境变量，
// 与 CLI 参数合并为最终配置。
//
// 覆盖优先级（固定）：CLI > 环境变量 > 配置文件 > 内置默认。
// exclude_dirs 只由配置文件控制。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}
	environ, err := readEnviron(cwdAbs)
	if err != nil {
		return EffectiveConfig{}, err
	}
	return load(cwdAbs, cli, environ)
}

func load(cwdAbs string, cli CLIArgs, environ map[string]string) (EffectiveConfig, error) {
	cfgPath := filepath.Join(cwdAbs, FileName)
	fc, _, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	if environ == nil {
		environ = map[string]string{}
	}
	var ec EnvConfig
	if err := env.ParseWithOptions(&ec, env.Options{Environment: environ}); err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Err: fmt.Errorf("环境变量无效：%w", err)}
	}

	return merge(cwdAbs, cli, ec, fc, cfgPath)
}

func merge(cwdAbs string, cli CLIArgs, ec EnvConfig, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	invalid := func(err error) error {
		return &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	if strings.TrimSpace(cli.Input) == "" {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Err: errors.New("缺少输入路径")}
	}
	input := absCleanFrom(cwdAbs, cli.Input)
	isDir := false
	if fi, err := os.Stat(input); err == nil {
		isDir = fi.IsDir()
	}
	// 输入不存在/不可读不在这里报错：交给抽帧阶段按 decode_failed 处理。

	hash := strings.ToLower(pick(cli.Hash, cli.HashSet, ec.Hash, fc.Hash, dedup.DefaultAlgo))
	if !dedup.ValidAlgo(hash) {
		return EffectiveConfig{}, invalid(fmt.Errorf("hash 只能是 %v，实际是 %q", dedup.Algorithms(), hash))
	}

	fit := strings.ToLower(pick(cli.CellFit, cli.CellFitSet, ec.CellFit, fc.CellFit, grid.DefaultFit))
	if !grid.ValidFit(fit) {
		return EffectiveConfig{}, invalid(fmt.Errorf("cell_fit 只能是 %s 或 %s，实际是 %q", grid.FitResize, grid.FitStrict, fit))
	}

	level := strings.ToLower(pick(cli.LogLevel, cli.LogLevelSet, ec.LogLevel, fc.LogLevel, logger.DefaultLevel))
	if _, err := logger.ParseLevel(level); err != nil {
		return EffectiveConfig{}, invalid(err)
	}

	shape, err := pickShape(cli, ec, fc)
	if err != nil {
		return EffectiveConfig{}, invalid(err)
	}

	output := pick(cli.Output, cli.OutputSet, ec.Output, fc.Output, "")
	if isDir {
		if output != "" {
			return EffectiveConfig{}, invalid(fmt.Errorf("输入是目录时不能指定 output（网格图写在各动图旁边）：%q", output))
		}
	} else {
		if output == "" {
			output = grid.DefaultOutput
		}
		output = absCleanFrom(cwdAbs, output)
	}

	report := pick(cli.Report, cli.ReportSet, ec.Report, fc.Report, "")
	if report != "" {
		report = absCleanFrom(cwdAbs, report)
	}

	return EffectiveConfig{
		Input:       input,
		InputIsDir:  isDir,
		Output:      output,
		Shape:       shape,
		Hash:        hash,
		CellFit:     fit,
		LogLevel:    level,
		Report:      report,
		ExcludeDirs: append([]string(nil), fc.ExcludeDirs...),
	}, nil
}

// pick 按 CLI > env > file > 默认 选取第一个非空值（trim 后比较）。
func pick(cli string, cliSet bool, envV, fileV, def string) string {
	if cliSet {
		return strings.TrimSpace(cli)
	}
	if v := strings.TrimSpace(envV); v != "" {
		return v
	}
	if v := strings.TrimSpace(fileV); v != "" {
		return v
	}
	return def
}

// pickShape：rows/cols 必须成对出现；任一层都未指定则返回 nil（自动计算）。
func pickShape(cli CLIArgs, ec EnvConfig, fc FileConfig) (*domain.GridShape, error) {
	layers := []struct {
		name       string
		rows, cols int
		set        bool
	}{
		{"CLI", cli.Rows, cli.Cols, cli.ShapeSet},
		{"环境变量", ec.Rows, ec.Cols, ec.Rows != 0 || ec.Cols != 0},
		{"配置文件", fc.Rows, fc.Cols, fc.Rows != 0 || fc.Cols != 0},
	}
	for _, l := range layers {
		if !l.set {
			continue
		}
		s := domain.GridShape{Rows: l.rows, Cols: l.cols}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("%s 中的 rows/cols 无效（必须成对且 >= 1）：%w", l.name, err)
		}
		return &s, nil
	}
	return nil, nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 JSON 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}

// readEnviron 合并 <cwd>/.env 与进程环境变量（进程环境变量优先）。
func readEnviron(cwdAbs string) (map[string]string, error) {
	out := map[string]string{}

	dotenv := filepath.Join(cwdAbs, DotEnvName)
	if _, err := os.Stat(dotenv); err == nil {
		m, err := godotenv.Read(dotenv)
		if err != nil {
			return nil, &Error{Code: ErrCodeInvalid, Path: dotenv, Err: err}
		}
		for k, v := range m {
			out[k] = v
		}
	}

	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		out[k] = v
	}
	return out, nil
}
