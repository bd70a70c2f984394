package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/John-Robertt/gifgrid/internal/app/run"
	"github.com/John-Robertt/gifgrid/internal/config"
	"github.com/John-Robertt/gifgrid/internal/domain"
	"github.com/John-Robertt/gifgrid/internal/infra/fsx"
	"github.com/John-Robertt/gifgrid/internal/infra/logger"
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// errUsage 标记参数错误（退出码 2）。
var errUsage = errors.New("参数错误")

// execute 解析命令行并执行，返回进程退出码：0 成功，1 存在失败条目，2 参数错误。
func execute(args []string, stdout, stderr io.Writer) int {
	exitCode := 0
	root := newRootCmd(stdout, stderr, &exitCode)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(stderr, err)
		} else {
			fmt.Fprintf(stderr, "%v：%v\n", errUsage, err)
		}
		fmt.Fprintln(stderr, `使用 "gifgrid run --help" 查看详细说明。`)
		return 2
	}
	return exitCode
}

func newRootCmd(stdout, stderr io.Writer, exitCode *int) *cobra.Command {
	root := &cobra.Command{
		Use:           "gifgrid",
		Short:         "把动图拆帧、去重后拼成一张网格图",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.AddCommand(newRunCmd(stdout, stderr, exitCode))
	return root
}

type runArgs struct {
	cli config.CLIArgs

	rows int
	cols int
}

func newRunCmd(stdout, stderr io.Writer, exitCode *int) *cobra.Command {
	ra := &runArgs{}
	cmd := &cobra.Command{
		Use:   "run <input>",
		Short: "处理一个 GIF 文件或目录下的全部 GIF",
		Long: `处理一个 GIF 文件或目录下的全部 GIF：
  1. 逐帧导出为 <名称>_frame_<序号>.jpg（与输入同目录）
  2. 按内容哈希删除重复帧（保留首次出现）
  3. 把剩余帧按行优先拼成网格图

单文件模式默认输出到当前目录的 concatenated_image_grid.jpg；
目录模式在每个动图旁写出 <名称>_grid.jpg。

配置优先级：命令行 > 环境变量（GIFGRID_*，可放在 .env）> gifgrid.json > 内置默认。`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ra.collect(cmd.Flags(), args[0]); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			*exitCode = runCmd(ctx, ra.cli, stdout, stderr)
			return nil
		},
	}
	bindRunFlags(cmd.Flags(), ra)
	return cmd
}

func bindRunFlags(fs *pflag.FlagSet, ra *runArgs) {
	fs.StringVarP(&ra.cli.Output, "output", "o", "", "网格图输出路径（仅单文件模式）")
	fs.IntVar(&ra.rows, "rows", 0, "网格行数（需与 --cols 同时指定）")
	fs.IntVar(&ra.cols, "cols", 0, "网格列数（需与 --rows 同时指定）")
	fs.StringVar(&ra.cli.Hash, "hash", "", "去重哈希：md5|sha256|xxhash|blake3（默认 md5）")
	fs.StringVar(&ra.cli.CellFit, "cell-fit", "", "尺寸不一致时的处理：resize|strict（默认 resize）")
	fs.StringVar(&ra.cli.Report, "report", "", "额外把 RunReport JSON 写到该路径")
	fs.StringVar(&ra.cli.LogLevel, "log-level", "", "日志级别：debug|info|warn|error（默认 warn）")
}

// collect 只把显式指定的参数标记为 Set，保证“未指定则读环境变量/配置文件”。
func (ra *runArgs) collect(fs *pflag.FlagSet, input string) error {
	ra.cli.Input = input
	ra.cli.OutputSet = fs.Changed("output")
	ra.cli.HashSet = fs.Changed("hash")
	ra.cli.CellFitSet = fs.Changed("cell-fit")
	ra.cli.ReportSet = fs.Changed("report")
	ra.cli.LogLevelSet = fs.Changed("log-level")

	rowsSet, colsSet := fs.Changed("rows"), fs.Changed("cols")
	switch {
	case rowsSet != colsSet:
		return fmt.Errorf("%w：--rows 与 --cols 必须同时指定", errUsage)
	case rowsSet && (ra.rows < 1 || ra.cols < 1):
		return fmt.Errorf("%w：--rows/--cols 必须 >= 1，实际是 %dx%d", errUsage, ra.rows, ra.cols)
	case rowsSet:
		ra.cli.Rows, ra.cli.Cols, ra.cli.ShapeSet = ra.rows, ra.cols, true
	}
	return nil
}

func runCmd(ctx context.Context, cli config.CLIArgs, stdout, stderr io.Writer) int {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(stderr, "读取当前目录失败：%v\n", err)
		return 1
	}

	eff, err := config.LoadEffective(cwd, cli)
	if err != nil {
		emitReport(stdout, stderr, reportForConfigError(cwd, cli, err))
		return 1
	}

	log, err := logger.New(eff.LogLevel)
	if err != nil {
		fmt.Fprintf(stderr, "初始化日志失败：%v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()
	log.Debug("effective config",
		zap.String("input", eff.Input),
		zap.Bool("input_is_dir", eff.InputIsDir),
		zap.String("output", eff.Output),
		zap.String("hash", eff.Hash),
		zap.String("cell_fit", eff.CellFit),
	)

	progressW, interactive := pickProgressWriter(stdout, stderr)
	var obs run.Observer
	if interactive {
		obs = newProgressUI(progressW)
	}

	rr := run.ExecuteWithObserver(ctx, eff, log, obs)

	if eff.Report != "" {
		if err := writeReportFile(eff.Report, rr); err != nil {
			fmt.Fprintf(stderr, "写入报告失败：%v\n", err)
			emitReport(stdout, stderr, rr)
			return 1
		}
	}

	emitReport(stdout, stderr, rr)
	if interactive && eff.Report != "" {
		fmt.Fprintf(progressW, "report: %s\n", eff.Report)
	}
	if !rr.OK() {
		return 1
	}
	return 0
}

func emitReport(stdout, stderr io.Writer, rr domain.RunReport) {
	if isTTY(stdout) {
		for _, it := range rr.Items {
			switch it.Status {
			case domain.StatusProcessed:
				fmt.Fprintf(stdout, "Duplicate images removed: %s\n", formatStringListJSON(it.Duplicates))
				fmt.Fprintf(stdout, "Grid image saved as %s\n", it.Grid)
			case domain.StatusEmpty:
				fmt.Fprintln(stdout, "No images to create a grid.")
			case domain.StatusFailed:
				key := it.Input
				if key == "" {
					key = "<unknown>"
				}
				fmt.Fprintf(stderr, "%s %s: %s\n", key, it.ErrorCode, it.ErrorMsg)
			}
		}
		printSummary(stdout, rr)
		return
	}

	// stdout 非 TTY：stdout 必须且仅输出一个 RunReport JSON（日志/摘要走 stderr）。
	enc := json.NewEncoder(stdout)
	_ = enc.Encode(rr)
	printSummary(stderr, rr)
}

func printSummary(w io.Writer, rr domain.RunReport) {
	fmt.Fprintf(w, "完成：processed=%d empty=%d failed=%d\n",
		rr.Summary.Processed, rr.Summary.Empty, rr.Summary.Failed,
	)
}

func reportForConfigError(cwd string, cli config.CLIArgs, err error) domain.RunReport {
	code := config.Code(err)
	if code == "" {
		code = config.ErrCodeInvalid
	}
	now := time.Now().UTC()
	input := cli.Input
	if input != "" && !filepath.IsAbs(input) {
		input = filepath.Join(cwd, input)
	}
	rr := domain.RunReport{
		Path:       input,
		StartedAt:  now,
		FinishedAt: now,
		Items: []domain.ItemResult{{
			Input:      input,
			Status:     domain.StatusFailed,
			ErrorCode:  code,
			ErrorMsg:   err.Error(),
			Frames:     []string{},
			Duplicates: []string{},
		}},
	}
	rr.Finalize()
	return rr
}

func writeReportFile(path string, rr domain.RunReport) error {
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return fsx.WriteFileAtomicReplace(filepath.Dir(path), filepath.Base(path), b)
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func pickProgressWriter(stdout, stderr io.Writer) (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr（不污染 stdout JSON）。
	if isTTY(stderr) {
		return stderr, true
	}
	if isTTY(stdout) {
		return stdout, true
	}
	return nil, false
}
