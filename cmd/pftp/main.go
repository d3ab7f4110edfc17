package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/hwuu/pftp/internal/config"
	"github.com/hwuu/pftp/internal/push"
	"github.com/hwuu/pftp/internal/store"
)

// 构建时通过 ldflags 注入
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const envLogLevel = "PFTP_LOG_LEVEL"

// exitError 携带进程退出码；err 为 nil 时不再额外输出
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

type rootOptions struct {
	configPath string
	logLevel   string
	stdout     io.Writer
	stderr     io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{stdout: stdout, stderr: stderr}

	rootCmd := &cobra.Command{
		Use:           "pftp",
		Short:         "把本地目录并发推送到多台 SFTP 主机",
		Long:          "pftp: 按服务器组把本地目录通过 SFTP 并发推送到多台主机，单台主机或单个文件失败互不影响。",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "配置文件路径（默认 ~/.pftp/config.yaml）")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "日志级别: debug/info/warn/error（也可用 "+envLogLevel+"）")

	rootCmd.AddCommand(newPushCmd(opts))
	rootCmd.AddCommand(newGroupsCmd(opts))
	rootCmd.AddCommand(newStatusCmd(opts))
	rootCmd.AddCommand(newVersionCmd(opts))

	return rootCmd
}

func (o *rootOptions) logger(cmd *cobra.Command) (*log.Logger, error) {
	level := o.logLevel
	if !cmd.Flags().Changed("log-level") {
		if v := os.Getenv(envLogLevel); v != "" {
			level = v
		}
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return log.NewWithOptions(o.stderr, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
	}), nil
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	return config.Load(o.configPath)
}

// openHistory 打开 ~/.pftp/history.db
func openHistory() (*store.BoltStore, error) {
	if err := config.EnsureStateDir(); err != nil {
		return nil, err
	}
	path, err := config.GetHistoryPath()
	if err != nil {
		return nil, err
	}
	return store.NewBoltStore(path)
}

func newPushCmd(opts *rootOptions) *cobra.Command {
	var (
		input          string
		maxConcurrency int
		insecure       bool
		noHistory      bool
		strict         bool
	)

	cmd := &cobra.Command{
		Use:   "push <group>",
		Short: "把输入目录推送到服务器组中的所有主机",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := opts.logger(cmd)
			if err != nil {
				return &exitError{code: 1, err: err}
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return &exitError{code: 1, err: err}
			}
			if input != "" {
				cfg.Input.InputDir = input
			}
			if cmd.Flags().Changed("max-concurrency") {
				if maxConcurrency < 0 {
					return &exitError{code: 1, err: fmt.Errorf("--max-concurrency must be >= 0")}
				}
				cfg.Transfer.MaxConcurrency = maxConcurrency
			}
			if insecure {
				cfg.Security.InsecureIgnoreHostKey = true
				logger.Warn("host key verification disabled")
			}

			cred, err := config.LoadCredential(config.NewTerminalPrompter())
			if err != nil {
				return &exitError{code: 1, err: err}
			}

			pusher := &push.Pusher{
				Config:     cfg,
				Credential: cred,
				Output:     opts.stdout,
				Logger:     logger,
				Strict:     strict,
			}
			if !noHistory {
				history, err := openHistory()
				if err != nil {
					logger.Warn("run history disabled", "err", err)
				} else {
					defer history.Close()
					pusher.History = history
				}
			}

			_, err = pusher.Run(cmd.Context(), args[0])
			if code := push.ExitCode(err); code != 0 {
				return &exitError{code: code, err: err}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "覆盖配置中的 input.input_dir")
	cmd.Flags().IntVar(&maxConcurrency, "max-concurrency", 0, "同时推送的主机数上限，0 表示不限制")
	cmd.Flags().BoolVar(&insecure, "insecure", false, "不校验主机公钥（危险）")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "不记录本次运行")
	cmd.Flags().BoolVar(&strict, "strict", false, "任何主机或文件失败都返回非零退出码")

	return cmd
}

func newGroupsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "列出配置中的服务器组",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return &exitError{code: 1, err: err}
			}
			push.PrintGroups(opts.stdout, cfg)
			return nil
		},
	}
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "查看最近一次推送结果",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			history, err := openHistory()
			if err != nil {
				return &exitError{code: 1, err: err}
			}
			defer history.Close()

			runner := &push.StatusRunner{Output: opts.stdout, History: history}
			if err := runner.Run(); err != nil {
				return &exitError{code: 1, err: err}
			}
			return nil
		},
	}
}

func newVersionCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "显示版本信息",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(opts.stdout, "pftp %s\n", version)
			fmt.Fprintf(opts.stdout, "  commit: %s\n", commit)
			fmt.Fprintf(opts.stdout, "  built:  %s\n", date)
			fmt.Fprintf(opts.stdout, "  go:     %s\n", runtime.Version())
		},
	}
}

// run 执行命令并返回退出码
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd(stdout, stderr)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", ee.err)
		}
		return ee.code
	}
	// 参数/用法错误
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
