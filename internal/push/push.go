// Package push 串联一次完整的推送：解析服务器组 → 并发传输 → 汇总输出 → 记录历史。
package push

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/hwuu/pftp/internal/alicloud"
	"github.com/hwuu/pftp/internal/config"
	"github.com/hwuu/pftp/internal/remote"
	"github.com/hwuu/pftp/internal/store"
	"github.com/hwuu/pftp/internal/transfer"
)

// CloudClientFactory 按区域创建阿里云客户端
type CloudClientFactory func(region string) (alicloud.ClientInterface, error)

// Pusher 推送编排器，通过依赖注入支持测试
type Pusher struct {
	Config       *config.Config
	Credential   *config.Credential
	Output       io.Writer
	Logger       *log.Logger
	Dialer       transfer.DialFactory // 为空时按 security 配置建立真实 SFTP 连接
	CloudClients CloudClientFactory   // 为空时从环境变量/凭证文件创建
	History      store.Store          // 为空时不记录历史
	Strict       bool                 // 任何主机或文件失败都返回 ErrPartialFailure
}

func (p *Pusher) printf(format string, args ...interface{}) {
	if p.Output == nil {
		return
	}
	fmt.Fprintf(p.Output, format, args...)
}

func (p *Pusher) logger() *log.Logger {
	if p.Logger == nil {
		return log.New(io.Discard)
	}
	return p.Logger
}

// Run 把 input_dir 推送到 group 中的所有主机。
// 解析失败时不做任何主机操作直接返回错误；
// 所有主机都连接失败时返回 transfer.ErrAllHostsFailed，其余情况返回 nil，
// 单文件失败只体现在 HostOutcome 中。
func (p *Pusher) Run(ctx context.Context, group string) ([]transfer.HostOutcome, error) {
	inputDir, err := p.inputDir()
	if err != nil {
		return nil, err
	}

	p.printf("[1/3] 解析服务器组 %s...\n", group)
	targets, err := p.Resolve(ctx, group)
	if err != nil {
		return nil, err
	}
	for _, t := range targets {
		p.printf("  ✓ %s (%s) → %s\n", t.Name, t.Address, t.OutputDir)
	}

	dialer, err := p.dialer()
	if err != nil {
		return nil, err
	}

	p.printf("\n[2/3] 推送 %s 到 %d 台主机...\n", inputDir, len(targets))
	startedAt := time.Now()
	orch := &transfer.Orchestrator{
		Dialer:         dialer,
		MaxConcurrency: p.Config.Transfer.MaxConcurrency,
		Options:        JobOptions(p.Config),
		Logger:         p.Logger,
	}
	outcomes := orch.Run(ctx, targets, inputDir)

	p.printf("\n[3/3] 结果:\n")
	p.printOutcomes(outcomes)
	p.record(group, inputDir, startedAt, outcomes)

	summary := transfer.Summarize(outcomes)
	if summary.AllFailed() {
		return outcomes, fmt.Errorf("%w: %w", transfer.ErrAllHostsFailed, transfer.CombinedError(outcomes))
	}
	if p.Strict && !summary.Clean() {
		return outcomes, fmt.Errorf("%w: %w", transfer.ErrPartialFailure, transfer.CombinedError(outcomes))
	}
	return outcomes, nil
}

// Resolve 把组名解析为目标主机，云组优先按 cloud_groups 解析
func (p *Pusher) Resolve(ctx context.Context, group string) ([]config.HostTarget, error) {
	if p.Credential.Empty() {
		return nil, config.ErrMissingCredential
	}

	cg, ok := p.Config.CloudGroup(group)
	if !ok {
		return p.Config.Resolve(group, p.Credential)
	}

	factory := p.CloudClients
	if factory == nil {
		factory = DefaultCloudClients
	}
	clients, err := factory(cg.Region)
	if err != nil {
		return nil, err
	}
	return alicloud.ResolveCloudGroup(clients, p.Config, group, cg, p.Credential)
}

// DefaultCloudClients 使用环境变量或 ~/.pftp/alicloud 中的凭证创建客户端
func DefaultCloudClients(region string) (alicloud.ClientInterface, error) {
	cfg, err := alicloud.LoadConfig(region)
	if err != nil {
		return nil, err
	}
	clients, err := alicloud.NewClients(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create alicloud clients: %w", err)
	}
	return clients, nil
}

// JobOptions 把配置转换为主机任务参数
func JobOptions(cfg *config.Config) transfer.JobOptions {
	t := cfg.Transfer
	policy, _ := transfer.ParseSkipPolicy(t.SkipPolicy)
	return transfer.JobOptions{
		Enumerate:  transfer.EnumerateOptions{FollowSymlinks: t.FollowSymlinks},
		SkipPolicy: policy,
		ConnectRetry: remote.RetryOptions{
			Retries:         t.ConnectRetries,
			InitialInterval: t.RetryInitialInterval,
			MaxInterval:     t.RetryMaxInterval,
		},
		FileRetry: remote.RetryOptions{
			Retries:         t.FileRetries,
			InitialInterval: t.RetryInitialInterval,
			MaxInterval:     t.RetryMaxInterval,
		},
		FileTimeout: t.FileTimeout,
		Buffers:     transfer.NewBufferPool(t.BufferSize),
	}
}

func (p *Pusher) inputDir() (string, error) {
	dir, err := config.ExpandHome(p.Config.Input.InputDir)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("invalid input_dir %s: %w", dir, err)
	}
	return abs, nil
}

func (p *Pusher) dialer() (transfer.DialFactory, error) {
	if p.Dialer != nil {
		return p.Dialer, nil
	}
	knownHosts, err := config.ExpandHome(p.Config.Security.KnownHosts)
	if err != nil {
		return nil, err
	}
	return transfer.SFTPDialer(transfer.DialerOptions{
		HostKey: remote.HostKeyOptions{
			Insecure:       p.Config.Security.InsecureIgnoreHostKey,
			KnownHostsPath: knownHosts,
		},
		Timeout: p.Config.Transfer.ConnectTimeout,
	}), nil
}

func (p *Pusher) printOutcomes(outcomes []transfer.HostOutcome) {
	for _, o := range outcomes {
		switch {
		case !o.Connected:
			p.printf("  ✗ %-16s %-14s %v\n", o.Host, o.State, o.Err)
		case o.NoFiles:
			p.printf("  ⚠ %-16s %-14s 输入目录为空\n", o.Host, o.State)
		case o.Failed > 0:
			p.printf("  ⚠ %-16s %-14s %d/%d 个文件失败\n", o.Host, o.State, o.Failed, o.Attempted)
			for _, f := range o.Failures {
				p.printf("      %s: %v\n", f.LocalPath, f.Err)
			}
		default:
			p.printf("  ✓ %-16s %-14s %d 个文件, %d 字节, %s\n", o.Host, o.State, o.Attempted, o.Bytes, o.Duration.Round(time.Millisecond))
		}
		for _, s := range o.Skipped {
			p.printf("      跳过 %s: %v\n", s.Path, s.Err)
		}
	}

	s := transfer.Summarize(outcomes)
	p.printf("\n主机: %d 成功连接, %d 连接失败; 文件: %d 尝试, %d 失败\n",
		s.Connected, s.ConnectFailed, s.Attempted, s.FilesFailed)
}

func (p *Pusher) record(group, inputDir string, startedAt time.Time, outcomes []transfer.HostOutcome) {
	if p.History == nil {
		return
	}
	if err := p.History.SaveRun(store.NewRunRecord(group, inputDir, startedAt, outcomes)); err != nil {
		p.logger().Warn("failed to save run history", "err", err)
	}
}

// ExitCode 把 Run 返回的错误映射为进程退出码：
// 0 至少一台主机连接成功；1 配置/解析错误；2 全部连接失败；3 strict 模式下有失败
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, transfer.ErrAllHostsFailed):
		return 2
	case errors.Is(err, transfer.ErrPartialFailure):
		return 3
	}
	return 1
}
