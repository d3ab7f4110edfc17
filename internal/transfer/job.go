package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/hwuu/pftp/internal/config"
	"github.com/hwuu/pftp/internal/remote"
)

// JobOptions 所有主机任务共用的传输参数
type JobOptions struct {
	InputRoot    string
	Enumerate    EnumerateOptions
	SkipPolicy   SkipPolicy
	ConnectRetry remote.RetryOptions
	FileRetry    remote.RetryOptions // Retries 为 0 时单文件失败不重试
	FileTimeout  time.Duration       // 0 表示不限制
	Buffers      *BufferPool
}

// HostJob 单台主机的传输任务：连接 → 枚举一次 → 逐个文件顺序传输。
// 连接失败直接进入 ConnectFailed；单文件失败只计数，不提前结束。
type HostJob struct {
	Target  config.HostTarget
	Dial    remote.DialFunc
	Options JobOptions
	Logger  *log.Logger

	mu    sync.Mutex
	state State
}

// NewHostJob 创建处于 Pending 状态的任务
func NewHostJob(target config.HostTarget, dial remote.DialFunc, opts JobOptions, logger *log.Logger) *HostJob {
	return &HostJob{
		Target:  target,
		Dial:    dial,
		Options: opts,
		Logger:  logger,
		state:   StatePending,
	}
}

// State 返回任务当前状态
func (j *HostJob) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state == "" {
		return StatePending
	}
	return j.state
}

func (j *HostJob) setState(s State) {
	j.mu.Lock()
	j.state = s
	j.mu.Unlock()
}

func (j *HostJob) logger() *log.Logger {
	if j.Logger == nil {
		return log.New(io.Discard)
	}
	return j.Logger
}

// Run 执行任务直到终止状态，返回该主机的 HostOutcome
func (j *HostJob) Run(ctx context.Context) HostOutcome {
	out := HostOutcome{
		Host:      j.Target.Name,
		Address:   j.Target.Address,
		StartedAt: time.Now(),
	}
	logger := j.logger().With("host", j.Target.Name)

	finish := func(s State) HostOutcome {
		j.setState(s)
		out.State = s
		out.Duration = time.Since(out.StartedAt)
		return out
	}

	j.setState(StateConnecting)
	if j.Dial == nil {
		out.Err = errors.New("no dialer configured")
		logger.Error("failed to connect to server", "addr", j.Target.Address, "err", out.Err)
		return finish(StateConnectFailed)
	}
	session, err := remote.Connect(ctx, j.Dial, j.Options.ConnectRetry)
	if err != nil {
		out.Err = err
		logger.Error("failed to connect to server", "addr", j.Target.Address, "err", err)
		return finish(StateConnectFailed)
	}
	defer session.Close()

	out.Connected = true
	j.setState(StateConnected)
	logger.Info("connected to server", "addr", j.Target.Address)

	entries, skipped := Enumerate(j.Options.InputRoot, j.Options.Enumerate)
	for _, s := range skipped {
		if j.Options.SkipPolicy == SkipSilent {
			logger.Debug("skipped unreadable path", "path", s.Path, "err", s.Err)
			continue
		}
		logger.Warn("skipped unreadable path", "path", s.Path, "err", s.Err)
		out.Skipped = append(out.Skipped, s)
	}
	if len(entries) == 0 {
		out.NoFiles = true
		logger.Warn("no files found in input directory", "input", j.Options.InputRoot)
	}

	j.setState(StateTransferring)
	for _, entry := range entries {
		remotePath := MapPath(entry.Path, j.Options.InputRoot, j.Target.OutputDir)
		out.Attempted++

		n, err := j.transferFile(ctx, session, entry.Path, remotePath)
		out.Bytes += n
		if err != nil {
			out.Failed++
			out.Failures = append(out.Failures, FileFailure{
				LocalPath:  entry.Path,
				RemotePath: remotePath,
				Err:        err,
			})
			logger.Error("error copying file", "file", entry.Path, "remote", remotePath, "err", err)
			continue
		}
		logger.Debug("copied file", "file", entry.Path, "remote", remotePath, "bytes", n)
	}

	logger.Info("finished copying files", "attempted", out.Attempted, "failed", out.Failed, "bytes", out.Bytes)
	return finish(StateCompleted)
}

// transferFile 带超时和可选重试地传输单个文件
func (j *HostJob) transferFile(ctx context.Context, session remote.Session, localPath, remotePath string) (int64, error) {
	retry := j.Options.FileRetry
	interval := retry.InitialInterval
	if interval == 0 {
		interval = remote.DefaultInitialInterval
	}
	maxInterval := retry.MaxInterval
	if maxInterval == 0 {
		maxInterval = remote.DefaultMaxInterval
	}

	for attempt := 0; ; attempt++ {
		n, err := j.transferOnce(ctx, session, localPath, remotePath)
		if err == nil || attempt >= retry.Retries || ctx.Err() != nil {
			return n, err
		}
		// 连接已断开时重试没有意义
		if !session.Alive() {
			return n, fmt.Errorf("%w: %w", ErrSessionLost, err)
		}

		j.logger().Warn("retrying file", "host", j.Target.Name, "file", localPath, "attempt", attempt+1, "err", err)
		select {
		case <-ctx.Done():
			return n, err
		case <-time.After(interval):
			interval = interval * 2
			if interval > maxInterval {
				interval = maxInterval
			}
		}
	}
}

func (j *HostJob) transferOnce(ctx context.Context, session remote.Session, localPath, remotePath string) (int64, error) {
	if j.Options.FileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Options.FileTimeout)
		defer cancel()
	}
	return TransferOne(ctx, session, localPath, remotePath, j.Options.Buffers)
}
