package transfer

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/hwuu/pftp/internal/config"
	"github.com/hwuu/pftp/internal/remote"
)

// DialFactory 为每个目标主机构造独立的 DialFunc
type DialFactory func(target config.HostTarget) (remote.DialFunc, error)

// Orchestrator 并发驱动所有主机任务并收集结果
type Orchestrator struct {
	Dialer DialFactory
	// MaxConcurrency 同时运行的主机任务上限，0 表示每台主机一个并发
	MaxConcurrency int
	Options        JobOptions
	Logger         *log.Logger
}

func (o *Orchestrator) logger() *log.Logger {
	if o.Logger == nil {
		return log.New(io.Discard)
	}
	return o.Logger
}

// Run 为每个目标启动一个主机任务并等待全部结束。
// 单个任务失败（连接失败、panic）只体现在它自己的 HostOutcome 中，
// 不会取消或影响其它任务。返回的结果与 targets 顺序一致。
func (o *Orchestrator) Run(ctx context.Context, targets []config.HostTarget, inputRoot string) []HostOutcome {
	outcomes := make([]HostOutcome, len(targets))
	if len(targets) == 0 {
		return outcomes
	}

	opts := o.Options
	opts.InputRoot = inputRoot
	if opts.Buffers == nil {
		opts.Buffers = NewBufferPool(0)
	}

	limit := o.MaxConcurrency
	if limit <= 0 || limit > len(targets) {
		limit = len(targets)
	}
	sem := make(chan struct{}, limit)

	var wg sync.WaitGroup
	for i, target := range targets {
		sem <- struct{}{}
		wg.Add(1)

		go func(i int, target config.HostTarget) {
			defer func() {
				<-sem
				wg.Done()
			}()
			defer func() {
				if r := recover(); r != nil {
					err := fmt.Errorf("%w: %v", ErrInternal, r)
					o.logger().Error("task error", "host", target.Name, "err", err)
					outcomes[i] = HostOutcome{
						Host:    target.Name,
						Address: target.Address,
						State:   StateFailed,
						Err:     err,
					}
				}
			}()

			outcomes[i] = o.runOne(ctx, target, opts)
		}(i, target)
	}

	wg.Wait()
	return outcomes
}

func (o *Orchestrator) runOne(ctx context.Context, target config.HostTarget, opts JobOptions) HostOutcome {
	var dial remote.DialFunc
	if o.Dialer != nil {
		d, err := o.Dialer(target)
		if err != nil {
			dial = func(context.Context) (remote.Session, error) { return nil, err }
		} else {
			dial = d
		}
	}
	return NewHostJob(target, dial, opts, o.Logger).Run(ctx)
}
