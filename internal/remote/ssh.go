package remote

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrConnect                 = errors.New("connect failed")
	ErrConnectRetriesExhausted = errors.New("connect retries exhausted")
)

const (
	DefaultInitialInterval = 1 * time.Second
	DefaultMaxInterval     = 10 * time.Second
	DefaultConnectTimeout  = 10 * time.Second
)

// DialFunc 用于建立 Session 的函数类型
type DialFunc func(ctx context.Context) (Session, error)

// RetryOptions 配置 Connect 的重试参数。Retries 为 0 时不重试。
type RetryOptions struct {
	Retries         int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func (o *RetryOptions) withDefaults() {
	if o.InitialInterval == 0 {
		o.InitialInterval = DefaultInitialInterval
	}
	if o.MaxInterval == 0 {
		o.MaxInterval = DefaultMaxInterval
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
}

// Connect 建立会话。默认首次失败即返回；配置了 Retries 时使用指数退避重试，
// 直到成功、重试次数用尽或 ctx 取消。
func Connect(ctx context.Context, dial DialFunc, opts RetryOptions) (Session, error) {
	opts.withDefaults()

	interval := opts.InitialInterval
	var lastErr error

	for attempt := 0; ; attempt++ {
		session, err := dial(ctx)
		if err == nil {
			return session, nil
		}
		lastErr = err

		if attempt >= opts.Retries {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: last error: %v", ctx.Err(), lastErr)
		case <-time.After(interval):
			// 指数退避，不超过 MaxInterval
			interval = interval * 2
			if interval > opts.MaxInterval {
				interval = opts.MaxInterval
			}
		}
	}

	if opts.Retries > 0 {
		return nil, fmt.Errorf("%w after %d attempts: %w", ErrConnectRetriesExhausted, opts.Retries+1, lastErr)
	}
	return nil, lastErr
}
