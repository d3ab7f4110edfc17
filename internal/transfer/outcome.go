package transfer

import (
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
)

var (
	ErrAllHostsFailed = errors.New("all hosts failed")
	ErrPartialFailure = errors.New("some hosts or files failed")
	ErrInternal       = errors.New("internal task failure")
	ErrSessionLost    = errors.New("session lost")
)

// State 单台主机传输任务的状态：
// Pending → Connecting → {Connected → Transferring → Completed} | ConnectFailed
type State string

const (
	StatePending       State = "Pending"
	StateConnecting    State = "Connecting"
	StateConnected     State = "Connected"
	StateTransferring  State = "Transferring"
	StateCompleted     State = "Completed"
	StateConnectFailed State = "ConnectFailed"
	StateFailed        State = "Failed" // 任务自身异常（panic 等）
)

// Terminal 是否为终止状态
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateConnectFailed || s == StateFailed
}

// FileEntry 枚举得到的本地文件（绝对路径）
type FileEntry struct {
	Path string
}

// SkippedDir 枚举时因读取失败而跳过的子树
type SkippedDir struct {
	Path string
	Err  error
}

// FileError 单个文件传输失败，只影响该文件
type FileError struct {
	Op         string // mkdir / open / read / write / flush
	LocalPath  string
	RemotePath string
	Err        error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s -> %s: %v", e.Op, e.LocalPath, e.RemotePath, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// FileFailure 记录在 HostOutcome 中的单文件失败详情
type FileFailure struct {
	LocalPath  string
	RemotePath string
	Err        error
}

// HostOutcome 单台主机任务的最终结果，任务结束时创建，之后不再修改
type HostOutcome struct {
	Host      string
	Address   string
	State     State
	Connected bool
	Attempted int
	Failed    int
	Bytes     int64
	NoFiles   bool  // 输入目录下没有任何文件（不算失败）
	Err       error // 连接失败或任务异常
	Failures  []FileFailure
	Skipped   []SkippedDir
	StartedAt time.Time
	Duration  time.Duration
}

// Succeeded 已连接且没有文件失败
func (o HostOutcome) Succeeded() bool {
	return o.Connected && o.Err == nil && o.Failed == 0
}

// FileErrors 合并所有单文件失败，没有失败时返回 nil
func (o HostOutcome) FileErrors() error {
	var result *multierror.Error
	for _, f := range o.Failures {
		result = multierror.Append(result, fmt.Errorf("%s -> %s: %w", f.LocalPath, f.RemotePath, f.Err))
	}
	return result.ErrorOrNil()
}

// Error 汇总该主机的所有错误（连接错误 + 文件错误）
func (o HostOutcome) Error() error {
	if o.Err != nil {
		return fmt.Errorf("%s: %w", o.Host, o.Err)
	}
	if err := o.FileErrors(); err != nil {
		return fmt.Errorf("%s: %d of %d files failed: %w", o.Host, o.Failed, o.Attempted, err)
	}
	return nil
}

// Summary 一次运行的汇总统计
type Summary struct {
	Hosts         int
	Connected     int
	ConnectFailed int
	Attempted     int
	FilesFailed   int
	Bytes         int64
}

// AllFailed 没有任何主机连接成功
func (s Summary) AllFailed() bool {
	return s.Hosts > 0 && s.Connected == 0
}

// Clean 所有主机连接成功且没有文件失败
func (s Summary) Clean() bool {
	return s.Connected == s.Hosts && s.FilesFailed == 0
}

// Summarize 统计所有主机结果
func Summarize(outcomes []HostOutcome) Summary {
	s := Summary{Hosts: len(outcomes)}
	for _, o := range outcomes {
		if o.Connected {
			s.Connected++
		} else {
			s.ConnectFailed++
		}
		s.Attempted += o.Attempted
		s.FilesFailed += o.Failed
		s.Bytes += o.Bytes
	}
	return s
}

// CombinedError 合并所有主机的错误，全部成功时返回 nil
func CombinedError(outcomes []HostOutcome) error {
	var result *multierror.Error
	for _, o := range outcomes {
		if err := o.Error(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
