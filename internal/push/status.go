package push

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hwuu/pftp/internal/store"
)

// StatusRunner 输出最近一次推送的结果
type StatusRunner struct {
	Output  io.Writer
	History store.Store
}

func (s *StatusRunner) printf(format string, args ...interface{}) {
	fmt.Fprintf(s.Output, format, args...)
}

// Run 执行状态查询
func (s *StatusRunner) Run() error {
	run, err := s.History.LatestRun()
	if errors.Is(err, store.ErrNoRuns) {
		s.printf("还没有推送记录。请先运行 pftp push <group>\n")
		return nil
	}
	if err != nil {
		return err
	}

	s.printf("最近一次推送 #%d\n", run.ID)
	s.printf("─────────────────────────────────────────\n")
	s.printf("服务器组: %s\n", run.Group)
	s.printf("输入目录: %s\n", run.InputDir)
	s.printf("开始时间: %s\n", run.StartedAt.Local().Format(time.DateTime))
	s.printf("耗时:     %s\n", time.Duration(run.Duration)*time.Millisecond)
	s.printf("\n主机:\n")
	for _, h := range run.Hosts {
		switch {
		case h.Error != "":
			s.printf("  ✗ %-16s %-14s %s\n", h.Host, h.State, h.Error)
		case h.Failed > 0:
			s.printf("  ⚠ %-16s %-14s %d/%d 个文件失败\n", h.Host, h.State, h.Failed, h.Attempted)
		default:
			s.printf("  ✓ %-16s %-14s %d 个文件, %d 字节\n", h.Host, h.State, h.Attempted, h.Bytes)
		}
	}
	s.printf("─────────────────────────────────────────\n")
	return nil
}
