// Package store 保存每次推送的结果，供 pftp status 查询。
package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/hwuu/pftp/internal/transfer"
)

var (
	// ErrNoRuns 历史中还没有任何运行记录
	ErrNoRuns = errors.New("no runs recorded")
)

var (
	runsBucket = []byte("runs")
)

// HostRecord 单台主机的结果
type HostRecord struct {
	Host      string   `json:"host"`
	Address   string   `json:"address"`
	State     string   `json:"state"`
	Attempted int      `json:"attempted"`
	Failed    int      `json:"failed"`
	Bytes     int64    `json:"bytes"`
	NoFiles   bool     `json:"no_files,omitempty"`
	Error     string   `json:"error,omitempty"`
	Failures  []string `json:"failures,omitempty"`
	Skipped   []string `json:"skipped,omitempty"`
	Duration  int64    `json:"duration_ms"`
}

// RunRecord 一次 pftp push 的完整记录
type RunRecord struct {
	ID        uint64       `json:"id"`
	Group     string       `json:"group"`
	InputDir  string       `json:"input_dir"`
	StartedAt time.Time    `json:"started_at"`
	Duration  int64        `json:"duration_ms"`
	Hosts     []HostRecord `json:"hosts"`
}

// NewRunRecord 把本次运行的所有 HostOutcome 转为可持久化的记录
func NewRunRecord(group, inputDir string, startedAt time.Time, outcomes []transfer.HostOutcome) *RunRecord {
	run := &RunRecord{
		Group:     group,
		InputDir:  inputDir,
		StartedAt: startedAt.UTC(),
		Duration:  time.Since(startedAt).Milliseconds(),
		Hosts:     make([]HostRecord, 0, len(outcomes)),
	}
	for _, o := range outcomes {
		h := HostRecord{
			Host:      o.Host,
			Address:   o.Address,
			State:     string(o.State),
			Attempted: o.Attempted,
			Failed:    o.Failed,
			Bytes:     o.Bytes,
			NoFiles:   o.NoFiles,
			Duration:  o.Duration.Milliseconds(),
		}
		if o.Err != nil {
			h.Error = o.Err.Error()
		}
		for _, f := range o.Failures {
			h.Failures = append(h.Failures, fmt.Sprintf("%s: %v", f.LocalPath, f.Err))
		}
		for _, s := range o.Skipped {
			h.Skipped = append(h.Skipped, s.Path)
		}
		run.Hosts = append(run.Hosts, h)
	}
	return run
}

// Store 运行历史存储
type Store interface {
	SaveRun(run *RunRecord) error
	LatestRun() (*RunRecord, error)
	ListRuns(limit int) ([]*RunRecord, error)
	Close() error
}

// BoltStore 基于 bbolt 的 Store 实现，key 为自增序号（大端），天然按时间排序
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore 打开（或创建）path 处的数据库。
// 另一个 pftp 进程持有锁时等待至多 1 秒。
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(runsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create runs bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// SaveRun 保存一次运行，并回填 run.ID
func (s *BoltStore) SaveRun(run *RunRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(runsBucket)

		id, err := b.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to allocate run id: %w", err)
		}
		run.ID = id

		data, err := json.Marshal(run)
		if err != nil {
			return fmt.Errorf("failed to marshal run: %w", err)
		}

		if err := b.Put(itob(id), data); err != nil {
			return fmt.Errorf("failed to put run: %w", err)
		}
		return nil
	})
}

// LatestRun 返回最近一次运行
func (s *BoltStore) LatestRun() (*RunRecord, error) {
	runs, err := s.ListRuns(1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrNoRuns
	}
	return runs[0], nil
}

// ListRuns 按时间倒序返回至多 limit 条记录，limit <= 0 表示全部
func (s *BoltStore) ListRuns(limit int) ([]*RunRecord, error) {
	var runs []*RunRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(runsBucket).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(runs) >= limit {
				break
			}
			var run RunRecord
			if err := json.Unmarshal(v, &run); err != nil {
				return fmt.Errorf("failed to unmarshal run %d: %w", binary.BigEndian.Uint64(k), err)
			}
			runs = append(runs, &run)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// Close 关闭数据库
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
