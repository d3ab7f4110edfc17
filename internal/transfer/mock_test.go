package transfer_test

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hwuu/pftp/internal/remote"
)

// memSession 内存中的 remote.Session，记录写入的文件内容和创建的目录
type memSession struct {
	mu    sync.Mutex
	files map[string][]byte
	dirs  map[string]bool

	OpenErr   map[string]error // 按远端路径注入打开失败
	MkdirErr  error
	WriteErr  error
	CloseErr  error
	OnOpen    func(remotePath string)
	Dead      bool // Alive 返回 false，模拟连接已断开
	closed    bool
	openCount int
	last      *memFile
}

func newMemSession() *memSession {
	return &memSession{
		files: make(map[string][]byte),
		dirs:  make(map[string]bool),
	}
}

func (s *memSession) OpenForWrite(remotePath string) (remote.RemoteFile, error) {
	if s.OnOpen != nil {
		s.OnOpen(remotePath)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openCount++
	if err := s.OpenErr[remotePath]; err != nil {
		return nil, err
	}
	s.files[remotePath] = nil
	s.last = &memFile{session: s, path: remotePath}
	return s.last, nil
}

func (s *memSession) MkdirAll(dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.MkdirErr != nil {
		return s.MkdirErr
	}
	s.dirs[dir] = true
	return nil
}

func (s *memSession) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && !s.Dead
}

func (s *memSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *memSession) file(path string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[path]
	return data, ok
}

type memFile struct {
	session *memSession
	path    string
	buf     bytes.Buffer
	writes  int
}

func (f *memFile) Write(p []byte) (int, error) {
	if f.session.WriteErr != nil {
		return 0, f.session.WriteErr
	}
	f.writes++
	return f.buf.Write(p)
}

func (f *memFile) Close() error {
	if f.session.CloseErr != nil {
		return f.session.CloseErr
	}
	f.session.mu.Lock()
	defer f.session.mu.Unlock()
	f.session.files[f.path] = append([]byte(nil), f.buf.Bytes()...)
	return nil
}

// writeTree 在 root 下按相对路径创建文件
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
}
