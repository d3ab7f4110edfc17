package transfer_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hwuu/pftp/internal/transfer"
)

func TestTransferOne(t *testing.T) {
	dir := t.TempDir()
	content := strings.Repeat("0123456789", 1000)
	writeTree(t, dir, map[string]string{"a.txt": content})

	session := newMemSession()
	n, err := transfer.TransferOne(context.Background(), session, filepath.Join(dir, "a.txt"), "/out/sub/a.txt", transfer.NewBufferPool(64))
	require.NoError(t, err)
	assert.EqualValues(t, len(content), n)

	got, ok := session.file("/out/sub/a.txt")
	require.True(t, ok)
	assert.Equal(t, content, string(got))
	assert.True(t, session.dirs["/out/sub"])
}

func TestTransferOne_Chunked(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"a.bin": strings.Repeat("x", 1000)})

	session := newMemSession()
	n, err := transfer.TransferOne(context.Background(), session, filepath.Join(dir, "a.bin"), "/a.bin", transfer.NewBufferPool(100))
	require.NoError(t, err)
	assert.EqualValues(t, 1000, n)
	require.NotNil(t, session.last)
	assert.Equal(t, 10, session.last.writes, "1000 bytes in 100-byte chunks")
}

func TestTransferOne_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"empty": ""})

	session := newMemSession()
	n, err := transfer.TransferOne(context.Background(), session, filepath.Join(dir, "empty"), "/empty", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	got, ok := session.file("/empty")
	assert.True(t, ok)
	assert.Empty(t, got)
	assert.Empty(t, session.dirs, "no mkdir for files directly under /")
}

func TestTransferOne_Failures(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"a.txt": "hello"})
	local := filepath.Join(dir, "a.txt")
	boom := errors.New("boom")

	tests := []struct {
		name   string
		local  string
		setup  func(s *memSession)
		wantOp string
	}{
		{"mkdir", local, func(s *memSession) { s.MkdirErr = boom }, "mkdir"},
		{"open remote", local, func(s *memSession) { s.OpenErr = map[string]error{"/out/a.txt": boom} }, "open"},
		{"write", local, func(s *memSession) { s.WriteErr = boom }, "write"},
		{"flush", local, func(s *memSession) { s.CloseErr = boom }, "flush"},
		{"missing local", filepath.Join(dir, "missing.txt"), func(s *memSession) {}, "read"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := newMemSession()
			tt.setup(session)

			_, err := transfer.TransferOne(context.Background(), session, tt.local, "/out/a.txt", nil)
			require.Error(t, err)

			var fe *transfer.FileError
			require.True(t, errors.As(err, &fe), "expected *FileError, got %T", err)
			assert.Equal(t, tt.wantOp, fe.Op)
			assert.Equal(t, tt.local, fe.LocalPath)
			assert.Equal(t, "/out/a.txt", fe.RemotePath)
		})
	}
}

func TestTransferOne_MissingLocalDoesNotTruncateRemote(t *testing.T) {
	session := newMemSession()
	_, err := transfer.TransferOne(context.Background(), session, filepath.Join(t.TempDir(), "gone"), "/out/a.txt", nil)
	require.Error(t, err)
	assert.Zero(t, session.openCount)
}

func TestTransferOne_Cancelled(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"a.txt": "hello"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := transfer.TransferOne(ctx, newMemSession(), filepath.Join(dir, "a.txt"), "/a.txt", nil)
	assert.True(t, errors.Is(err, context.Canceled))
}
