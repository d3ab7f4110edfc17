package transfer

import (
	"context"
	"io"
	"os"
	"path"

	"github.com/hwuu/pftp/internal/remote"
)

// TransferOne 把单个本地文件写到远端：确保父目录存在 → 打开本地文件 →
// 以 create/truncate/write 打开远端文件 → 按块流式写入 → Close 提交。
// 任一步失败都返回 *FileError，不影响同一主机上的其它文件。
// ctx 在每个块之间检查，用于取消和单文件超时。
func TransferOne(ctx context.Context, session remote.Session, localPath, remotePath string, buffers *BufferPool) (int64, error) {
	fail := func(op string, err error) (int64, error) {
		return 0, &FileError{Op: op, LocalPath: localPath, RemotePath: remotePath, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return fail("open", err)
	}

	if dir := path.Dir(remotePath); dir != "/" && dir != "." {
		if err := session.MkdirAll(dir); err != nil {
			return fail("mkdir", err)
		}
	}

	local, err := os.Open(localPath)
	if err != nil {
		return fail("read", err)
	}
	defer local.Close()

	remoteFile, err := session.OpenForWrite(remotePath)
	if err != nil {
		return fail("open", err)
	}

	if buffers == nil {
		buffers = NewBufferPool(0)
	}
	buf := buffers.Get()
	defer buffers.Put(buf)

	written, op, err := copyChunks(ctx, remoteFile, local, *buf)
	if err != nil {
		_ = remoteFile.Close()
		return written, &FileError{Op: op, LocalPath: localPath, RemotePath: remotePath, Err: err}
	}

	if err := remoteFile.Close(); err != nil {
		return written, &FileError{Op: "flush", LocalPath: localPath, RemotePath: remotePath, Err: err}
	}
	return written, nil
}

// copyChunks 按 buf 大小分块复制，出错时返回失败的操作名
func copyChunks(ctx context.Context, dst io.Writer, src io.Reader, buf []byte) (int64, string, error) {
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, "write", err
		}

		nr, rerr := src.Read(buf)
		if nr > 0 {
			nw, werr := dst.Write(buf[:nr])
			written += int64(nw)
			if werr != nil {
				return written, "write", werr
			}
			if nw != nr {
				return written, "write", io.ErrShortWrite
			}
		}
		if rerr == io.EOF {
			return written, "", nil
		}
		if rerr != nil {
			return written, "read", rerr
		}
	}
}
