package remote

import (
	"io"
)

// RemoteFile 远端可写文件。SFTP 没有单独的 flush 操作，Close 即提交点。
type RemoteFile interface {
	io.Writer
	Close() error
}

// Session 抽象单台主机上的一条 SSH 连接 + 一个 SFTP 子系统通道，支持 mock 测试。
// 一个 Session 只属于一个主机任务，不在任务之间共享。
type Session interface {
	// OpenForWrite 以 create + truncate + write + read 方式打开远端文件
	OpenForWrite(remotePath string) (RemoteFile, error)
	// MkdirAll 递归创建远端目录，已存在时不报错
	MkdirAll(dir string) error
	// Alive 判断底层连接是否仍然可用
	Alive() bool
	Close() error
}
