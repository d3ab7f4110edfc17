package transfer

import (
	"sync"
)

// DefaultChunkSize 单次读写的块大小，内存占用与文件大小无关
const DefaultChunkSize = 1 * 1024 * 1024

// BufferPool 复用传输缓冲区，所有主机任务共享
type BufferPool struct {
	pool sync.Pool
}

// NewBufferPool 创建 BufferPool，size <= 0 时使用 DefaultChunkSize
func NewBufferPool(size int) *BufferPool {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return &BufferPool{
		pool: sync.Pool{
			New: func() any {
				b := make([]byte, size)
				return &b
			},
		},
	}
}

// Get 取出一个缓冲区，用完后必须 Put 归还
func (bp *BufferPool) Get() *[]byte {
	return bp.pool.Get().(*[]byte)
}

// Put 归还缓冲区，归还后不得再使用
func (bp *BufferPool) Put(b *[]byte) {
	if b != nil {
		bp.pool.Put(b)
	}
}
