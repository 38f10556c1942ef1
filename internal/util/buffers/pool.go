// Package buffers provides reusable byte buffers for C3's gzip read
// loop (staging.stageCompressed) and the LOCAL_FS Get copy loop,
// cutting GC pressure from repeatedly allocating MiB-sized buffers per
// chunk.
package buffers

import (
	"sync"

	"github.com/gregakespret/sfagent/internal/constants"
)

var chunkPool = &sync.Pool{
	New: func() interface{} {
		buf := make([]byte, constants.ChunkSize)
		return &buf
	},
}

// GetChunkBuffer retrieves a ChunkSize buffer from the pool. The
// buffer must be returned with PutChunkBuffer when done.
func GetChunkBuffer() *[]byte {
	return chunkPool.Get().(*[]byte)
}

// PutChunkBuffer returns a buffer to the pool for reuse. Only buffers
// of the correct size are pooled; the buffer is cleared first so
// staged file bytes don't persist across unrelated transfers.
func PutChunkBuffer(buf *[]byte) {
	if buf != nil && len(*buf) == constants.ChunkSize {
		clear(*buf)
		chunkPool.Put(buf)
	}
}
