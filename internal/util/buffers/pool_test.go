package buffers

import (
	"testing"

	"github.com/gregakespret/sfagent/internal/constants"
)

func TestGetChunkBufferSize(t *testing.T) {
	buf := GetChunkBuffer()
	defer PutChunkBuffer(buf)

	if len(*buf) != constants.ChunkSize {
		t.Fatalf("expected buffer of size %d, got %d", constants.ChunkSize, len(*buf))
	}
}

func TestPutChunkBufferClears(t *testing.T) {
	buf := GetChunkBuffer()
	(*buf)[0] = 0xFF
	PutChunkBuffer(buf)

	reused := GetChunkBuffer()
	defer PutChunkBuffer(reused)
	if (*reused)[0] != 0 {
		t.Fatalf("expected buffer to be cleared before reuse, got byte %x", (*reused)[0])
	}
}

func TestPutChunkBufferIgnoresWrongSize(t *testing.T) {
	wrong := make([]byte, 1024)
	// Should not panic and should not be pooled.
	PutChunkBuffer(&wrong)
}
