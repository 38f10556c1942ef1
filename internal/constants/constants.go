// Package constants holds the thresholds fixed as part of the
// wire contract between the agent and the object store.
package constants

import "time"

const (
	// MaxBuffer is the in-memory staging ceiling before C3 spills to a
	// temp file (128 MiB).
	MaxBuffer = 128 * 1024 * 1024

	// BigFileThreshold partitions C6's dispatch into the big-file and
	// small-file phases (16 MiB).
	BigFileThreshold = 16 * 1024 * 1024

	// ChunkSize is the buffer-pool granularity used by C3's gzip read
	// loop and the LOCAL_FS Get copy loop.
	ChunkSize = 16 * 1024 * 1024

	// ClientSideMaxRetries is C5's outer retry budget.
	ClientSideMaxRetries = 25

	// S3TransferMaxRetries is the SDK-level retry count composed
	// underneath the outer budget for multipart operations.
	S3TransferMaxRetries = 3

	// DefaultParallel is the small-file phase worker count when the
	// plan and config both leave it unset.
	DefaultParallel = 10

	// SkipFilterSizeToleranceBytes is the uncompressed-size slop the
	// skip filter allows before it stops considering a remote object a
	// candidate match. The exact intent behind 16 is not documented
	// upstream, so it is carried as a named constant rather than
	// re-derived.
	SkipFilterSizeToleranceBytes = 16

	// BackoffBase and BackoffExponentCap parameterize C5's retry
	// backoff: sleep = BackoffBase * 2^min(attempt-1, BackoffExponentCap).
	BackoffBase        = 1000 * time.Millisecond
	BackoffExponentCap = 4
	BackoffCap         = 16 * time.Second

	// DiskSpaceBufferPercent is the safety margin C3's preflight check
	// requires beyond the staged byte count before spilling to disk.
	DiskSpaceBufferPercent = 0.15
)
