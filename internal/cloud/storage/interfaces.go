// Package storage defines the capability surface C5 (the object-store
// adapter) exposes to the worker pool, plus the error classification
// helpers shared across backends. Spec §1 names this surface as an
// external collaborator; this package is the thin façade the core
// depends on, with concrete S3 and LOCAL_FS implementations living in
// sibling packages (internal/cloud/providers/s3, internal/cloud/providers/localfs).
package storage

import (
	"context"
	"io"
)

// ObjectMetadata is what Head/List return about a remote object: its
// size, its ETag (used for the MD5-fallback skip check), and whatever
// user metadata it carries (sfc-digest, x-amz-matdesc).
type ObjectMetadata struct {
	Key          string
	Size         int64
	ETag         string
	UserMetadata map[string]string
	// Encrypted is true when the object carries matdesc metadata
	// indicating client-side envelope encryption.
	Encrypted bool
}

// PutInput is everything C5.Put needs to stream one object up.
type PutInput struct {
	Key    string
	Body   io.ReadSeeker
	Size   int64
	// UserMetadata is attached verbatim; sfc-digest lives here when computed.
	UserMetadata map[string]string
	// ContentEncoding is the lowercased codec name when the
	// destination is compressed.
	ContentEncoding string
	// InnerParallel bounds intra-object parallelism: >1 during the
	// big-file phase, 1 during the small-file phase.
	InnerParallel int
}

// Store is the capability surface C5 names: put, get, list,
// head, shutdown. A single Store instance is shared across workers and
// must be safe for concurrent use; RenewCredentials atomically swaps
// the backing client without affecting in-flight callers' references
// to this Store value.
type Store interface {
	Put(ctx context.Context, in PutInput) (uploadedBytes int64, err error)
	Get(ctx context.Context, key string, dest io.WriterAt) (size int64, err error)
	List(ctx context.Context, prefix string) ([]ObjectMetadata, error)
	Head(ctx context.Context, key string) (ObjectMetadata, error)
	Shutdown(ctx context.Context) error
}

// CredentialRenewer rebuilds a Store's backing client from freshly
// fetched credentials after an ExpiredToken response; the renewal
// itself does not retry the failed call.
type CredentialRenewer interface {
	RenewCredentials(ctx context.Context) error
}
