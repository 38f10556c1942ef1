// Package localfs implements C5's storage.Store against a LOCAL_FS
// stage: a plain directory on disk standing in for the remote catalog.
// It always attaches an sfc-digest to Head results (computed directly
// from the file on disk) so C4's skip filter can use the same
// digest-comparison path regardless of stage kind. List results carry
// only key and size.
package localfs

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gregakespret/sfagent/internal/cloud/storage"
	"github.com/gregakespret/sfagent/internal/staging"
	"github.com/gregakespret/sfagent/internal/util/buffers"
)

// Store roots every key under a directory on the local filesystem.
type Store struct {
	root string
}

// New creates the stage directory if missing and returns a Store rooted
// there.
func New(location string) (*Store, error) {
	if location == "" {
		return nil, fmt.Errorf("LOCAL_FS stage requires a location")
	}
	if err := os.MkdirAll(location, 0o755); err != nil {
		return nil, fmt.Errorf("creating LOCAL_FS stage directory: %w", err)
	}
	return &Store{root: location}, nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

// Put implements storage.Store.
func (s *Store) Put(ctx context.Context, in storage.PutInput) (int64, error) {
	dest := s.path(in.Key)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, err
	}
	if _, err := in.Body.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	f, err := os.Create(dest)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n, err := io.Copy(f, in.Body)
	if err != nil {
		return n, err
	}
	return n, nil
}

// Get implements storage.Store.
func (s *Store) Get(ctx context.Context, key string, dest io.WriterAt) (int64, error) {
	f, err := os.Open(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, &notFoundError{key: key}
		}
		return 0, err
	}
	defer f.Close()

	bufPtr := buffers.GetChunkBuffer()
	defer buffers.PutChunkBuffer(bufPtr)
	buf := *bufPtr

	var offset int64
	for {
		n, rerr := f.Read(buf)
		if n > 0 {
			if _, werr := dest.WriteAt(buf[:n], offset); werr != nil {
				return offset, werr
			}
			offset += int64(n)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return offset, rerr
		}
	}
	return offset, nil
}

// List implements storage.Store: every regular file under root whose
// slash-separated relative path starts with prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]storage.ObjectMetadata, error) {
	var out []storage.ObjectMetadata
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !strings.HasPrefix(rel, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, storage.ObjectMetadata{Key: rel, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Head implements storage.Store, computing sfc-digest on demand from
// the file on disk.
func (s *Store) Head(ctx context.Context, key string) (storage.ObjectMetadata, error) {
	path := s.path(key)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return storage.ObjectMetadata{}, &notFoundError{key: key}
		}
		return storage.ObjectMetadata{}, err
	}

	digest, err := staging.Digest(path, false)
	if err != nil {
		return storage.ObjectMetadata{}, err
	}

	return storage.ObjectMetadata{
		Key:          key,
		Size:         info.Size(),
		UserMetadata: map[string]string{"sfc-digest": digest},
	}, nil
}

// Shutdown implements storage.Store; nothing to release.
func (s *Store) Shutdown(ctx context.Context) error {
	return nil
}

type notFoundError struct{ key string }

func (e *notFoundError) Error() string {
	return fmt.Sprintf("object not found: %s", e.key)
}
