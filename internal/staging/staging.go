// Package staging implements C3: turning an input byte stream into
// exactly the bytes that will be sent to the object store, bounded in
// memory with disk spill, with an optional SHA-256 digest over the
// staged bytes.
package staging

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gregakespret/sfagent/internal/constants"
	"github.com/gregakespret/sfagent/internal/diskspace"
	"github.com/gregakespret/sfagent/internal/util/buffers"
)

// Stream is the staged result C6 hands to C5.Put. It is owned
// exclusively by the worker that produced it and must be released on
// every exit path via Close.
type Stream struct {
	ByteCount    int64
	Base64Digest string // empty when no digest was requested

	buf       *bytes.Buffer // non-nil while staged in memory
	spillPath string        // non-empty once spilled to disk
}

// Open returns a fresh, independently-seeked reader over the staged
// bytes, so retries can re-read the body from the start without
// re-running compression or digesting.
func (s *Stream) Open() (io.ReadSeeker, error) {
	if s.spillPath != "" {
		f, err := os.Open(s.spillPath)
		if err != nil {
			return nil, fmt.Errorf("reopening spilled stage file: %w", err)
		}
		return f, nil
	}
	return bytes.NewReader(s.buf.Bytes()), nil
}

// Close removes the temp file backing a spilled stream, if any. Safe
// to call multiple times and on a Stream staged entirely in memory.
func (s *Stream) Close() error {
	if s.spillPath == "" {
		return nil
	}
	path := s.spillPath
	s.spillPath = ""
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// spillWriter is an io.Writer that buffers up to constants.MaxBuffer
// bytes in memory, then transparently spills the remainder (plus
// everything already buffered) to a temp file.
type spillWriter struct {
	buf      *bytes.Buffer
	file     *os.File
	spilled  bool
	fileName string
}

func newSpillWriter() *spillWriter {
	return &spillWriter{buf: &bytes.Buffer{}}
}

func (w *spillWriter) Write(p []byte) (int, error) {
	if !w.spilled && w.buf.Len()+len(p) <= constants.MaxBuffer {
		return w.buf.Write(p)
	}
	if !w.spilled {
		probePath := filepath.Join(os.TempDir(), "sfagent-stage-probe")
		if err := diskspace.CheckAvailableSpace(probePath, int64(w.buf.Len()+len(p)), 1+constants.DiskSpaceBufferPercent); err != nil {
			return 0, err
		}
		f, err := os.CreateTemp("", "sfagent-stage-*.tmp")
		if err != nil {
			return 0, fmt.Errorf("creating spill file: %w", err)
		}
		if _, err := f.Write(w.buf.Bytes()); err != nil {
			f.Close()
			os.Remove(f.Name())
			return 0, err
		}
		w.file = f
		w.fileName = f.Name()
		w.spilled = true
		w.buf = nil
	}
	return w.file.Write(p)
}

func (w *spillWriter) finish() (*bytes.Buffer, string, error) {
	if w.spilled {
		if err := w.file.Close(); err != nil {
			return nil, "", err
		}
		return nil, w.fileName, nil
	}
	return w.buf, "", nil
}

func (w *spillWriter) abort() {
	if w.spilled {
		w.file.Close()
		os.Remove(w.fileName)
	}
}

// Options controls what Stage computes. RequireDigest is always honored
// when set; Restartable tells Stage that the caller can already
// re-read srcReader from the beginning on retry (e.g. it wraps a local
// file path), so when no compression is needed Stage can skip spooling
// a private copy and just compute the digest while passing bytes
// through untouched.
type Options struct {
	RequireCompress bool
	RequireDigest   bool
	Restartable     bool
}

// Stage runs C3. When RequireCompress is false and
// RequireDigest is false, staging is a no-op: the caller should send
// srcReader straight through without calling Stage at all.
func Stage(srcReader io.Reader, opts Options) (*Stream, error) {
	if opts.RequireCompress {
		return stageCompressed(srcReader, opts.RequireDigest)
	}
	if opts.RequireDigest {
		return stageDigestOnly(srcReader, opts.Restartable)
	}
	return &Stream{}, nil
}

// stageCompressed always spools the gzip output (compressed bytes
// differ from the source, so even a restartable source can't serve a
// retry without re-running the encoder — and CPU cost to re-gzip on
// every retry is worse than a disk spill).
func stageCompressed(srcReader io.Reader, requireDigest bool) (*Stream, error) {
	sw := newSpillWriter()

	var hash io.Writer
	var digest []byte
	h := sha256.New()
	if requireDigest {
		hash = h
	}

	var out io.Writer = sw
	if hash != nil {
		out = io.MultiWriter(sw, hash)
	}

	gz := gzip.NewWriter(out)

	bufPtr := buffers.GetChunkBuffer()
	defer buffers.PutChunkBuffer(bufPtr)
	buf := *bufPtr

	for {
		n, rerr := srcReader.Read(buf)
		if n > 0 {
			if _, werr := gz.Write(buf[:n]); werr != nil {
				sw.abort()
				return nil, werr
			}
			// Sync-flush mode: flush the gzip encoder after each
			// chunk so a concurrent reader of the staged bytes never
			// blocks on data sitting in the encoder's internal buffer.
			if ferr := gz.Flush(); ferr != nil {
				sw.abort()
				return nil, ferr
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			sw.abort()
			return nil, rerr
		}
	}
	if err := gz.Close(); err != nil {
		sw.abort()
		return nil, err
	}

	memBuf, spillPath, err := sw.finish()
	if err != nil {
		return nil, err
	}

	stream := &Stream{buf: memBuf, spillPath: spillPath}
	if requireDigest {
		digest = h.Sum(nil)
		stream.Base64Digest = base64.StdEncoding.EncodeToString(digest)
	}
	stream.ByteCount = byteCountOf(stream)
	return stream, nil
}

// stageDigestOnly handles the uncompressed digest path. A restartable
// source only needs a digest computed by copy; a non-restartable
// source (the in-memory stream case) must also be spooled so the
// worker can re-read it on retry.
func stageDigestOnly(srcReader io.Reader, restartable bool) (*Stream, error) {
	h := sha256.New()

	if restartable {
		n, err := io.Copy(h, srcReader)
		if err != nil {
			return nil, err
		}
		return &Stream{
			ByteCount:    n,
			Base64Digest: base64.StdEncoding.EncodeToString(h.Sum(nil)),
		}, nil
	}

	sw := newSpillWriter()
	n, err := io.Copy(io.MultiWriter(sw, h), srcReader)
	if err != nil {
		sw.abort()
		return nil, err
	}
	memBuf, spillPath, err := sw.finish()
	if err != nil {
		return nil, err
	}
	return &Stream{
		buf:          memBuf,
		spillPath:    spillPath,
		ByteCount:    n,
		Base64Digest: base64.StdEncoding.EncodeToString(h.Sum(nil)),
	}, nil
}

// Digest computes the base64 SHA-256 digest that a remote object would
// carry as sfc-digest user metadata for the local file at path, without
// keeping the bytes around once done: when compress is true it runs the
// same sync-flushed gzip pipeline an upload stages through
// (stageCompressed), otherwise it hashes the raw file content.
func Digest(path string, compress bool) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if !compress {
		h := sha256.New()
		if _, err := io.Copy(h, f); err != nil {
			return "", err
		}
		return base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
	}

	stream, err := stageCompressed(f, true)
	if err != nil {
		return "", err
	}
	defer stream.Close()
	return stream.Base64Digest, nil
}

func byteCountOf(s *Stream) int64 {
	if s.spillPath != "" {
		fi, err := os.Stat(s.spillPath)
		if err != nil {
			return 0
		}
		return fi.Size()
	}
	return int64(s.buf.Len())
}
