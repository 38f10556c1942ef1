// Package workerpool implements C6: the bounded-concurrency executor
// that turns classified FileMetadata rows into UPLOADED/DOWNLOADED/ERROR
// outcomes by calling C3 (staging) and C5 (the object-store adapter).
package workerpool

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/gregakespret/sfagent/internal/cloud/storage"
	"github.com/gregakespret/sfagent/internal/constants"
	"github.com/gregakespret/sfagent/internal/model"
	"github.com/gregakespret/sfagent/internal/progress"
	"github.com/gregakespret/sfagent/internal/staging"
)

// UploadJob pairs one still-UNKNOWN plan entry with the local file it
// was classified from.
type UploadJob struct {
	SrcPath string
	File    *model.FileMetadata
}

// DownloadJob pairs one still-UNKNOWN plan entry with its remote key.
type DownloadJob struct {
	Key  string
	File *model.FileMetadata
}

// Options carries the knobs RunUpload needs beyond the job list itself.
type Options struct {
	Parallel int
	// EncryptionMaterial is opaque; non-nil means the upload attaches a
	// digest and reports isEncrypted=true.
	EncryptionMaterial interface{}
	// InjectFailureSuffix makes any job whose SrcPath has this suffix
	// fail before calling the object-store adapter. Test hook only.
	InjectFailureSuffix string
	Progress            progress.Reporter
}

// RunUpload is the two-phase upload executor: big files serialized one
// at a time (each internally parallel via multipart), small files
// fanned out across a bounded worker pool. It returns non-nil only on
// cooperative cancellation (ctx.Err()); individual job failures are
// recorded on the job's FileMetadata and never abort their peers.
func RunUpload(ctx context.Context, store storage.Store, jobs []UploadJob, opts Options) error {
	var big, small []UploadJob
	for _, j := range jobs {
		if j.File.Status != model.StatusUnknown {
			continue
		}
		if j.File.SrcSize > constants.BigFileThreshold {
			big = append(big, j)
		} else {
			small = append(small, j)
		}
	}

	rep := opts.Progress
	if rep == nil {
		rep = progress.NewNoOpProgress()
	}

	parallel := opts.Parallel
	if parallel < 1 {
		parallel = 1
	}

	for _, job := range big {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := runUploadOne(ctx, store, job, parallel, opts, rep); err != nil {
			return err
		}
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	// A progress bar per concurrent small file is noise; NoOpProgress
	// for this phase regardless of what the caller configured.
	smallRep := progress.NewNoOpProgress()
	for _, j := range small {
		job := j
		g.Go(func() error {
			return runUploadOne(gctx, store, job, 1, opts, smallRep)
		})
	}
	return g.Wait()
}

func runUploadOne(ctx context.Context, store storage.Store, job UploadJob, innerParallel int, opts Options, rep progress.Reporter) error {
	f := job.File

	if opts.InjectFailureSuffix != "" && strings.HasSuffix(job.SrcPath, opts.InjectFailureSuffix) {
		return markError(f, &model.SimulatedUploadFailureError{Path: job.SrcPath})
	}

	body, size, userMeta, contentEncoding, cleanup, err := prepareUploadBody(job, opts.EncryptionMaterial)
	if err != nil {
		return markError(f, err)
	}
	defer cleanup()

	rep.Start(size, filepath.Base(job.SrcPath))
	defer rep.Finish()

	uploaded, err := store.Put(ctx, storage.PutInput{
		Key:             f.DestName,
		Body:            body,
		Size:            size,
		UserMetadata:    userMeta,
		ContentEncoding: contentEncoding,
		InnerParallel:   innerParallel,
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rep.Error(err)
		return markError(f, err)
	}

	f.Status = model.StatusUploaded
	f.DestSize = uploaded
	f.IsEncrypted = opts.EncryptionMaterial != nil
	return nil
}

// prepareUploadBody opens the source, runs it through staging when
// compression or a digest is required, or passes the raw file through
// untouched.
func prepareUploadBody(job UploadJob, encMaterial interface{}) (body io.ReadSeeker, size int64, userMeta map[string]string, contentEncoding string, cleanup func(), err error) {
	userMeta = map[string]string{}
	noop := func() {}

	switch {
	case job.File.RequireCompress:
		src, oerr := os.Open(job.SrcPath)
		if oerr != nil {
			return nil, 0, nil, "", noop, oerr
		}
		defer src.Close()

		stream, serr := staging.Stage(src, staging.Options{
			RequireCompress: true,
			RequireDigest:   encMaterial != nil,
		})
		if serr != nil {
			return nil, 0, nil, "", noop, serr
		}
		r, oerr := stream.Open()
		if oerr != nil {
			stream.Close()
			return nil, 0, nil, "", noop, oerr
		}
		if stream.Base64Digest != "" {
			userMeta["sfc-digest"] = stream.Base64Digest
		}
		return r, stream.ByteCount, userMeta, strings.ToLower(string(job.File.DestCompression)), func() { stream.Close() }, nil

	case encMaterial != nil:
		digestSrc, oerr := os.Open(job.SrcPath)
		if oerr != nil {
			return nil, 0, nil, "", noop, oerr
		}
		stream, serr := staging.Stage(digestSrc, staging.Options{RequireDigest: true, Restartable: true})
		digestSrc.Close()
		if serr != nil {
			return nil, 0, nil, "", noop, serr
		}
		if stream.Base64Digest != "" {
			userMeta["sfc-digest"] = stream.Base64Digest
		}

		reopened, oerr := os.Open(job.SrcPath)
		if oerr != nil {
			return nil, 0, nil, "", noop, oerr
		}
		return reopened, job.File.SrcSize, userMeta, "", func() { reopened.Close() }, nil

	default:
		src, oerr := os.Open(job.SrcPath)
		if oerr != nil {
			return nil, 0, nil, "", noop, oerr
		}
		return src, job.File.SrcSize, userMeta, "", func() { src.Close() }, nil
	}
}

func markError(f *model.FileMetadata, err error) error {
	f.Status = model.StatusError
	f.ErrorDetails = err.Error()
	return nil
}

// RunDownload is the single-worker DOWNLOAD executor: the object-store
// adapter parallelizes internally per object.
func RunDownload(ctx context.Context, store storage.Store, jobs []DownloadJob, localDir string) error {
	for _, job := range jobs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if job.File.Status != model.StatusUnknown {
			continue
		}
		if err := runDownloadOne(ctx, store, job, localDir); err != nil {
			return err
		}
	}
	return nil
}

func runDownloadOne(ctx context.Context, store storage.Store, job DownloadJob, localDir string) error {
	f := job.File
	destPath := filepath.Join(localDir, f.DestName)

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return markError(f, err)
	}
	out, err := os.Create(destPath)
	if err != nil {
		return markError(f, err)
	}
	defer out.Close()

	n, err := store.Get(ctx, job.Key, out)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return markError(f, err)
	}

	f.Status = model.StatusDownloaded
	f.DestSize = n
	return nil
}
