// Package orchestrator implements C7: the state machine that drives a
// TransferPlan from INIT through classification, skip-filtering, and
// dispatch to a terminal per-file outcome (or CANCELED).
package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/gregakespret/sfagent/internal/cloud/storage"
	"github.com/gregakespret/sfagent/internal/compression"
	"github.com/gregakespret/sfagent/internal/constants"
	"github.com/gregakespret/sfagent/internal/logging"
	"github.com/gregakespret/sfagent/internal/model"
	"github.com/gregakespret/sfagent/internal/pathexpand"
	"github.com/gregakespret/sfagent/internal/progress"
	"github.com/gregakespret/sfagent/internal/skipfilter"
	"github.com/gregakespret/sfagent/internal/util/paths"
	"github.com/gregakespret/sfagent/internal/workerpool"
)

// Result is what the Status View (C8) projects: every row the command
// touched, plus whether the command reached DONE (true) or was
// interrupted by Cancel (false).
type Result struct {
	Files     []*model.FileMetadata
	Completed bool
}

// Options carries the per-run knobs that aren't already on the plan.
type Options struct {
	Progress progress.Reporter
}

// Orchestrator drives one TransferPlan to completion against a single
// object-store adapter. It is not reused across plans.
type Orchestrator struct {
	store storage.Store
	log   *logging.Logger

	mu       sync.Mutex
	canceled bool
	cancel   context.CancelFunc
}

// New builds an Orchestrator bound to store. store must already be
// constructed against the plan's stage descriptor (internal/cloud/providers/{s3,localfs}).
func New(store storage.Store) *Orchestrator {
	return &Orchestrator{
		store: store,
		log:   logging.NewDefaultLogger().Component("orchestrator"),
	}
}

// Cancel implements cooperative cancellation: it sets a
// monitored flag and tears down the context handed to the worker pool,
// forcibly releasing it. Safe to call before, during, or after Run;
// a call before DISPATCH short-circuits at the next CANCEL_CHECK.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	o.canceled = true
	cancel := o.cancel
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (o *Orchestrator) isCanceled() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.canceled
}

// Run implements the state machine:
//
//	INIT -> CLASSIFY(if UPLOAD) -> SKIP_FILTER(if !overwrite)
//	     -> CANCEL_CHECK -> DISPATCH -> COLLECT -> DONE
//	                           \-> CANCELED
//
// Errors returned are global failures (ListFilesError,
// directory-creation failure): everything else is recorded per-file on
// the returned Result and never aborts the command.
func (o *Orchestrator) Run(parent context.Context, plan *model.TransferPlan, opts Options) (*Result, error) {
	ctx, cancel := context.WithCancel(parent)
	o.mu.Lock()
	o.cancel = cancel
	alreadyCanceled := o.canceled
	o.mu.Unlock()
	defer cancel()
	if alreadyCanceled {
		cancel()
	}

	var files []*model.FileMetadata
	var err error

	switch plan.Verb {
	case model.Upload:
		files, err = initUploadFiles(plan)
	case model.Download:
		files, err = initDownloadFiles(plan)
	}
	if err != nil {
		return nil, err
	}

	if plan.Verb == model.Upload {
		classify(plan, files)
		markCollisions(files)
	}

	if plan.Verb == model.Upload && !plan.Flags.Overwrite {
		if err := runSkipFilter(ctx, o.store, files); err != nil {
			return nil, err
		}
	}

	if ctx.Err() != nil || o.isCanceled() {
		return &Result{Files: files, Completed: false}, nil
	}

	switch plan.Verb {
	case model.Upload:
		jobs := make([]workerpool.UploadJob, 0, len(files))
		for _, f := range files {
			if f.Status != model.StatusUnknown {
				continue
			}
			jobs = append(jobs, workerpool.UploadJob{SrcPath: f.SrcName, File: f})
		}
		runErr := workerpool.RunUpload(ctx, o.store, jobs, workerpool.Options{
			Parallel:            effectiveParallel(plan.Flags.Parallel),
			EncryptionMaterial:  plan.Stage.EncryptionMaterial,
			InjectFailureSuffix: plan.InjectFailure,
			Progress:            opts.Progress,
		})
		if runErr != nil {
			return &Result{Files: files, Completed: false}, nil
		}

	case model.Download:
		if err := os.MkdirAll(plan.LocalDownloadDir, 0o755); err != nil {
			return nil, err
		}
		jobs := make([]workerpool.DownloadJob, 0, len(files))
		for _, f := range files {
			if f.Status != model.StatusUnknown {
				continue
			}
			jobs = append(jobs, workerpool.DownloadJob{Key: f.SrcName, File: f})
		}
		runErr := workerpool.RunDownload(ctx, o.store, jobs, plan.LocalDownloadDir)
		if runErr != nil {
			return &Result{Files: files, Completed: false}, nil
		}
	}

	if ctx.Err() != nil || o.isCanceled() {
		return &Result{Files: files, Completed: false}, nil
	}
	return &Result{Files: files, Completed: true}, nil
}

// initUploadFiles implements metadata init for UPLOAD: C1 expansion
// followed by the NONEXIST/DIRECTORY checks assigned to metadata
// init.
func initUploadFiles(plan *model.TransferPlan) ([]*model.FileMetadata, error) {
	expanded, err := pathexpand.Expand(plan.SrcLocations)
	if err != nil {
		return nil, err
	}

	files := make([]*model.FileMetadata, 0, len(expanded))
	for _, p := range expanded {
		info, statErr := os.Stat(p)
		switch {
		case statErr != nil:
			f := model.NewFileMetadata(p, 0)
			f.Status = model.StatusNonexist
			files = append(files, f)
		case info.IsDir():
			f := model.NewFileMetadata(p, info.Size())
			f.Status = model.StatusDirectory
			files = append(files, f)
		default:
			files = append(files, model.NewFileMetadata(p, info.Size()))
		}
	}
	return files, nil
}

// initDownloadFiles implements metadata init for DOWNLOAD: each source
// location is already a resolved stage key (the plan's src_locations),
// so there is nothing to expand or stat locally.
func initDownloadFiles(plan *model.TransferPlan) ([]*model.FileMetadata, error) {
	files := make([]*model.FileMetadata, 0, len(plan.SrcLocations))
	for _, key := range plan.SrcLocations {
		f := model.NewFileMetadata(key, -1)
		f.DestName = filepath.Base(key)
		files = append(files, f)
	}
	return files, nil
}

// classify implements C2 dispatch for every still-UNKNOWN UPLOAD row.
// A detected-but-unsupported codec is a per-file error, not a fatal
// one.
func classify(plan *model.TransferPlan, files []*model.FileMetadata) {
	for _, f := range files {
		if f.Status != model.StatusUnknown {
			continue
		}
		if err := compression.ClassifyFile(f, f.SrcName, plan.Flags.SourceCompressionHint, plan.Flags.AutoCompress); err != nil {
			f.Status = model.StatusError
			f.ErrorDetails = err.Error()
		}
	}
}

func markCollisions(files []*model.FileMetadata) {
	entries := make([]paths.Entry, 0, len(files))
	for _, f := range files {
		entries = append(entries, paths.Entry{SrcKey: f.SrcName, File: f})
	}
	paths.MarkDestNameCollisions(entries)
}

func runSkipFilter(ctx context.Context, store storage.Store, files []*model.FileMetadata) error {
	candidates := make([]skipfilter.Candidate, 0, len(files))
	for _, f := range files {
		if f.Status != model.StatusUnknown {
			continue
		}
		candidates = append(candidates, skipfilter.Candidate{SrcPath: f.SrcName, File: f})
	}
	return skipfilter.Run(ctx, store, false, candidates)
}

func effectiveParallel(n int) int {
	if n < 1 {
		return constants.DefaultParallel
	}
	return n
}
