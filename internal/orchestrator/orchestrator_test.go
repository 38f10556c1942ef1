package orchestrator

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/gregakespret/sfagent/internal/cloud/storage"
	"github.com/gregakespret/sfagent/internal/model"
)

type fakeStore struct {
	objects map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}}
}

func (f *fakeStore) Put(ctx context.Context, in storage.PutInput) (int64, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return 0, err
	}
	f.objects[in.Key] = body
	return int64(len(body)), nil
}

func (f *fakeStore) Get(ctx context.Context, key string, dest io.WriterAt) (int64, error) {
	body := f.objects[key]
	if _, err := dest.WriteAt(body, 0); err != nil {
		return 0, err
	}
	return int64(len(body)), nil
}

func (f *fakeStore) List(ctx context.Context, prefix string) ([]storage.ObjectMetadata, error) {
	return nil, nil
}
func (f *fakeStore) Head(ctx context.Context, key string) (storage.ObjectMetadata, error) {
	return storage.ObjectMetadata{}, &notFoundErr{}
}
func (f *fakeStore) Shutdown(ctx context.Context) error { return nil }

type notFoundErr struct{}

func (e *notFoundErr) Error() string { return "404 not found" }

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunUploadHappyPath(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv", []byte("hello,world"))
	b := writeFile(t, dir, "b.csv", []byte("more,data"))

	store := newFakeStore()
	o := New(store)
	plan := &model.TransferPlan{
		Verb:         model.Upload,
		SrcLocations: []string{a, b},
		Flags:        model.TransferFlags{Parallel: 4, SourceCompressionHint: model.HintNone},
	}

	result, err := o.Run(context.Background(), plan, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Completed {
		t.Fatal("expected Completed=true")
	}
	for _, f := range result.Files {
		if f.Status != model.StatusUploaded {
			t.Errorf("file %s: expected UPLOADED, got %s", f.SrcName, f.Status)
		}
	}
}

func TestRunUploadNonexistentFile(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.csv")

	store := newFakeStore()
	o := New(store)
	plan := &model.TransferPlan{
		Verb:         model.Upload,
		SrcLocations: []string{missing},
		Flags:        model.TransferFlags{Parallel: 1, SourceCompressionHint: model.HintNone},
	}

	result, err := o.Run(context.Background(), plan, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Files) != 1 || result.Files[0].Status != model.StatusNonexist {
		t.Fatalf("expected a single NONEXIST row, got %+v", result.Files)
	}
}

func TestRunUploadDestNameCollision(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	a := writeFile(t, dirA, "same.csv", []byte("first"))
	b := writeFile(t, dirB, "same.csv", []byte("second"))

	store := newFakeStore()
	o := New(store)
	plan := &model.TransferPlan{
		Verb:         model.Upload,
		SrcLocations: []string{a, b},
		Flags:        model.TransferFlags{Parallel: 1, SourceCompressionHint: model.HintNone},
	}

	result, err := o.Run(context.Background(), plan, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var collided, uploaded int
	for _, f := range result.Files {
		switch f.Status {
		case model.StatusCollision:
			collided++
		case model.StatusUploaded:
			uploaded++
		}
	}
	if collided != 1 || uploaded != 1 {
		t.Fatalf("expected 1 collision and 1 upload, got collided=%d uploaded=%d", collided, uploaded)
	}
}

func TestRunDownloadCreatesDirAndWritesFiles(t *testing.T) {
	store := newFakeStore()
	store.objects["remote/report.csv"] = []byte("remote content")

	destDir := filepath.Join(t.TempDir(), "nested", "dest")
	o := New(store)
	plan := &model.TransferPlan{
		Verb:             model.Download,
		SrcLocations:     []string{"remote/report.csv"},
		LocalDownloadDir: destDir,
		Flags:            model.TransferFlags{Parallel: 1},
	}

	result, err := o.Run(context.Background(), plan, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Completed {
		t.Fatal("expected Completed=true")
	}
	if result.Files[0].Status != model.StatusDownloaded {
		t.Fatalf("expected DOWNLOADED, got %s", result.Files[0].Status)
	}
	written, err := os.ReadFile(filepath.Join(destDir, "report.csv"))
	if err != nil {
		t.Fatalf("expected downloaded file on disk: %v", err)
	}
	if !bytes.Equal(written, []byte("remote content")) {
		t.Errorf("unexpected file content: %q", written)
	}
}

func TestRunCanceledBeforeDispatch(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv", []byte("data"))

	store := newFakeStore()
	o := New(store)
	o.Cancel()

	plan := &model.TransferPlan{
		Verb:         model.Upload,
		SrcLocations: []string{a},
		Flags:        model.TransferFlags{Parallel: 1, SourceCompressionHint: model.HintNone},
	}

	result, err := o.Run(context.Background(), plan, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Completed {
		t.Fatal("expected Completed=false after Cancel")
	}
	if result.Files[0].Status != model.StatusUnknown {
		t.Errorf("expected canceled file to remain UNKNOWN, got %s", result.Files[0].Status)
	}
}
