package workerpool

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gregakespret/sfagent/internal/cloud/storage"
	"github.com/gregakespret/sfagent/internal/model"
)

type fakeStore struct {
	mu          sync.Mutex
	maxInFlight int32
	inFlight    int32
	puts        []storage.PutInput
	failKeys    map[string]bool
	objects     map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{failKeys: map[string]bool{}, objects: map[string][]byte{}}
}

func (f *fakeStore) Put(ctx context.Context, in storage.PutInput) (int64, error) {
	cur := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		max := atomic.LoadInt32(&f.maxInFlight)
		if cur <= max || atomic.CompareAndSwapInt32(&f.maxInFlight, max, cur) {
			break
		}
	}

	body, err := io.ReadAll(in.Body)
	if err != nil {
		return 0, err
	}

	f.mu.Lock()
	f.puts = append(f.puts, in)
	fail := f.failKeys[in.Key]
	f.objects[in.Key] = body
	f.mu.Unlock()

	if fail {
		return 0, errUnavailable
	}
	return int64(len(body)), nil
}

func (f *fakeStore) Get(ctx context.Context, key string, dest io.WriterAt) (int64, error) {
	f.mu.Lock()
	body := f.objects[key]
	f.mu.Unlock()
	if _, err := dest.WriteAt(body, 0); err != nil {
		return 0, err
	}
	return int64(len(body)), nil
}

func (f *fakeStore) List(ctx context.Context, prefix string) ([]storage.ObjectMetadata, error) {
	return nil, nil
}
func (f *fakeStore) Head(ctx context.Context, key string) (storage.ObjectMetadata, error) {
	return storage.ObjectMetadata{}, nil
}
func (f *fakeStore) Shutdown(ctx context.Context) error { return nil }

type staticErr string

func (e staticErr) Error() string { return string(e) }

const errUnavailable = staticErr("service unavailable")

func writeTempFile(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upload.dat")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunUploadSmallFilesSucceed(t *testing.T) {
	store := newFakeStore()
	var jobs []UploadJob
	for i := 0; i < 5; i++ {
		path := writeTempFile(t, []byte("small file content"))
		f := model.NewFileMetadata(path, 19)
		f.DestName = filepath.Base(path)
		jobs = append(jobs, UploadJob{SrcPath: path, File: f})
	}

	if err := RunUpload(context.Background(), store, jobs, Options{Parallel: 3}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, j := range jobs {
		if j.File.Status != model.StatusUploaded {
			t.Errorf("expected UPLOADED, got %s", j.File.Status)
		}
	}
}

func TestRunUploadBigFileSerializedAtFileLevel(t *testing.T) {
	store := newFakeStore()
	bigPath := writeTempFile(t, make([]byte, 20*1024*1024))
	bigFile := model.NewFileMetadata(bigPath, 20*1024*1024)
	bigFile.DestName = "big.bin"

	smallPath := writeTempFile(t, []byte("tiny"))
	smallFile := model.NewFileMetadata(smallPath, 4)
	smallFile.DestName = "small.bin"

	jobs := []UploadJob{
		{SrcPath: bigPath, File: bigFile},
		{SrcPath: smallPath, File: smallFile},
	}

	if err := RunUpload(context.Background(), store, jobs, Options{Parallel: 4}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bigFile.Status != model.StatusUploaded || smallFile.Status != model.StatusUploaded {
		t.Fatalf("expected both uploaded, got %s %s", bigFile.Status, smallFile.Status)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	for _, p := range store.puts {
		if p.Key == "big.bin" && p.InnerParallel != 4 {
			t.Errorf("expected big file InnerParallel=4, got %d", p.InnerParallel)
		}
		if p.Key == "small.bin" && p.InnerParallel != 1 {
			t.Errorf("expected small file InnerParallel=1, got %d", p.InnerParallel)
		}
	}
}

func TestRunUploadOneFailureDoesNotCancelPeers(t *testing.T) {
	store := newFakeStore()
	store.failKeys["bad.txt"] = true

	goodPath := writeTempFile(t, []byte("ok content"))
	goodFile := model.NewFileMetadata(goodPath, 10)
	goodFile.DestName = "good.txt"

	badPath := writeTempFile(t, []byte("bad content"))
	badFile := model.NewFileMetadata(badPath, 11)
	badFile.DestName = "bad.txt"

	jobs := []UploadJob{
		{SrcPath: goodPath, File: goodFile},
		{SrcPath: badPath, File: badFile},
	}

	if err := RunUpload(context.Background(), store, jobs, Options{Parallel: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if goodFile.Status != model.StatusUploaded {
		t.Errorf("expected good file UPLOADED, got %s", goodFile.Status)
	}
	if badFile.Status != model.StatusError {
		t.Errorf("expected bad file ERROR, got %s", badFile.Status)
	}
	if badFile.ErrorDetails == "" {
		t.Error("expected errorDetails to be set")
	}
}

func TestRunUploadInjectedFailure(t *testing.T) {
	store := newFakeStore()
	path := writeTempFile(t, []byte("data"))
	f := model.NewFileMetadata(path, 4)
	f.DestName = "x.fail"

	jobs := []UploadJob{{SrcPath: path, File: f}}
	err := RunUpload(context.Background(), store, jobs, Options{Parallel: 1, InjectFailureSuffix: ".fail"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Status != model.StatusError {
		t.Errorf("expected ERROR from injected failure, got %s", f.Status)
	}
}

func TestRunUploadRespectsParallelBound(t *testing.T) {
	store := newFakeStore()
	var jobs []UploadJob
	for i := 0; i < 20; i++ {
		path := writeTempFile(t, []byte("x"))
		f := model.NewFileMetadata(path, 1)
		f.DestName = filepath.Base(path) + string(rune('a'+i))
		jobs = append(jobs, UploadJob{SrcPath: path, File: f})
	}

	if err := RunUpload(context.Background(), store, jobs, Options{Parallel: 4}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.maxInFlight > 4 {
		t.Errorf("expected at most 4 concurrent puts, observed %d", store.maxInFlight)
	}
}

func TestRunDownloadCreatesMissingDirectory(t *testing.T) {
	store := newFakeStore()
	store.objects["remote/a.gz"] = []byte("downloaded bytes")

	dir := filepath.Join(t.TempDir(), "does", "not", "exist", "yet")
	f := model.NewFileMetadata("remote/a.gz", 0)
	f.DestName = "a.gz"

	jobs := []DownloadJob{{Key: "remote/a.gz", File: f}}
	if err := RunDownload(context.Background(), store, jobs, dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Status != model.StatusDownloaded {
		t.Errorf("expected DOWNLOADED, got %s", f.Status)
	}
	if f.DestSize != int64(len("downloaded bytes")) {
		t.Errorf("expected destSize=%d, got %d", len("downloaded bytes"), f.DestSize)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.gz")); err != nil {
		t.Errorf("expected file to exist: %v", err)
	}
}
