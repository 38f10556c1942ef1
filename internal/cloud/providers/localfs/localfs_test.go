package localfs

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/gregakespret/sfagent/internal/cloud/storage"
)

func TestPutThenGetRoundTrips(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	payload := []byte("round trip content")
	n, err := store.Put(context.Background(), putInput(t, "sub/dir/file.txt", payload))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if n != int64(len(payload)) {
		t.Errorf("expected %d bytes written, got %d", len(payload), n)
	}

	dest, err := os.CreateTemp(dir, "readback-*")
	if err != nil {
		t.Fatal(err)
	}
	defer dest.Close()

	read, err := store.Get(context.Background(), "sub/dir/file.txt", dest)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if read != int64(len(payload)) {
		t.Errorf("expected %d bytes read, got %d", len(payload), read)
	}
}

func TestHeadComputesDigest(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}

	payload := []byte("digest me")
	if _, err := store.Put(context.Background(), putInput(t, "x.txt", payload)); err != nil {
		t.Fatal(err)
	}

	meta, err := store.Head(context.Background(), "x.txt")
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if meta.UserMetadata["sfc-digest"] == "" {
		t.Error("expected Head to compute an sfc-digest")
	}
	if meta.Size != int64(len(payload)) {
		t.Errorf("expected size %d, got %d", len(payload), meta.Size)
	}
}

func TestHeadMissingObjectIsNotFound(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := store.Head(context.Background(), "missing.txt"); err == nil {
		t.Fatal("expected an error for a missing object")
	}
}

func TestListFiltersByPrefix(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}

	for _, key := range []string{"logs/a.csv", "logs/b.csv", "other/c.csv"} {
		if _, err := store.Put(context.Background(), putInput(t, key, []byte("x"))); err != nil {
			t.Fatal(err)
		}
	}

	objs, err := store.List(context.Background(), "logs/")
	if err != nil {
		t.Fatal(err)
	}
	if len(objs) != 2 {
		t.Errorf("expected 2 objects under logs/, got %d", len(objs))
	}
}

func putInput(t *testing.T, key string, content []byte) storage.PutInput {
	t.Helper()
	return storage.PutInput{
		Key:  key,
		Body: bytes.NewReader(content),
		Size: int64(len(content)),
	}
}
