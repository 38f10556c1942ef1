package staging

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"strings"
	"testing"
)

func TestStageCompressedProducesGzipBytes(t *testing.T) {
	src := strings.NewReader("hello world, this is staged content")

	stream, err := Stage(src, Options{RequireCompress: true, RequireDigest: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stream.Close()

	r, err := stream.Open()
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	gz, err := gzip.NewReader(r)
	if err != nil {
		t.Fatalf("staged bytes are not valid gzip: %v", err)
	}
	decompressed, err := io.ReadAll(gz)
	if err != nil {
		t.Fatalf("decompressing staged stream: %v", err)
	}
	if string(decompressed) != "hello world, this is staged content" {
		t.Errorf("round-trip mismatch: got %q", decompressed)
	}

	if stream.Base64Digest == "" {
		t.Error("expected a digest to be computed")
	}
}

func TestStageCompressedDigestMatchesGzipOfSource(t *testing.T) {
	payload := "reproducible content for digest comparison"
	stream, err := Stage(strings.NewReader(payload), Options{RequireCompress: true, RequireDigest: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stream.Close()

	r, err := stream.Open()
	if err != nil {
		t.Fatal(err)
	}
	staged, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}

	h := sha256.Sum256(staged)
	want := base64.StdEncoding.EncodeToString(h[:])
	if stream.Base64Digest != want {
		t.Errorf("digest over staged bytes mismatch: got %s want %s", stream.Base64Digest, want)
	}
}

func TestStageDigestOnlyRestartableDoesNotSpool(t *testing.T) {
	payload := strings.Repeat("x", 1024)
	stream, err := Stage(strings.NewReader(payload), Options{RequireDigest: true, Restartable: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stream.Close()

	if stream.ByteCount != int64(len(payload)) {
		t.Errorf("expected ByteCount=%d, got %d", len(payload), stream.ByteCount)
	}
	if stream.Base64Digest == "" {
		t.Error("expected digest")
	}
}

func TestStageDigestOnlyNonRestartableCanReopen(t *testing.T) {
	payload := "stream source content"
	stream, err := Stage(strings.NewReader(payload), Options{RequireDigest: true, Restartable: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stream.Close()

	r1, err := stream.Open()
	if err != nil {
		t.Fatal(err)
	}
	first, _ := io.ReadAll(r1)

	r2, err := stream.Open()
	if err != nil {
		t.Fatal(err)
	}
	second, _ := io.ReadAll(r2)

	if string(first) != payload || string(second) != payload {
		t.Errorf("expected both reads to reproduce source, got %q and %q", first, second)
	}
}

func TestStageNoOpWhenNothingRequested(t *testing.T) {
	stream, err := Stage(bytes.NewReader(nil), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stream.Base64Digest != "" {
		t.Error("expected no digest")
	}
}
