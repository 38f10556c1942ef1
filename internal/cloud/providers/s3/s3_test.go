package s3

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/gregakespret/sfagent/internal/cloud/storage"
	"github.com/gregakespret/sfagent/internal/logging"
	"github.com/gregakespret/sfagent/internal/model"
)

// newTestStore builds a Store with SDK-level retries disabled, so
// transient failures are always surfaced to our own retry.Execute loop
// instead of being absorbed inside the AWS SDK's own retryer.
func newTestStore(t *testing.T, endpoint string) *Store {
	t.Helper()
	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(awscreds.NewStaticCredentialsProvider("id", "secret", "")),
	)
	if err != nil {
		t.Fatalf("loading aws config: %v", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
		o.RetryMaxAttempts = 1
	})
	return &Store{
		bucket: "test-bucket",
		client: client,
		log:    logging.NewDefaultLogger().Component("test"),
	}
}

func testDescriptor(endpoint string) model.StageDescriptor {
	return model.StageDescriptor{
		Kind:     model.StageS3,
		Location: "test-bucket",
		Region:   "us-east-1",
		Credentials: map[string]string{
			"AWS_ID":       "id",
			"AWS_KEY":      "secret",
			"AWS_ENDPOINT": endpoint,
		},
	}
}

func TestPutRetriesOn503ThenSucceeds(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&requests, 1)
		if n <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>ServiceUnavailable</Code><Message>slow down</Message></Error>`))
			return
		}
		w.Header().Set("ETag", `"abc123"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store := newTestStore(t, server.URL)

	payload := []byte("hello world")
	n, err := store.Put(context.Background(), storage.PutInput{
		Key:           "a.txt.gz",
		Body:          bytes.NewReader(payload),
		Size:          int64(len(payload)),
		InnerParallel: 1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != int64(len(payload)) {
		t.Errorf("expected %d bytes reported, got %d", len(payload), n)
	}
	if got := atomic.LoadInt32(&requests); got != 3 {
		t.Errorf("expected exactly 3 put invocations, got %d", got)
	}
}

func TestPutRenewsExpiredCredentialWithoutConsumingBudget(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&requests, 1)
		if n == 1 {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>ExpiredToken</Code><Message>token expired</Message></Error>`))
			return
		}
		w.Header().Set("ETag", `"def456"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	var renewed int32
	renew := func(ctx context.Context) (model.StageDescriptor, error) {
		atomic.AddInt32(&renewed, 1)
		return testDescriptor(server.URL), nil
	}

	store, err := New(context.Background(), testDescriptor(server.URL), http.DefaultClient, renew)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	payload := []byte("renew me")
	_, err = store.Put(context.Background(), storage.PutInput{
		Key:           "b.txt",
		Body:          bytes.NewReader(payload),
		Size:          int64(len(payload)),
		InnerParallel: 1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if atomic.LoadInt32(&renewed) != 1 {
		t.Errorf("expected exactly one credential renewal, got %d", renewed)
	}
}

func TestHeadReturns404AsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	store, err := New(context.Background(), testDescriptor(server.URL), http.DefaultClient, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = store.Head(context.Background(), "missing.txt")
	if err == nil {
		t.Fatal("expected an error for a missing object")
	}
}

func TestSplitLocation(t *testing.T) {
	bucket, prefix := splitLocation("my-bucket/base/path")
	if bucket != "my-bucket" || prefix != "base/path" {
		t.Errorf("got bucket=%q prefix=%q", bucket, prefix)
	}

	bucket, prefix = splitLocation("my-bucket")
	if bucket != "my-bucket" || prefix != "" {
		t.Errorf("got bucket=%q prefix=%q", bucket, prefix)
	}
}
