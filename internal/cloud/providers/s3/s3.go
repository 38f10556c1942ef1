// Package s3 implements C5's object-store adapter against Amazon S3:
// the storage.Store capability surface, backed by aws-sdk-go-v2, with
// credential renewal wired to the outer retry loop in internal/retry.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/gregakespret/sfagent/internal/cloud/storage"
	"github.com/gregakespret/sfagent/internal/constants"
	"github.com/gregakespret/sfagent/internal/logging"
	"github.com/gregakespret/sfagent/internal/model"
	"github.com/gregakespret/sfagent/internal/retry"
)

// RenewFunc re-fetches a TransferPlan's stage credentials for the same
// command, invoked on an ExpiredToken response.
type RenewFunc func(ctx context.Context) (model.StageDescriptor, error)

// Store is the S3-backed storage.Store. A single Store is shared across
// every worker transferring against one stage; the underlying client is
// swapped out from under callers by RenewCredentials, protected by mu.
type Store struct {
	mu     sync.RWMutex
	client *s3.Client

	bucket     string
	pathBase   string
	httpClient *http.Client
	renew      RenewFunc
	log        *logging.Logger
}

// New builds a Store bound to desc. httpClient should come from
// internal/transport so proxy configuration and connection pooling are
// shared with the rest of the agent.
func New(ctx context.Context, desc model.StageDescriptor, httpClient *http.Client, renew RenewFunc) (*Store, error) {
	bucket, pathBase := splitLocation(desc.Location)
	s := &Store{
		bucket:     bucket,
		pathBase:   pathBase,
		httpClient: httpClient,
		renew:      renew,
		log:        logging.NewDefaultLogger().Component("objectstore.s3"),
	}
	if err := s.rebuild(ctx, desc); err != nil {
		return nil, err
	}
	return s, nil
}

func splitLocation(location string) (bucket, pathBase string) {
	location = strings.TrimPrefix(location, "/")
	if idx := strings.Index(location, "/"); idx >= 0 {
		return location[:idx], location[idx+1:]
	}
	return location, ""
}

// rebuild loads a fresh s3.Client from desc's credentials. An optional
// AWS_ENDPOINT credential entry points the client at an S3-compatible
// endpoint instead of AWS (path-style addressing is then required).
func (s *Store) rebuild(ctx context.Context, desc model.StageDescriptor) error {
	provider := awscreds.NewStaticCredentialsProvider(
		desc.Credentials["AWS_ID"],
		desc.Credentials["AWS_KEY"],
		desc.Credentials["AWS_TOKEN"],
	)

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(desc.Region),
		config.WithHTTPClient(s.httpClient),
		config.WithCredentialsProvider(provider),
	)
	if err != nil {
		return fmt.Errorf("loading aws config: %w", err)
	}

	endpoint := desc.Credentials["AWS_ENDPOINT"]
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.RetryMaxAttempts = constants.S3TransferMaxRetries + 1
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	s.mu.Lock()
	s.client = client
	s.mu.Unlock()
	return nil
}

func (s *Store) current() *s3.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

// RenewCredentials implements storage.CredentialRenewer.
func (s *Store) RenewCredentials(ctx context.Context) error {
	if s.renew == nil {
		return &model.InvalidKeyError{Detail: "no credential renewal source configured for expired S3 token"}
	}
	desc, err := s.renew(ctx)
	if err != nil {
		return fmt.Errorf("re-fetching stage credentials: %w", err)
	}
	return s.rebuild(ctx, desc)
}

func (s *Store) fullKey(key string) string {
	if s.pathBase == "" {
		return key
	}
	return s.pathBase + "/" + key
}

func (s *Store) retryConfig(op string) retry.Config {
	return retry.Config{
		MaxRetries:       constants.ClientSideMaxRetries,
		RenewCredentials: s.RenewCredentials,
		OnRetry: func(attempt int, err error, kind retry.Kind) {
			s.log.Warn().Err(err).Int("attempt", attempt).Str("kind", kind.String()).Str("op", op).Msg("retrying S3 call")
		},
	}
}

// Put implements storage.Store. The body must be seekable so each retry
// re-sends from the start.
func (s *Store) Put(ctx context.Context, in storage.PutInput) (int64, error) {
	key := s.fullKey(in.Key)
	var lastErr error

	err := retry.Execute(ctx, s.retryConfig("PutObject"), func() error {
		if _, serr := in.Body.Seek(0, io.SeekStart); serr != nil {
			return serr
		}

		uploader := manager.NewUploader(s.current(), func(u *manager.Uploader) {
			u.Concurrency = max(1, in.InnerParallel)
		})

		input := &s3.PutObjectInput{
			Bucket:   aws.String(s.bucket),
			Key:      aws.String(key),
			Body:     in.Body,
			Metadata: in.UserMetadata,
		}
		if in.ContentEncoding != "" {
			input.ContentEncoding = aws.String(in.ContentEncoding)
		}

		_, uerr := uploader.Upload(ctx, input)
		lastErr = uerr
		return uerr
	})
	if err != nil {
		return 0, classifyFinal(lastErr, err)
	}
	return in.Size, nil
}

// Get implements storage.Store, writing the object's bytes into dest.
func (s *Store) Get(ctx context.Context, key string, dest io.WriterAt) (int64, error) {
	fullKey := s.fullKey(key)
	var lastErr error
	var n int64

	err := retry.Execute(ctx, s.retryConfig("GetObject"), func() error {
		downloader := manager.NewDownloader(s.current())
		written, derr := downloader.Download(ctx, dest, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(fullKey),
		})
		lastErr = derr
		if derr == nil {
			n = written
		}
		return derr
	})
	if err != nil {
		return 0, classifyFinal(lastErr, err)
	}
	return n, nil
}

// List implements storage.Store, enumerating every object under prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]storage.ObjectMetadata, error) {
	fullPrefix := s.fullKey(prefix)
	var out []storage.ObjectMetadata
	var lastErr error

	err := retry.Execute(ctx, s.retryConfig("ListObjectsV2"), func() error {
		out = out[:0]
		paginator := s3.NewListObjectsV2Paginator(s.current(), &s3.ListObjectsV2Input{
			Bucket: aws.String(s.bucket),
			Prefix: aws.String(fullPrefix),
		})
		for paginator.HasMorePages() {
			page, perr := paginator.NextPage(ctx)
			if perr != nil {
				lastErr = perr
				return perr
			}
			for _, obj := range page.Contents {
				out = append(out, storage.ObjectMetadata{
					Key:  aws.ToString(obj.Key),
					Size: aws.ToInt64(obj.Size),
					ETag: aws.ToString(obj.ETag),
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, classifyFinal(lastErr, err)
	}
	return out, nil
}

// Head implements storage.Store.
func (s *Store) Head(ctx context.Context, key string) (storage.ObjectMetadata, error) {
	fullKey := s.fullKey(key)
	var lastErr error
	var meta storage.ObjectMetadata

	err := retry.Execute(ctx, s.retryConfig("HeadObject"), func() error {
		out, herr := s.current().HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(fullKey),
		})
		lastErr = herr
		if herr != nil {
			return herr
		}
		_, encrypted := out.Metadata["x-amz-matdesc"]
		meta = storage.ObjectMetadata{
			Key:          key,
			Size:         aws.ToInt64(out.ContentLength),
			ETag:         aws.ToString(out.ETag),
			UserMetadata: out.Metadata,
			Encrypted:    encrypted,
		}
		return nil
	})
	if err != nil {
		return storage.ObjectMetadata{}, classifyFinal(lastErr, err)
	}
	return meta, nil
}

// Shutdown implements storage.Store; the SDK client owns no resources
// that need explicit release.
func (s *Store) Shutdown(ctx context.Context) error {
	return nil
}

// classifyFinal turns the last raw SDK error observed (rawErr) into one
// of the per-file error types once the outer retry budget (wrapErr) is
// spent. rawErr carries the service error detail; wrapErr
// only tells us retry.Execute gave up.
func classifyFinal(rawErr, wrapErr error) error {
	if rawErr == nil {
		rawErr = wrapErr
	}

	var invalidKey *model.InvalidKeyError
	if errors.As(rawErr, &invalidKey) {
		return invalidKey
	}

	var apiErr smithy.APIError
	if errors.As(rawErr, &apiErr) {
		svcErr := &model.PermanentServiceError{
			ServiceErrorType: apiErr.ErrorFault().String(),
			Code:             apiErr.ErrorCode(),
			Message:          apiErr.ErrorMessage(),
		}
		var respErr *awshttp.ResponseError
		if errors.As(rawErr, &respErr) {
			svcErr.RequestID = respErr.ServiceRequestID()
		}
		return svcErr
	}

	return wrapErr
}
