package cli

import (
	"context"
	"fmt"

	"github.com/gregakespret/sfagent/internal/cloud/providers/localfs"
	"github.com/gregakespret/sfagent/internal/cloud/providers/s3"
	"github.com/gregakespret/sfagent/internal/cloud/storage"
	"github.com/gregakespret/sfagent/internal/config"
	"github.com/gregakespret/sfagent/internal/model"
	"github.com/gregakespret/sfagent/internal/transport"
)

// buildStore constructs C5's object-store adapter for desc. A LOCAL_FS
// stage is used directly for running sfagent against a plain directory
// (e.g. in tests or air-gapped setups); anything else is treated as S3.
func buildStore(ctx context.Context, desc model.StageDescriptor, cfg *config.Config, renew s3.RenewFunc) (storage.Store, error) {
	if desc.Kind == model.StageLocalFS {
		return localfs.New(desc.Location)
	}

	httpClient, err := transport.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("building transport: %w", err)
	}
	return s3.New(ctx, desc, httpClient, renew)
}
