package cli

import (
	"context"
	"testing"

	"github.com/gregakespret/sfagent/internal/config"
	"github.com/gregakespret/sfagent/internal/model"
)

func TestBuildStoreLocalFS(t *testing.T) {
	dir := t.TempDir()
	store, err := buildStore(context.Background(), model.StageDescriptor{
		Kind:     model.StageLocalFS,
		Location: dir,
	}, config.Default(), nil)
	if err != nil {
		t.Fatalf("buildStore: %v", err)
	}
	if store == nil {
		t.Fatal("expected a non-nil store")
	}
}
