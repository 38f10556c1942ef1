package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gregakespret/sfagent/internal/config"
	"github.com/gregakespret/sfagent/internal/model"
	"github.com/gregakespret/sfagent/internal/orchestrator"
	"github.com/gregakespret/sfagent/internal/progress"
	"github.com/gregakespret/sfagent/internal/statusview"
	sfstrings "github.com/gregakespret/sfagent/internal/util/strings"
)

func newUploadCmd() *cobra.Command {
	var (
		stageType      string
		location       string
		region         string
		awsID          string
		awsKey         string
		awsToken       string
		awsEndpoint    string
		parallel       int
		overwrite      bool
		autoCompress   bool
		sourceHint     string
		showEncryption bool
		sortRows       bool
		injectFailure  string
	)

	cmd := &cobra.Command{
		Use:   "upload <path> [path...]",
		Short: "Upload local files to the stage",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			hint := model.CompressionHint(sourceHint)
			if hint == "" {
				hint = model.HintAuto
			}

			plan := &model.TransferPlan{
				Verb:         model.Upload,
				SrcLocations: args,
				Stage: model.StageDescriptor{
					Kind:     model.StageKind(stageType),
					Location: location,
					Region:   region,
					Credentials: map[string]string{
						"AWS_ID":       awsID,
						"AWS_KEY":      awsKey,
						"AWS_TOKEN":    awsToken,
						"AWS_ENDPOINT": awsEndpoint,
					},
				},
				Flags: model.TransferFlags{
					AutoCompress:          autoCompress,
					Overwrite:             overwrite,
					Parallel:              config.ResolveParallel(model.TransferFlags{Parallel: parallel}, cfg),
					ShowEncryption:        showEncryption,
					SourceCompressionHint: hint,
					Sort:                  sortRows,
				},
				InjectFailure: injectFailure,
			}

			return runPlan(cmd, plan, cfg)
		},
	}

	cmd.Flags().StringVar(&stageType, "stage-type", "S3", "Stage kind: S3 or LOCAL_FS")
	cmd.Flags().StringVar(&location, "location", "", "Bucket (S3) or directory (LOCAL_FS), optionally with a /path/prefix")
	cmd.Flags().StringVar(&region, "region", "us-east-1", "S3 region")
	cmd.Flags().StringVar(&awsID, "aws-id", os.Getenv("AWS_ID"), "S3 access key id")
	cmd.Flags().StringVar(&awsKey, "aws-key", os.Getenv("AWS_KEY"), "S3 secret access key")
	cmd.Flags().StringVar(&awsToken, "aws-token", os.Getenv("AWS_TOKEN"), "S3 session token")
	cmd.Flags().StringVar(&awsEndpoint, "aws-endpoint", os.Getenv("AWS_ENDPOINT"), "S3-compatible endpoint override")
	cmd.Flags().IntVarP(&parallel, "parallel", "p", 0, "Small-file phase worker count (0 = config default)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Skip the skip-filter pass and always upload")
	cmd.Flags().BoolVar(&autoCompress, "auto-compress", false, "Gzip uncompressed files before upload")
	cmd.Flags().StringVar(&sourceHint, "source-compression", "", "AUTO, NONE, or a named codec")
	cmd.Flags().BoolVar(&showEncryption, "show-encryption", false, "Include the encryption column in the status report")
	cmd.Flags().BoolVar(&sortRows, "sort", false, "Sort the status report by source name")
	cmd.Flags().StringVar(&injectFailure, "inject-failure", "", "Test hook: fail any source path with this suffix")

	return cmd
}

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if p, err := config.Path(); err == nil {
			path = p
		}
	}
	return config.Load(path)
}

// runPlan drives plan through the orchestrator and renders the result
// to stdout, returning a non-nil error only for global failures
// (everything else is reported per-file in the table).
func runPlan(cmd *cobra.Command, plan *model.TransferPlan, cfg *config.Config) error {
	ctx := getContext()
	store, err := buildStore(ctx, plan.Stage, cfg, nil)
	if err != nil {
		return fmt.Errorf("connecting to stage: %w", err)
	}
	defer store.Shutdown(ctx)

	orch := orchestrator.New(store)
	result, err := orch.Run(ctx, plan, orchestrator.Options{Progress: progress.NewCLIProgress()})
	if err != nil {
		return err
	}

	if renderErr := statusview.Render(cmd.OutOrStdout(), result.Files, statusview.Options{
		Verb:           plan.Verb,
		ShowEncryption: plan.Flags.ShowEncryption,
		Sort:           plan.Flags.Sort,
	}); renderErr != nil {
		return renderErr
	}

	count := int64(len(result.Files))
	verb := "uploaded"
	if plan.Verb == model.Download {
		verb = "downloaded"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d %s %s\n", count, sfstrings.Pluralize("file", count), verb)

	if !result.Completed {
		return fmt.Errorf("transfer canceled")
	}
	return nil
}
