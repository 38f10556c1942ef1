package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/gregakespret/sfagent/internal/config"
	"github.com/gregakespret/sfagent/internal/model"
)

func newDownloadCmd() *cobra.Command {
	var (
		stageType      string
		location       string
		region         string
		awsID          string
		awsKey         string
		awsToken       string
		awsEndpoint    string
		localDir       string
		parallel       int
		showEncryption bool
		sortRows       bool
	)

	cmd := &cobra.Command{
		Use:   "download <key> [key...]",
		Short: "Download objects from the stage to a local directory",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			plan := &model.TransferPlan{
				Verb:         model.Download,
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
					Parallel:       config.ResolveParallel(model.TransferFlags{Parallel: parallel}, cfg),
					ShowEncryption: showEncryption,
					Sort:           sortRows,
				},
				LocalDownloadDir: localDir,
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
	cmd.Flags().StringVar(&localDir, "local-dir", ".", "Destination directory, created if missing")
	cmd.Flags().IntVarP(&parallel, "parallel", "p", 0, "Worker count (0 = config default)")
	cmd.Flags().BoolVar(&showEncryption, "show-encryption", false, "Include the encryption column in the status report")
	cmd.Flags().BoolVar(&sortRows, "sort", false, "Sort the status report by file name")

	return cmd
}
