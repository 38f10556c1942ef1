package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/gregakespret/sfagent/internal/planparse"
)

// newTransferCmd implements the external wire interface directly: a
// TransferPlan arrives as JSON (from executeCommand), alongside the
// original command text the anti-tampering check verifies a DOWNLOAD's
// localLocation against. upload/download exist as a friendlier,
// flag-driven path to the same orchestrator for interactive use.
func newTransferCmd() *cobra.Command {
	var planPath string
	var commandText string

	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Run a TransferPlan produced by an external command parser",
		Long: `transfer reads the JSON object executeCommand(commandText) would
return and drives it through the orchestrator. Pass --plan -
to read the JSON from stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload []byte
			var err error
			if planPath == "-" || planPath == "" {
				payload, err = io.ReadAll(cmd.InOrStdin())
			} else {
				payload, err = os.ReadFile(planPath)
			}
			if err != nil {
				return fmt.Errorf("reading plan: %w", err)
			}

			plan, err := planparse.Parse(commandText, payload)
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runPlan(cmd, plan, cfg)
		},
	}

	cmd.Flags().StringVar(&planPath, "plan", "-", "Path to the TransferPlan JSON, or - for stdin")
	cmd.Flags().StringVar(&commandText, "command-text", "", "Original command text, checked against localLocation for DOWNLOAD")

	return cmd
}
