// Package cli wires the core (C1-C8) to a command line: cobra
// subcommands that assemble a TransferPlan, hand it to the
// orchestrator, and project the result through the status view.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gregakespret/sfagent/internal/logging"
)

var (
	cfgFile string
	verbose bool
	debug   bool

	rootContext context.Context
	cancelFunc  context.CancelFunc

	logger *logging.Logger
)

// NewRootCmd builds the sfagent root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sfagent",
		Short: "Bulk file transfer agent for object-storage staging areas",
		Long: `sfagent moves files between the local filesystem and an
object-storage staging area (S3-compatible or a local directory acting
as LOCAL_FS), with compression classification, idempotent skip
detection, and bounded-concurrency transfer.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.NewDefaultLogger()
			if verbose || debug {
				logging.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path (defaults to ~/.config/sfagent/config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Debug output (same as --verbose)")

	rootCmd.AddCommand(newUploadCmd())
	rootCmd.AddCommand(newDownloadCmd())
	rootCmd.AddCommand(newTransferCmd())

	return rootCmd
}

// Execute runs the CLI, wiring SIGINT/SIGTERM to cooperative
// cancellation the way the orchestrator's Cancel expects.
func Execute() error {
	rootContext, cancelFunc = context.WithCancel(context.Background())
	defer cancelFunc()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		if sig, ok := <-sigChan; ok {
			fmt.Fprintf(os.Stderr, "\nreceived %v, canceling in-flight transfers...\n", sig)
			cancelFunc()
		}
	}()
	defer func() {
		signal.Stop(sigChan)
		close(sigChan)
	}()

	return NewRootCmd().Execute()
}

func getContext() context.Context {
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}

func getLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return logger
}
