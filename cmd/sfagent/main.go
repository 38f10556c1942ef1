// Command sfagent is the CLI entrypoint for the bulk file transfer agent.
package main

import (
	"fmt"
	"os"

	"github.com/gregakespret/sfagent/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
