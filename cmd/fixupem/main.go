// Command fixupem batch-rescales the fonts in a directory to a target units-per-em.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rshade/fixupem/internal/cli"
	"github.com/rshade/fixupem/pkg/version"
)

func main() {
	os.Exit(run(cli.NewRootCmd(version.GetVersion()), os.Stderr))
}

// run executes root and returns the process exit code. Per-file failures are
// reported by the command itself and still exit 0; only fatal errors exit 1.
func run(root *cobra.Command, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root.SilenceErrors = true
	if err := root.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
