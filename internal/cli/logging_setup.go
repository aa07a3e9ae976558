package cli

import (
	"github.com/spf13/cobra"

	"github.com/rshade/fixupem/internal/config"
	"github.com/rshade/fixupem/internal/logging"
)

// setupLogging builds the run logger from cfg, tags it with a fresh run ID and
// stores it in the command context.
func setupLogging(cmd *cobra.Command, cfg *config.Config) *logging.Result {
	result := logging.NewLogger(cfg.Logging.ToLoggingConfig())
	logger := logging.ComponentLogger(result.Logger, "cli")

	if result.FallbackUsed {
		logging.PrintFallbackWarning(cmd.ErrOrStderr(), result.FallbackReason)
	}

	runID := logging.NewRunID()
	ctx := logging.WithRunID(cmd.Context(), result.Logger, runID)
	cmd.SetContext(ctx)

	logger.Debug().
		Str("run_id", runID).
		Str("command", cmd.Name()).
		Str("python", cfg.Python).
		Bool("verify", cfg.Verify).
		Msg("command started")

	return result
}
