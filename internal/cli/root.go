package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rshade/fixupem/internal/config"
	"github.com/rshade/fixupem/internal/fontlib"
	"github.com/rshade/fixupem/internal/logging"
	"github.com/rshade/fixupem/internal/report"
	"github.com/rshade/fixupem/internal/rescale"
)

// LibraryFactory builds the font library for a run. It is not called for dry runs.
type LibraryFactory func(ctx context.Context, cfg *config.Config) (fontlib.Library, error)

// Deps are the process-level collaborators of the root command, injectable for tests.
type Deps struct {
	LookupEnv  func(string) (string, bool)
	NewLibrary LibraryFactory
}

// DefaultDeps reads the real environment and drives fontTools.
func DefaultDeps() Deps {
	return Deps{
		LookupEnv:  os.LookupEnv,
		NewLibrary: NewFontToolsLibrary,
	}
}

// NewFontToolsLibrary returns a fontTools-backed library after checking that
// the configured interpreter has a usable fontTools installed.
func NewFontToolsLibrary(ctx context.Context, cfg *config.Config) (fontlib.Library, error) {
	ft := fontlib.NewFontTools(cfg.Python)
	v, err := ft.CheckVersion(ctx)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Debug().
		Str("component", "cli").
		Str("python", cfg.Python).
		Str("fonttools", v.String()).
		Msg("font library ready")
	return ft, nil
}

// rootFlags holds flag values before they are merged into the config.
type rootFlags struct {
	configPath string
	srcDir     string
	dstDir     string
	python     string
	verify     bool
	dryRun     bool
	debug      bool
	noColor    bool
}

// NewRootCmd creates the fixupem command.
func NewRootCmd(ver string) *cobra.Command {
	return NewRootCmdWithDeps(ver, DefaultDeps())
}

// NewRootCmdWithDeps creates the root command with explicit collaborators for testability.
func NewRootCmdWithDeps(ver string, deps Deps) *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:     "fixupem [target_upm]",
		Short:   "Batch-rescale fonts to a target units-per-em",
		Long:    rootLong,
		Version: ver,
		Example: rootExample,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, args, &flags, deps.LookupEnv)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			logResult := setupLogging(cmd, cfg)
			defer func() { _ = logResult.Close() }()

			return runBatch(cmd, cfg, deps.NewLibrary)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.srcDir, "src-dir", config.DefaultSrcDir, "source directory to scan (not recursive)")
	f.StringVar(&flags.dstDir, "dst-dir", config.DefaultDstDir, "destination directory for processed fonts")
	f.StringVar(&flags.configPath, "config", "", "path to a YAML configuration file")
	f.StringVar(&flags.python, "python", config.DefaultPython, "Python interpreter with fontTools installed")
	f.BoolVar(&flags.verify, "verify", true, "re-read each output and check its unitsPerEm")
	f.BoolVar(&flags.dryRun, "dry-run", false, "list the files that would be processed without writing any")
	f.BoolVar(&flags.debug, "debug", false, "enable debug logging")
	f.BoolVar(&flags.noColor, "no-color", false, "disable colored output")

	return cmd
}

// resolveConfig merges defaults, config file, environment, flags and the
// positional argument, in increasing precedence.
func resolveConfig(
	cmd *cobra.Command,
	args []string,
	flags *rootFlags,
	lookupEnv func(string) (string, bool),
) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if err = cfg.ApplyEnv(lookupEnv); err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("src-dir") {
		cfg.SrcDir = flags.srcDir
	}
	if changed("dst-dir") {
		cfg.DstDir = flags.dstDir
	}
	if changed("python") {
		cfg.Python = flags.python
	}
	if changed("verify") {
		cfg.Verify = flags.verify
	}
	cfg.DryRun = flags.dryRun
	cfg.Color = !flags.noColor && isTerminal(cmd.OutOrStdout())

	if flags.debug {
		cfg.Logging.Level = "debug"
		cfg.Logging.Format = logging.FormatConsole
		cfg.Logging.File = ""
	}

	if len(args) == 1 {
		upm, parseErr := config.ParseUPM(args[0])
		if parseErr != nil {
			return nil, parseErr
		}
		cfg.TargetUPM = upm
	}

	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runBatch runs the rescaler with the resolved configuration.
func runBatch(cmd *cobra.Command, cfg *config.Config, newLibrary LibraryFactory) error {
	ctx := cmd.Context()

	var lib fontlib.Library
	if !cfg.DryRun {
		var err error
		if lib, err = newLibrary(ctx, cfg); err != nil {
			return fmt.Errorf("font library unavailable: %w", err)
		}
	}

	r := rescale.New(lib, report.New(cmd.OutOrStdout(), cfg.Color))
	_, err := r.Run(ctx, cfg)
	return err
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

const rootLong = `Rescale every .ttf, .otf, .ttc and .otc file directly inside a source
directory to a new units-per-em and write the results, under the same file
names, into a destination directory.

The outline and metric scaling is done by fontTools (scale_upem), which must be
installed for the configured Python interpreter. A file that fails is reported
and skipped; the remaining files are still processed.`

const rootExample = `  # Rescale ./firaCodeMono into ./fix_firaCodeMono at 1000 UPM
  fixupem

  # Rescale to 2048 UPM
  fixupem 2048 --src-dir fonts --dst-dir fonts-2048

  # Show what would be processed
  fixupem --dry-run --src-dir fonts

  # Use a virtualenv interpreter
  fixupem --python .venv/bin/python`
