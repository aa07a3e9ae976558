// Package rescale implements the batch: plan the font files in a source
// directory, rescale each one through a fontlib.Library, and write the results
// atomically into a destination directory.
package rescale

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/rshade/fixupem/internal/config"
	"github.com/rshade/fixupem/internal/engine/batch"
	"github.com/rshade/fixupem/internal/fontfile"
	"github.com/rshade/fixupem/internal/fontlib"
	"github.com/rshade/fixupem/internal/logging"
	"github.com/rshade/fixupem/internal/report"
)

// ErrVerify is returned when a written font does not carry the target units-per-em.
var ErrVerify = errors.New("output verification failed")

// dirPerm is used when creating the destination directory.
const dirPerm = 0o755

// filePerm is applied to outputs before they are renamed into place.
const filePerm = 0o644

// Result is the outcome of one job.
type Result = batch.Result[Job, struct{}]

// Report summarises a run.
type Report struct {
	DstDir    string
	Results   []Result
	Succeeded int
	Failed    int
	Skipped   int
}

// Rescaler runs the batch.
type Rescaler struct {
	lib fontlib.Library
	out *report.Printer
}

// New returns a Rescaler that scales fonts with lib and prints progress to out.
func New(lib fontlib.Library, out *report.Printer) *Rescaler {
	return &Rescaler{lib: lib, out: out}
}

// Run creates the destination directory, plans the jobs and processes them in
// name order. A failing file is reported and skipped; it never aborts the run.
// The returned error is reserved for fatal conditions: an unusable source or
// destination directory, or cancellation of ctx.
func (r *Rescaler) Run(ctx context.Context, cfg *config.Config) (*Report, error) {
	logger := logging.ComponentLogger(*logging.FromContext(ctx), "rescale")

	if err := os.MkdirAll(cfg.DstDir, dirPerm); err != nil {
		return nil, fmt.Errorf("creating destination directory: %w", err)
	}

	jobs, err := Plan(cfg.SrcDir, cfg.DstDir, cfg.TargetUPM)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("src_dir", cfg.SrcDir).
		Str("dst_dir", cfg.DstDir).
		Int("target_upm", cfg.TargetUPM).
		Int("jobs", len(jobs)).
		Bool("dry_run", cfg.DryRun).
		Msg("batch planned")

	if !cfg.UPMInRecommendedRange() {
		logger.Warn().
			Int("target_upm", cfg.TargetUPM).
			Int("min", config.MinUPM).
			Int("max", config.MaxUPM).
			Msg("target UPM is outside the OpenType recommended range")
	}

	rep := &Report{DstDir: cfg.DstDir}

	if cfg.DryRun {
		for _, job := range jobs {
			r.out.Planned(job.Name, job.Destination, job.TargetUPM)
		}
		r.out.PlanSummary(cfg.DstDir, len(jobs))
		return rep, nil
	}

	proc := batch.NewProcessor[Job, struct{}]().WithProgressCallback(func(p *batch.Progress) {
		snap := p.Snapshot()
		logger.Debug().
			Int("processed", snap.ProcessedItems).
			Int("total", snap.TotalItems).
			Int("failed", snap.FailedItems).
			Dur("remaining", p.EstimatedTimeRemaining()).
			Msg("progress")
	})

	results, runErr := proc.Process(ctx, jobs, func(ctx context.Context, job Job, _ int) (struct{}, error) {
		r.out.Processing(job.Name, job.Destination, job.TargetUPM)

		if err := r.rescaleJob(ctx, logger, job, cfg.Verify); err != nil {
			r.out.Failed(job.Name, err)
			logger.Warn().Err(err).Str("file", job.Name).Msg("rescale failed")
			return struct{}{}, err
		}

		logger.Debug().Str("file", job.Name).Str("kind", job.Kind.String()).Msg("rescaled")
		return struct{}{}, nil
	})

	rep.Results = results
	for _, res := range results {
		switch {
		case res.Skipped:
			rep.Skipped++
		case res.Err != nil:
			rep.Failed++
		default:
			rep.Succeeded++
		}
	}

	r.out.Done(cfg.DstDir, rep.Succeeded, rep.Failed)

	notConverted := batch.Failed(results)
	names := make([]string, 0, len(notConverted))
	for _, res := range notConverted {
		names = append(names, res.Item.Name)
	}

	logger.Info().
		Int("succeeded", rep.Succeeded).
		Int("failed", rep.Failed).
		Int("skipped", rep.Skipped).
		Strs("not_converted", names).
		Msg("batch finished")

	if runErr != nil {
		return rep, fmt.Errorf("run interrupted after %d of %d files: %w",
			rep.Succeeded+rep.Failed, len(jobs), runErr)
	}
	return rep, nil
}

// rescaleJob writes the rescaled font to a temporary file next to the
// destination and renames it into place only once it is complete and verified.
// On failure the destination is untouched.
func (r *Rescaler) rescaleJob(ctx context.Context, logger zerolog.Logger, job Job, verify bool) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(job.Destination), tempPattern(job.Name))
	if err != nil {
		return fmt.Errorf("creating temporary output: %w", err)
	}
	tmpPath := tmp.Name()
	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	if err = ProcessFont(ctx, r.lib, job.Source, tmpPath, job.TargetUPM); err != nil {
		return err
	}

	fi, err := os.Stat(tmpPath)
	if err != nil {
		return err
	}
	if fi.Size() == 0 {
		// Nothing was written, e.g. an extension ProcessFont does not handle.
		return nil
	}

	if verify {
		if err = verifyOutput(logger, tmpPath, job.TargetUPM); err != nil {
			return err
		}
	}

	if err = os.Chmod(tmpPath, filePerm); err != nil {
		return err
	}
	if err = os.Rename(tmpPath, job.Destination); err != nil {
		return fmt.Errorf("moving output into place: %w", err)
	}
	committed = true
	return nil
}

// tempPattern names in-progress outputs. The .tmp suffix keeps a leftover from a
// killed run out of Plan when the source and destination directories are the same.
func tempPattern(name string) string {
	return "." + name + ".fixupem-*.tmp"
}

// verifyOutput checks that every member of the font at path reports upm.
// Outputs the sfnt parser cannot read are accepted with a warning, since the
// library may emit formats the parser does not support.
func verifyOutput(logger zerolog.Logger, path string, upm int) error {
	info, err := fontfile.Inspect(path)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("could not verify output, accepting it unverified")
		return nil
	}
	for _, m := range info.Members {
		if m.UnitsPerEm != upm {
			return fmt.Errorf("%w: member %d has unitsPerEm %d, want %d", ErrVerify, m.Index, m.UnitsPerEm, upm)
		}
	}
	return nil
}
