package rescale

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rshade/fixupem/internal/fontfile"
)

// ErrSourceDir is returned when the source directory is missing or not a directory.
var ErrSourceDir = errors.New("invalid source directory")

// Job is one font file to rescale.
type Job struct {
	Name        string
	Source      string
	Destination string
	TargetUPM   int
	Kind        fontfile.Kind
}

// Plan lists the font files directly inside srcDir, sorted by name, and pairs
// each with a same-named destination in dstDir. Subdirectories, non-regular
// files and unsupported extensions are left out; only supported names are stat'ed.
func Plan(srcDir, dstDir string, upm int) ([]Job, error) {
	info, err := os.Stat(srcDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrSourceDir, srcDir)
	}

	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceDir, err)
	}

	var jobs []Job
	for _, entry := range entries {
		name := entry.Name()
		kind := fontfile.KindOf(name)
		if kind == fontfile.KindUnsupported {
			continue
		}

		src := filepath.Join(srcDir, name)
		// Stat follows symlinks, so a link to a font file is processed like the file.
		fi, statErr := os.Stat(src)
		if statErr != nil || !fi.Mode().IsRegular() {
			continue
		}

		jobs = append(jobs, Job{
			Name:        name,
			Source:      src,
			Destination: filepath.Join(dstDir, name),
			TargetUPM:   upm,
			Kind:        kind,
		})
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })
	return jobs, nil
}
