package fontlib

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/rshade/fixupem/internal/logging"
)

// fontTools module entry points.
const (
	moduleTTLib     = "fontTools.ttLib"
	moduleScaleUpem = "fontTools.ttLib.scaleUpem"
)

// Inline programs run with "python -c". Arguments follow the program in sys.argv[1:].
const (
	versionProbeCode = "import fontTools; print(fontTools.version)"

	// memberCountCode prints the number of fonts in the collection sys.argv[1].
	memberCountCode = "import sys; from fontTools.ttLib import TTCollection; " +
		"print(len(TTCollection(sys.argv[1]).fonts))"

	// collectionSaveCode writes the fonts sys.argv[2:] as a collection to sys.argv[1],
	// even when there is only one of them.
	collectionSaveCode = "import sys; from fontTools.ttLib import TTCollection, TTFont; " +
		"c = TTCollection(); c.fonts = [TTFont(p) for p in sys.argv[2:]]; c.save(sys.argv[1])"
)

// MinFontToolsVersion is the oldest fontTools release whose ttLib command line
// can split collections by index and merge fonts back into a collection.
const MinFontToolsVersion = "4.40.0"

// ErrFontToolsTooOld is returned by CheckVersion when the installed fontTools is older than MinFontToolsVersion.
var ErrFontToolsTooOld = errors.New("fontTools is too old")

// FontTools drives the fontTools Python package through its module command lines.
// Every handle it returns is a private working copy in a temporary directory,
// so the source file is only ever read.
type FontTools struct {
	python  string
	tempDir string
	runner  Runner
}

// Option configures FontTools.
type Option func(*FontTools)

// WithRunner replaces the command runner.
func WithRunner(r Runner) Option {
	return func(ft *FontTools) { ft.runner = r }
}

// WithTempDir sets the parent directory for working copies.
func WithTempDir(dir string) Option {
	return func(ft *FontTools) { ft.tempDir = dir }
}

// NewFontTools returns a Library that runs fontTools with the given interpreter.
func NewFontTools(python string, opts ...Option) *FontTools {
	ft := &FontTools{
		python: python,
		runner: ExecRunner{},
	}
	for _, opt := range opts {
		opt(ft)
	}
	return ft
}

// CheckVersion returns the installed fontTools version, or an error if it is
// missing or older than MinFontToolsVersion.
func (ft *FontTools) CheckVersion(ctx context.Context) (*semver.Version, error) {
	out, err := ft.runner.Run(ctx, ft.python, "-c", versionProbeCode)
	if err != nil {
		return nil, fmt.Errorf("fontTools not available via %s: %w", ft.python, err)
	}

	raw := strings.TrimSpace(string(out))
	v, err := semver.NewVersion(raw)
	if err != nil {
		return nil, fmt.Errorf("unrecognised fontTools version %q: %w", raw, err)
	}

	minVersion := semver.MustParse(MinFontToolsVersion)
	if v.LessThan(minVersion) {
		return v, fmt.Errorf("%w: found %s, need >= %s", ErrFontToolsTooOld, v, minVersion)
	}
	return v, nil
}

// OpenFont copies the font at path into a working directory.
func (ft *FontTools) OpenFont(ctx context.Context, path string) (Font, error) {
	dir, err := os.MkdirTemp(ft.tempDir, "fixupem-font-*")
	if err != nil {
		return nil, fmt.Errorf("creating working directory: %w", err)
	}

	work := filepath.Join(dir, "font"+strings.ToLower(filepath.Ext(path)))
	if err = copyFile(path, work); err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}

	logging.FromContext(ctx).Debug().
		Str("component", "fontlib").
		Str("source", path).
		Str("work", work).
		Msg("opened font")

	return &ftFont{lib: ft, path: work, dir: dir}, nil
}

// OpenCollection splits the collection at path into one working font per member.
// A file fontTools cannot read as a collection fails with fontTools' own message.
func (ft *FontTools) OpenCollection(ctx context.Context, path string) (Collection, error) {
	n, err := ft.countMembers(ctx, path)
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp(ft.tempDir, "fixupem-collection-*")
	if err != nil {
		return nil, fmt.Errorf("creating working directory: %w", err)
	}

	coll := &ftCollection{lib: ft, dir: dir}
	for i := 0; i < n; i++ {
		member := filepath.Join(dir, fmt.Sprintf("member-%03d.ttf", i))
		if _, runErr := ft.runner.Run(ctx, ft.python, "-m", moduleTTLib,
			"-y", strconv.Itoa(i), "-o", member, path); runErr != nil {
			_ = os.RemoveAll(dir)
			return nil, wrapModule(moduleTTLib, runErr)
		}
		coll.fonts = append(coll.fonts, &ftFont{lib: ft, path: member})
	}

	logging.FromContext(ctx).Debug().
		Str("component", "fontlib").
		Str("source", path).
		Int("members", n).
		Msg("opened collection")

	return coll, nil
}

func (ft *FontTools) countMembers(ctx context.Context, path string) (int, error) {
	out, err := ft.runner.Run(ctx, ft.python, "-c", memberCountCode, path)
	if err != nil {
		return 0, err
	}
	raw := strings.TrimSpace(string(out))
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("unexpected member count %q from fontTools", raw)
	}
	if n < 1 {
		return 0, fmt.Errorf("collection %s has no fonts", filepath.Base(path))
	}
	return n, nil
}

// ScaleUpem runs fontTools' scaleUpem on the working copy behind f.
func (ft *FontTools) ScaleUpem(ctx context.Context, f Font, upm int) error {
	font, ok := f.(*ftFont)
	if !ok || font.lib != ft {
		return ErrForeignHandle
	}

	out := font.path + ".scaled"
	if _, err := ft.runner.Run(ctx, ft.python, "-m", moduleScaleUpem,
		"--output-file", out, font.path, strconv.Itoa(upm)); err != nil {
		_ = os.Remove(out)
		return wrapModule(moduleScaleUpem, err)
	}

	if err := os.Rename(out, font.path); err != nil {
		return fmt.Errorf("replacing working copy: %w", err)
	}

	logging.FromContext(ctx).Debug().
		Str("component", "fontlib").
		Str("work", font.path).
		Int("upm", upm).
		Msg("scaled font")
	return nil
}

type ftFont struct {
	lib  *FontTools
	path string
	// dir is the working directory owned by this handle; empty for collection members.
	dir string
}

func (f *ftFont) Save(_ context.Context, path string) error {
	return copyFile(f.path, path)
}

func (f *ftFont) Close() error {
	if f.dir == "" {
		return nil
	}
	err := os.RemoveAll(f.dir)
	f.dir = ""
	return err
}

type ftCollection struct {
	lib   *FontTools
	dir   string
	fonts []*ftFont
}

func (c *ftCollection) Fonts() []Font {
	fonts := make([]Font, len(c.fonts))
	for i, f := range c.fonts {
		fonts[i] = f
	}
	return fonts
}

func (c *ftCollection) Save(ctx context.Context, path string) error {
	args := []string{"-c", collectionSaveCode, path}
	for _, f := range c.fonts {
		args = append(args, f.path)
	}
	_, err := c.lib.runner.Run(ctx, c.lib.python, args...)
	return err
}

func (c *ftCollection) Close() error {
	if c.dir == "" {
		return nil
	}
	err := os.RemoveAll(c.dir)
	c.dir = ""
	return err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
