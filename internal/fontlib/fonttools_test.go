package fontlib

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner emulates the fontTools command lines closely enough to exercise
// the file handling around them. It records every invocation.
type fakeRunner struct {
	calls   [][]string
	version string
	members int
	failOn  string
	failErr error
}

func (r *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, append([]string{name}, args...))

	joined := strings.Join(args, " ")
	if r.failOn != "" && strings.Contains(joined, r.failOn) {
		return nil, r.failErr
	}

	switch {
	case args[0] == "-c" && args[1] == versionProbeCode:
		return []byte(r.version + "\n"), nil
	case args[0] == "-c" && args[1] == memberCountCode:
		return []byte(strconv.Itoa(r.members) + "\n"), nil
	case args[0] == "-c" && args[1] == collectionSaveCode:
		// -c code out members...
		var merged []byte
		for _, m := range args[3:] {
			data, err := os.ReadFile(m)
			if err != nil {
				return nil, err
			}
			merged = append(merged, data...)
			merged = append(merged, '\n')
		}
		return nil, os.WriteFile(args[2], merged, 0o600)
	case args[1] == moduleScaleUpem:
		// -m module --output-file out in upm
		data, err := os.ReadFile(args[4])
		if err != nil {
			return nil, err
		}
		return nil, os.WriteFile(args[3], append(data, []byte("|upm="+args[5])...), 0o600)
	case args[1] == moduleTTLib && args[2] == "-y":
		// -m module -y i -o member src
		data, err := os.ReadFile(args[6])
		if err != nil {
			return nil, err
		}
		return nil, os.WriteFile(args[5], append([]byte("member"+args[3]+":"), data[:4]...), 0o600)
	}
	return nil, errors.New("unexpected command: " + joined)
}

func writeSource(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestCheckVersion(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		version string
		wantErr error
		errText string
	}{
		{name: "new enough", version: "4.53.1"},
		{name: "exact minimum", version: MinFontToolsVersion},
		{name: "too old", version: "4.28.5", wantErr: ErrFontToolsTooOld},
		{name: "garbage", version: "not-a-version", errText: "unrecognised fontTools version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRunner{version: tt.version}
			ft := NewFontTools("python3", WithRunner(r))

			v, err := ft.CheckVersion(ctx)
			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			case tt.errText != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errText)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.version, v.String())
			}
			assert.Equal(t, []string{"python3", "-c", versionProbeCode}, r.calls[0])
		})
	}
}

func TestCheckVersion_MissingInterpreter(t *testing.T) {
	r := &fakeRunner{failOn: versionProbeCode, failErr: errors.New("exec: not found")}
	ft := NewFontTools("/no/python", WithRunner(r))

	_, err := ft.CheckVersion(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/no/python")
}

func TestFontTools_SingleFontRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := writeSource(t, "A.TTF", []byte("font-bytes"))
	r := &fakeRunner{}
	ft := NewFontTools("py", WithRunner(r), WithTempDir(t.TempDir()))

	f, err := ft.OpenFont(ctx, src)
	require.NoError(t, err)
	work := f.(*ftFont).path
	assert.True(t, strings.HasSuffix(work, ".ttf"))

	require.NoError(t, ft.ScaleUpem(ctx, f, 1000))
	require.Len(t, r.calls, 1)
	assert.Equal(t, []string{"py", "-m", moduleScaleUpem, "--output-file", work + ".scaled", work, "1000"}, r.calls[0])

	dst := filepath.Join(t.TempDir(), "A.TTF")
	require.NoError(t, f.Save(ctx, dst))
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "font-bytes|upm=1000", string(got))

	src0, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, "font-bytes", string(src0), "source is never modified")

	dir := f.(*ftFont).dir
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestFontTools_ScaleFailure(t *testing.T) {
	ctx := context.Background()
	src := writeSource(t, "A.ttf", []byte("font-bytes"))
	r := &fakeRunner{
		failOn:  moduleScaleUpem,
		failErr: &CommandError{Err: errors.New("exit status 1"), Message: "TTLibError: Not a TrueType or OpenType font (bad sfntVersion)"},
	}
	ft := NewFontTools("py", WithRunner(r), WithTempDir(t.TempDir()))

	f, err := ft.OpenFont(ctx, src)
	require.NoError(t, err)
	defer f.Close()

	err = ft.ScaleUpem(ctx, f, 1000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), moduleScaleUpem)
	assert.Contains(t, err.Error(), "bad sfntVersion")

	var cmdErr *CommandError
	assert.ErrorAs(t, err, &cmdErr)
}

func TestFontTools_OpenFontMissing(t *testing.T) {
	ft := NewFontTools("py", WithRunner(&fakeRunner{}), WithTempDir(t.TempDir()))
	_, err := ft.OpenFont(context.Background(), filepath.Join(t.TempDir(), "gone.ttf"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestFontTools_ForeignHandle(t *testing.T) {
	ctx := context.Background()
	a := NewFontTools("py", WithRunner(&fakeRunner{}), WithTempDir(t.TempDir()))
	b := NewFontTools("py", WithRunner(&fakeRunner{}), WithTempDir(t.TempDir()))

	f, err := a.OpenFont(ctx, writeSource(t, "A.ttf", []byte("x")))
	require.NoError(t, err)
	defer f.Close()

	require.ErrorIs(t, b.ScaleUpem(ctx, f, 1000), ErrForeignHandle)
}

func TestFontTools_Collection(t *testing.T) {
	ctx := context.Background()
	src := writeSource(t, "Pack.ttc", []byte("ttcf-bytes"))
	r := &fakeRunner{members: 2}
	ft := NewFontTools("py", WithRunner(r), WithTempDir(t.TempDir()))

	coll, err := ft.OpenCollection(ctx, src)
	require.NoError(t, err)
	fonts := coll.Fonts()
	require.Len(t, fonts, 2)

	m0 := fonts[0].(*ftFont).path
	m1 := fonts[1].(*ftFont).path
	assert.Equal(t, []string{"py", "-c", memberCountCode, src}, r.calls[0])
	assert.Equal(t, []string{"py", "-m", moduleTTLib, "-y", "0", "-o", m0, src}, r.calls[1])
	assert.Equal(t, []string{"py", "-m", moduleTTLib, "-y", "1", "-o", m1, src}, r.calls[2])

	for _, f := range fonts {
		require.NoError(t, ft.ScaleUpem(ctx, f, 1000))
	}

	dst := filepath.Join(t.TempDir(), "Pack.ttc")
	require.NoError(t, coll.Save(ctx, dst))
	assert.Equal(t, []string{"py", "-c", collectionSaveCode, dst, m0, m1}, r.calls[len(r.calls)-1])

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(got)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "member0:ttcf|upm=1000", lines[0])
	assert.Equal(t, "member1:ttcf|upm=1000", lines[1])

	dir := coll.(*ftCollection).dir
	require.NoError(t, coll.Close())
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestFontTools_SingleMemberCollectionStaysCollection(t *testing.T) {
	ctx := context.Background()
	src := writeSource(t, "Solo.otc", []byte("ttcf-solo"))
	r := &fakeRunner{members: 1}
	ft := NewFontTools("py", WithRunner(r), WithTempDir(t.TempDir()))

	coll, err := ft.OpenCollection(ctx, src)
	require.NoError(t, err)
	defer coll.Close()

	fonts := coll.Fonts()
	require.Len(t, fonts, 1)
	member := fonts[0].(*ftFont).path

	dst := filepath.Join(t.TempDir(), "Solo.otc")
	require.NoError(t, coll.Save(ctx, dst))

	last := r.calls[len(r.calls)-1]
	assert.Equal(t, []string{"py", "-c", collectionSaveCode, dst, member}, last)
	assert.NotContains(t, last, moduleTTLib, "collections are not written through the ttLib command line")
	assert.Contains(t, collectionSaveCode, "TTCollection()")
}

func TestFontTools_CorruptCollection(t *testing.T) {
	libErr := &CommandError{
		Err:     errors.New("exit status 1"),
		Message: "fontTools.ttLib.TTLibError: Not a Font Collection",
	}
	r := &fakeRunner{failOn: memberCountCode, failErr: libErr}
	tmp := t.TempDir()
	ft := NewFontTools("py", WithRunner(r), WithTempDir(tmp))

	_, err := ft.OpenCollection(context.Background(), writeSource(t, "B.ttc", []byte("garbage")))
	require.Error(t, err)
	assert.Equal(t, "fontTools.ttLib.TTLibError: Not a Font Collection", err.Error(),
		"the library's message is reported as is")
	assert.Len(t, r.calls, 1, "nothing is split from an unreadable collection")

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFontTools_CollectionBadCount(t *testing.T) {
	ft := NewFontTools("py", WithRunner(&fakeRunner{members: 0}), WithTempDir(t.TempDir()))

	_, err := ft.OpenCollection(context.Background(), writeSource(t, "Empty.ttc", []byte("ttcf")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no fonts")
}

func TestFontTools_CollectionSplitFailureCleansUp(t *testing.T) {
	tmp := t.TempDir()
	r := &fakeRunner{members: 1, failOn: "-y", failErr: &CommandError{Err: errors.New("exit status 1"), Message: "boom"}}
	ft := NewFontTools("py", WithRunner(r), WithTempDir(tmp))

	_, err := ft.OpenCollection(context.Background(), writeSource(t, "Go.ttc", []byte("ttcf")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCommandError(t *testing.T) {
	base := errors.New("exit status 2")
	err := &CommandError{Err: base, Message: "KeyError: 'head'"}
	assert.Equal(t, "KeyError: 'head'", err.Error())
	require.ErrorIs(t, err, base)

	assert.Equal(t, "exit status 2", (&CommandError{Err: base}).Error())
}

func TestLastLine(t *testing.T) {
	stderr := "Traceback (most recent call last):\n  File \"x.py\", line 1\nTTLibError: bad sfntVersion\n\n"
	assert.Equal(t, "TTLibError: bad sfntVersion", lastLine(stderr))
	assert.Empty(t, lastLine("  \n"))
}

func TestExecRunner(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	ctx := context.Background()

	out, err := ExecRunner{}.Run(ctx, sh, "-c", "echo 4.53.1")
	require.NoError(t, err)
	assert.Equal(t, "4.53.1\n", string(out))

	_, err = ExecRunner{}.Run(ctx, sh, "-c", "echo 'Traceback' >&2; echo 'ValueError: nope' >&2; exit 3")
	require.Error(t, err)
	assert.Equal(t, "ValueError: nope", err.Error())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = ExecRunner{}.Run(cancelled, sh, "-c", "sleep 5")
	require.ErrorIs(t, err, context.Canceled)
}
