package output

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/echopipe/internal/content"
	derrors "git.home.luguber.info/inful/echopipe/internal/foundation/errors"
	"git.home.luguber.info/inful/echopipe/internal/storage"
)

func newFormatter(t *testing.T, naming string, mirror storage.Store) (*Formatter, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "output")
	local, err := storage.NewFSStore(root)
	require.NoError(t, err)
	return New(local, naming, mirror), root
}

func sampleSet() content.RenderingSet {
	return content.RenderingSet{
		content.FormatMarkdown: "# Test\n\nbody",
		content.FormatHTML:     "<html><body><h1>Test</h1></body></html>",
		content.FormatJSONLD:   `{"headline": "Test"}`,
		content.Format("rtf"):  "plain",
	}
}

func TestFormatWritesFilesAndManifest(t *testing.T) {
	f, root := newFormatter(t, "", nil)
	meta := content.Metadata{Topic: "Test", Format: content.FormatMarkdown}

	manifest, err := f.Format(t.Context(), sampleSet(), meta, 3)
	require.NoError(t, err)

	dir := filepath.Join(root, "iteration-3")
	assert.Equal(t, content.Manifest{
		"html":              filepath.Join(dir, "index.html"),
		"jsonld":            filepath.Join(dir, "index.jsonld"),
		"markdown":          filepath.Join(dir, "index.md"),
		"rtf":               filepath.Join(dir, "index.txt"),
		content.MetadataKey: filepath.Join(dir, MetadataFile),
	}, manifest)

	data, err := os.ReadFile(manifest["markdown"])
	require.NoError(t, err)
	assert.Equal(t, "# Test\n\nbody", string(data))

	side, err := f.ReadSideFile(t.Context(), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, side.Iteration)
	assert.Equal(t, meta, side.Metadata)
	assert.Equal(t, []content.Format{"html", "jsonld", "markdown", "rtf"}, side.Formats)
	assert.Equal(t, "index.txt", side.Files["rtf"])
	assert.Equal(t, Fingerprint("# Test\n\nbody"), side.Fingerprints[content.FormatMarkdown])
	assert.NotEqual(t, side.Fingerprints[content.FormatMarkdown], side.Fingerprints[content.FormatHTML])
}

func TestFormatSameIterationOverwrites(t *testing.T) {
	f, root := newFormatter(t, "run_{iteration}", nil)
	set := sampleSet()

	first, err := f.Format(t.Context(), set, content.Metadata{}, 7)
	require.NoError(t, err)

	set[content.FormatMarkdown] = "# Changed"
	second, err := f.Format(t.Context(), set, content.Metadata{}, 7)
	require.NoError(t, err)

	assert.Equal(t, first.Keys(), second.Keys())
	assert.Equal(t, first, second)

	entries, err := os.ReadDir(filepath.Join(root, "run_7"))
	require.NoError(t, err)
	assert.Len(t, entries, len(set)+1)

	data, err := os.ReadFile(second["markdown"])
	require.NoError(t, err)
	assert.Equal(t, "# Changed", string(data))
}

func TestFormatMirrors(t *testing.T) {
	mirror := storage.NewMemoryStore()
	f, _ := newFormatter(t, "", mirror)
	_, err := f.Format(t.Context(), sampleSet(), content.Metadata{}, 1)
	require.NoError(t, err)

	keys, err := mirror.List(t.Context(), "iteration-1/")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"iteration-1/index.html",
		"iteration-1/index.jsonld",
		"iteration-1/index.md",
		"iteration-1/index.txt",
		"iteration-1/metadata.json",
	}, keys)
	assert.Equal(t, "text/markdown; charset=utf-8", mirror.ContentType("iteration-1/index.md"))
}

func TestMirrorFailureIsNotFatal(t *testing.T) {
	mirror := storage.NewMemoryStore()
	mirror.FailPut = errors.New("bucket offline")
	f, _ := newFormatter(t, "", mirror)
	manifest, err := f.Format(t.Context(), sampleSet(), content.Metadata{}, 1)
	require.NoError(t, err)
	assert.FileExists(t, manifest[content.MetadataKey])
}

func TestFormatRejectsEscapingNames(t *testing.T) {
	f, _ := newFormatter(t, "../{iteration}", nil)
	_, err := f.Format(t.Context(), sampleSet(), content.Metadata{}, 1)
	require.Error(t, err)
	assert.True(t, derrors.HasCategory(err, derrors.CategoryOutput))
}

func TestReadSideFileMissing(t *testing.T) {
	f, _ := newFormatter(t, "", nil)
	_, err := f.ReadSideFile(t.Context(), 99)
	require.Error(t, err)
	assert.True(t, derrors.HasCategory(err, derrors.CategoryNotFound))
}
