// Package output persists a rendering set for one iteration.
//
// Each iteration gets its own directory below the output root. It holds
// one index file per format plus a metadata.json side-file. Writing the same
// iteration again replaces the previous files.
package output

import (
	"context"
	"encoding/json"
	"log/slog"
	"path"
	"strconv"
	"strings"

	"github.com/inful/mdfp"

	"git.home.luguber.info/inful/echopipe/internal/content"
	derrors "git.home.luguber.info/inful/echopipe/internal/foundation/errors"
	"git.home.luguber.info/inful/echopipe/internal/logfields"
	"git.home.luguber.info/inful/echopipe/internal/storage"
)

const (
	// DefaultNamingConvention names iteration directories.
	DefaultNamingConvention = "iteration-{iteration}"
	// IterationPlaceholder is replaced by the iteration number.
	IterationPlaceholder = "{iteration}"
	// MetadataFile is the name of the side-file.
	MetadataFile = "metadata.json"
	indexBase    = "index"
)

// SideFile is the content of metadata.json.
type SideFile struct {
	Iteration    int                       `json:"iteration"`
	Metadata     content.Metadata          `json:"metadata"`
	Formats      []content.Format          `json:"formats"`
	Files        map[content.Format]string `json:"files"`
	Fingerprints map[content.Format]string `json:"fingerprints"`
}

// Formatter writes rendering sets to a local store and optionally mirrors
// them to a second store.
type Formatter struct {
	local  *storage.FSStore
	mirror storage.Store
	naming string
}

// New returns a formatter writing below local. mirror may be nil.
func New(local *storage.FSStore, naming string, mirror storage.Store) *Formatter {
	if strings.TrimSpace(naming) == "" {
		naming = DefaultNamingConvention
	}
	return &Formatter{local: local, mirror: mirror, naming: naming}
}

// IterationDir returns the directory name used for iteration.
func (f *Formatter) IterationDir(iteration int) string {
	return strings.ReplaceAll(f.naming, IterationPlaceholder, strconv.Itoa(iteration))
}

// FileName returns the file name used for a format.
func FileName(format content.Format) string {
	return indexBase + format.Extension()
}

// Fingerprint returns the content fingerprint recorded for body.
func Fingerprint(body string) string {
	return mdfp.CalculateFingerprintFromParts("", body)
}

type entry struct {
	key         string
	data        []byte
	contentType string
}

// Format writes every rendering in set plus the metadata side-file and
// returns the manifest of written paths.
func (f *Formatter) Format(ctx context.Context, set content.RenderingSet, meta content.Metadata, iteration int) (content.Manifest, error) {
	dir := f.IterationDir(iteration)
	if _, err := storage.CleanKey(dir); err != nil {
		return nil, derrors.OutputError("invalid output directory name").
			WithCause(err).
			WithContext("dir", dir).
			Build()
	}

	side := SideFile{
		Iteration:    iteration,
		Metadata:     meta,
		Formats:      set.Formats(),
		Files:        make(map[content.Format]string, len(set)),
		Fingerprints: make(map[content.Format]string, len(set)),
	}
	entries := make([]entry, 0, len(set)+1)
	for _, format := range side.Formats {
		body := set[format]
		name := FileName(format)
		side.Files[format] = name
		side.Fingerprints[format] = Fingerprint(body)
		entries = append(entries, entry{key: path.Join(dir, name), data: []byte(body), contentType: format.ContentType()})
	}

	metaJSON, err := json.MarshalIndent(side, "", "  ")
	if err != nil {
		return nil, derrors.OutputError("encode metadata side-file").WithCause(err).Build()
	}
	entries = append(entries, entry{key: path.Join(dir, MetadataFile), data: metaJSON, contentType: "application/json"})

	manifest := make(content.Manifest, len(entries))
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, derrors.WrapError(err, derrors.CategoryOutput, "output interrupted").Build()
		}
		if err := f.local.Put(ctx, e.key, e.data, e.contentType); err != nil {
			return nil, derrors.OutputError("write rendering").
				Retryable().
				WithCause(err).
				WithContext("path", f.local.Location(e.key)).
				Build()
		}
		key := content.MetadataKey
		if i < len(side.Formats) {
			key = string(side.Formats[i])
		}
		manifest[key] = f.local.Location(e.key)
	}

	if f.mirror != nil {
		f.mirrorEntries(ctx, entries)
	}
	return manifest, nil
}

// mirrorEntries uploads entries to the mirror. Failures are logged only.
func (f *Formatter) mirrorEntries(ctx context.Context, entries []entry) {
	for _, e := range entries {
		if err := f.mirror.Put(ctx, e.key, e.data, e.contentType); err != nil {
			slog.Warn("Mirror upload failed",
				logfields.Path(f.mirror.Location(e.key)),
				logfields.Error(err))
			return
		}
	}
	slog.Debug("Mirrored output", logfields.Path(f.mirror.Location(path.Dir(entries[0].key))))
}

// ReadSideFile loads the metadata side-file of iteration.
func (f *Formatter) ReadSideFile(ctx context.Context, iteration int) (*SideFile, error) {
	key := path.Join(f.IterationDir(iteration), MetadataFile)
	data, err := f.local.Get(ctx, key)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, derrors.NotFoundError("no output for iteration").
				WithContext("iteration", iteration).
				Build()
		}
		return nil, derrors.OutputError("read metadata side-file").WithCause(err).Build()
	}
	var side SideFile
	if err := json.Unmarshal(data, &side); err != nil {
		return nil, derrors.OutputError("decode metadata side-file").WithCause(err).Build()
	}
	return &side, nil
}
