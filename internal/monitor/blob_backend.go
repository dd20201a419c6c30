package monitor

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	derrors "git.home.luguber.info/inful/echopipe/internal/foundation/errors"
	"git.home.luguber.info/inful/echopipe/internal/storage"
)

const jsonContentType = "application/json"

// BlobBackend stores records and reports as JSON objects in a storage.Store.
type BlobBackend struct {
	name  string
	store storage.Store
}

// NewBlobBackend wraps store. name is reported by Name.
func NewBlobBackend(name string, store storage.Store) *BlobBackend {
	return &BlobBackend{name: name, store: store}
}

// NewMemoryBackend returns a backend over an in-memory store.
func NewMemoryBackend() *BlobBackend {
	return NewBlobBackend("memory", storage.NewMemoryStore())
}

// NewFileBackend returns a backend writing JSON files below dir.
func NewFileBackend(dir string) (*BlobBackend, error) {
	fs, err := storage.NewFSStore(dir)
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryFileSystem, "failed to open metrics directory").
			WithContext("dir", dir).
			Build()
	}
	return NewBlobBackend("file", fs), nil
}

func (b *BlobBackend) Name() string { return b.name }

// Location returns the store root for filesystem stores and the store
// address of an empty key otherwise.
func (b *BlobBackend) Location() string {
	if r, ok := b.store.(interface{ Root() string }); ok {
		return r.Root()
	}
	return b.store.Location("")
}

// Store returns the underlying blob store.
func (b *BlobBackend) Store() storage.Store { return b.store }

func (b *BlobBackend) SaveRecord(ctx context.Context, rec ExecutionRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryMonitor, "failed to encode execution record").Build()
	}
	if err := b.store.Put(ctx, rec.Name(), data, jsonContentType); err != nil {
		return derrors.WrapError(err, derrors.CategoryStorage, "failed to store execution record").
			WithContext("name", rec.Name()).
			Build()
	}
	return nil
}

func (b *BlobBackend) LoadRecord(ctx context.Context, name string) (ExecutionRecord, error) {
	data, err := b.store.Get(ctx, name)
	if err != nil {
		if storage.IsNotFound(err) {
			return ExecutionRecord{}, derrors.NotFoundError("execution record not found").
				WithCause(err).
				WithContext("name", name).
				Build()
		}
		return ExecutionRecord{}, derrors.WrapError(err, derrors.CategoryStorage, "failed to read execution record").
			WithContext("name", name).
			Build()
	}
	var rec ExecutionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return ExecutionRecord{}, derrors.WrapError(err, derrors.CategoryMonitor, "failed to decode execution record").
			WithContext("name", name).
			Build()
	}
	return rec, nil
}

func (b *BlobBackend) Recent(ctx context.Context, limit int) ([]ExecutionRecord, error) {
	names, err := b.recordNames(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]ExecutionRecord, 0, len(names))
	for _, name := range names {
		rec, err := b.LoadRecord(ctx, name)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].StartedAt.Before(records[j].StartedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	return records, nil
}

func (b *BlobBackend) SaveReport(ctx context.Context, name string, data []byte) (string, error) {
	if err := b.store.Put(ctx, name, data, jsonContentType); err != nil {
		return "", derrors.WrapError(err, derrors.CategoryStorage, "failed to store performance report").
			WithContext("name", name).
			Build()
	}
	return b.store.Location(name), nil
}

func (b *BlobBackend) List(ctx context.Context) ([]string, error) {
	keys, err := b.store.List(ctx, "")
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryStorage, "failed to list metrics files").Build()
	}
	names := keys[:0]
	for _, k := range keys {
		if strings.HasSuffix(k, fileSuffix) && !strings.Contains(k, "/") {
			names = append(names, k)
		}
	}
	return names, nil
}

func (b *BlobBackend) DeleteRecords(ctx context.Context) (int, error) {
	names, err := b.recordNames(ctx)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, name := range names {
		if err := b.store.Delete(ctx, name); err != nil && !storage.IsNotFound(err) {
			return deleted, derrors.WrapError(err, derrors.CategoryStorage, "failed to delete execution record").
				WithContext("name", name).
				Build()
		}
		deleted++
	}
	return deleted, nil
}

type writableChecker interface {
	CheckWritable() error
}

// CheckWritable uses the store's own probe when it has one, otherwise it
// writes and removes a marker object.
func (b *BlobBackend) CheckWritable(ctx context.Context) error {
	if wc, ok := b.store.(writableChecker); ok {
		return wc.CheckWritable()
	}
	const probe = ".write-probe"
	if err := b.store.Put(ctx, probe, nil, "application/octet-stream"); err != nil {
		return err
	}
	return b.store.Delete(ctx, probe)
}

func (b *BlobBackend) Close() error { return b.store.Close() }

func (b *BlobBackend) recordNames(ctx context.Context) ([]string, error) {
	keys, err := b.store.List(ctx, recordPrefix)
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryStorage, "failed to list execution records").Build()
	}
	names := keys[:0]
	for _, k := range keys {
		if IsRecordName(k) {
			names = append(names, k)
		}
	}
	return names, nil
}
