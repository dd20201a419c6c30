package monitor

import "context"

// Backend persists execution records and reports.
type Backend interface {
	// Name identifies the backend kind (memory, file, sqlite, postgres).
	Name() string

	// Location is a human readable address of where records are kept.
	Location() string

	// SaveRecord persists rec under its name, replacing an existing entry.
	SaveRecord(ctx context.Context, rec ExecutionRecord) error

	// LoadRecord returns the record stored under name.
	// Returns a not_found classified error when absent.
	LoadRecord(ctx context.Context, name string) (ExecutionRecord, error)

	// Recent returns up to limit records, oldest first.
	Recent(ctx context.Context, limit int) ([]ExecutionRecord, error)

	// SaveReport stores an encoded report and returns its location.
	SaveReport(ctx context.Context, name string, data []byte) (string, error)

	// List returns the names of all stored records and reports, sorted.
	List(ctx context.Context) ([]string, error)

	// DeleteRecords removes every stored record and returns how many were removed.
	DeleteRecords(ctx context.Context) (int, error)

	// CheckWritable verifies that the backend accepts writes.
	CheckWritable(ctx context.Context) error

	Close() error
}
