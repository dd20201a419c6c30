//go:build !linux

package hostinfo

import (
	"context"
	"time"
)

// ProcCollector reports ErrUnsupported outside Linux.
type ProcCollector struct {
	DiskPath  string
	CPUSample time.Duration
}

// Collect always fails with ErrUnsupported.
func (ProcCollector) Collect(context.Context) (Snapshot, error) {
	return Snapshot{}, ErrUnsupported
}
