package hostinfo

import (
	"encoding/json"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptySnapshotEncodesAsEmptyObject(t *testing.T) {
	data, err := json.Marshal(Snapshot{})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))
	assert.True(t, Snapshot{}.Empty())
	assert.False(t, Snapshot{CPUCount: 1}.Empty())
}

func TestStaticCollector(t *testing.T) {
	want := Snapshot{CPUCount: 4, MemoryPercent: 12.5}
	got, err := Static{Snapshot: want}.Collect(t.Context())
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = Static{Err: errors.New("nope")}.Collect(t.Context())
	require.Error(t, err)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 50.0, percent(1, 2))
	assert.Equal(t, 33.33, percent(1, 3))
	assert.Equal(t, 0.0, percent(1, 0))
}

func TestProcCollector(t *testing.T) {
	snap, err := ProcCollector{DiskPath: t.TempDir(), CPUSample: 20 * time.Millisecond}.Collect(t.Context())
	if runtime.GOOS != "linux" {
		require.ErrorIs(t, err, ErrUnsupported)
		return
	}
	if err != nil {
		t.Skipf("host metrics unavailable: %v", err)
	}
	assert.Equal(t, runtime.NumCPU(), snap.CPUCount)
	assert.GreaterOrEqual(t, snap.DiskPercent, 0.0)
	assert.LessOrEqual(t, snap.DiskPercent, 100.0)
	assert.Greater(t, snap.MemoryTotalGB, 0.0)
	assert.GreaterOrEqual(t, snap.CPUPercent, 0.0)
	assert.LessOrEqual(t, snap.CPUPercent, 100.0)
}
