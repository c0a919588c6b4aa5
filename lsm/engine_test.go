package lsm

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoFlushTriggersAtSizeThreshold(t *testing.T) {
	e, err := Open(WithDataDir(t.TempDir()), WithMemTableSizeThreshold(32))
	require.NoError(t, err)
	defer e.Close()

	for i := 0; i < 10; i++ {
		require.NoError(t, e.Put(fmt.Sprintf("key-%02d", i), "some-value"))
	}

	stats, err := e.Stats()
	require.NoError(t, err)
	totalTables := 0
	for _, l := range stats.Levels {
		totalTables += l.TableCount
	}
	assert.Greater(t, totalTables, 0, "expected at least one auto-flush to have occurred")
}

func TestInspectReturnsBoundedAscendingSample(t *testing.T) {
	e, err := Open(WithDataDir(t.TempDir()))
	require.NoError(t, err)
	defer e.Close()

	for i := 0; i < 20; i++ {
		require.NoError(t, e.Put(fmt.Sprintf("k%02d", i), fmt.Sprintf("v%d", i)))
	}

	got, err := e.Inspect(5)
	require.NoError(t, err)
	require.Len(t, got, 5)
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].Key, got[i].Key)
	}
}

func TestInspectUnboundedWithNonPositiveLimit(t *testing.T) {
	e, err := Open(WithDataDir(t.TempDir()))
	require.NoError(t, err)
	defer e.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, e.Put(fmt.Sprintf("k%d", i), "v"))
	}

	got, err := e.Inspect(0)
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestCustomTombstoneOption(t *testing.T) {
	e, err := Open(WithDataDir(t.TempDir()), WithTombstone("<deleted>"))
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.Put("k", "v"))
	require.NoError(t, e.Delete("k"))

	_, ok, err := e.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStatsReflectsMemTableOccupancy(t *testing.T) {
	e, err := Open(WithDataDir(t.TempDir()))
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.Put("a", "1"))
	require.NoError(t, e.Put("bb", "22"))

	stats, err := e.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.MemTableEntries)
	assert.Equal(t, len("a")+len("1")+len("bb")+len("22"), stats.MemTableBytes)
}
