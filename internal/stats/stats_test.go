package stats

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCounters_Net(t *testing.T) {
	c := Counters{MapCalls: 5, UnmapCalls: 3, MappedPages: 40, UnmappedPages: 32}
	require.Equal(t, int64(8), c.NetMappedPages())
	require.Equal(t, int64(2), c.NetMapCalls())

	// Snapshots returned by value expose the same accessors.
	snapshot := func() Counters { return c }
	require.Equal(t, int64(8), snapshot().NetMappedPages())
	require.Equal(t, int64(2), snapshot().NetMapCalls())
}
