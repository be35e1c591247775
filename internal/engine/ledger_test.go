package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLedgerAddContainsRemove(t *testing.T) {
	l := NewLedger()
	require.False(t, l.Contains("a"))

	l.Add("a")
	l.Add("b")
	require.True(t, l.Contains("a"))
	require.True(t, l.Contains("b"))
	require.Equal(t, 2, l.Len())

	l.Remove("a")
	require.False(t, l.Contains("a"))
	require.Equal(t, 1, l.Len())

	// Removing an absent id is a no-op.
	l.Remove("a")
	require.Equal(t, 1, l.Len())
}

func TestLedgerPrune(t *testing.T) {
	l := NewLedger()
	l.Add("a")
	l.Add("b")
	l.Add("c")

	removed := l.Prune(map[string]struct{}{"b": {}})
	require.ElementsMatch(t, []string{"a", "c"}, removed)
	require.True(t, l.Contains("b"))
	require.Equal(t, 1, l.Len())

	// Pruning against an empty snapshot clears everything.
	removed = l.Prune(map[string]struct{}{})
	require.ElementsMatch(t, []string{"b"}, removed)
	require.Equal(t, 0, l.Len())
}
