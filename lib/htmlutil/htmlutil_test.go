package htmlutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanCell(t *testing.T) {
	require.Equal(t, "DOE, JANE", CleanCell("  DOE,   JANE "))
	require.Equal(t, "", CleanCell("  "))
	require.Equal(t, "Room 4B", CleanCell("Room  4B"))
}

func TestIsEmptyCell(t *testing.T) {
	require.True(t, IsEmptyCell(""))
	require.True(t, IsEmptyCell("   "))
	require.True(t, IsEmptyCell(" "))
	require.True(t, IsEmptyCell("&#160;"))
	require.False(t, IsEmptyCell("ADAMS, A"))
}
