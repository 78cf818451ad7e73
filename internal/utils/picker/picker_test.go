package picker

import (
	"testing"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/testutil"
)

func TestPicker_Empty(t *testing.T) {
	require := testutil.Require(t)

	_, ok := New[string](nil).Next()
	require.False(ok)
}

func TestPicker_Single(t *testing.T) {
	require := testutil.Require(t)

	p := New([]Choice[string]{{Item: "fullnode", Weight: 1}})
	for i := 0; i < 3; i++ {
		item, ok := p.Next()
		require.True(ok)
		require.Equal("fullnode", item)
	}
}

func TestPicker_Weighted(t *testing.T) {
	require := testutil.Require(t)

	p := New([]Choice[string]{
		{Item: "primary", Weight: 3},
		{Item: "secondary", Weight: 1},
	})

	counts := make(map[string]int)
	for i := 0; i < 400; i++ {
		item, ok := p.Next()
		require.True(ok)
		counts[item] += 1
	}

	// Smooth weighted round robin is deterministic.
	require.Equal(300, counts["primary"])
	require.Equal(100, counts["secondary"])
}
