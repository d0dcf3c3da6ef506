package engines

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestUnit_Reorder_SwapIntoEarlierSlot is spec.md §8 scenario 4.
func TestUnit_Reorder_SwapIntoEarlierSlot(t *testing.T) {
	items := []Item{
		{ID: "a", Column: 1, Row: 1, Width: 1, Height: 1},
		{ID: "b", Column: 2, Row: 1, Width: 1, Height: 1},
		{ID: "c", Column: 1, Row: 2, Width: 1, Height: 1},
		{ID: "d", Column: 2, Row: 2, Width: 1, Height: 1},
	}

	result := CalculateReorderLayout(items, "c", Cell{Column: 2, Row: 1}, ReorderOptions{Columns: 2})

	byID := indexByID(result)
	assert.Equal(t, Cell{Column: 1, Row: 1}, byID["a"].Cell())
	assert.Equal(t, Cell{Column: 2, Row: 1}, byID["c"].Cell())
	assert.Equal(t, Cell{Column: 1, Row: 2}, byID["b"].Cell())
	assert.Equal(t, Cell{Column: 2, Row: 2}, byID["d"].Cell())
}

func TestUnit_Reorder_AbsentMovedIDFallsThroughToReflow(t *testing.T) {
	items := []Item{
		{ID: "a", Column: 2, Row: 1, Width: 1, Height: 1},
		{ID: "b", Column: 1, Row: 1, Width: 1, Height: 1},
	}

	result := CalculateReorderLayout(items, "missing", Cell{Column: 1, Row: 1}, ReorderOptions{Columns: 2})

	byID := indexByID(result)
	assert.Equal(t, Cell{Column: 1, Row: 1}, byID["b"].Cell())
	assert.Equal(t, Cell{Column: 2, Row: 1}, byID["a"].Cell())
}

// TestProperty_Reorder_Idempotence: reordering item i to its own cell
// reproduces the reflow of the original layout (spec.md §8 "Reorder
// idempotence").
func TestProperty_Reorder_Idempotence(t *testing.T) {
	items := []Item{
		{ID: "a", Column: 1, Row: 1, Width: 1, Height: 1},
		{ID: "b", Column: 2, Row: 1, Width: 2, Height: 1},
		{ID: "c", Column: 1, Row: 2, Width: 1, Height: 1},
	}
	columns := 3

	baseline := reflow(items, columns)
	for _, it := range items {
		result := CalculateReorderLayout(items, it.ID, it.Cell(), ReorderOptions{Columns: columns})
		assert.Equal(t, baseline, result, "reorder(L, %s, cellOf(%s)) should equal reflow(L)", it.ID, it.ID)
	}
}

// TestProperty_Reflow_Stability: reflowing an already reflowed layout at the
// same column count is a fixed point (spec.md §8 "Reflow stability").
func TestProperty_Reflow_Stability(t *testing.T) {
	items := []Item{
		{ID: "a", Column: 3, Row: 5, Width: 2, Height: 1},
		{ID: "b", Column: 1, Row: 1, Width: 1, Height: 2},
		{ID: "c", Column: 1, Row: 9, Width: 3, Height: 1},
	}
	columns := 4

	once := reflow(items, columns)
	twice := reflow(once, columns)
	assert.Equal(t, once, twice)
}

func TestUnit_Reorder_NeverMutatesInput(t *testing.T) {
	items := []Item{
		{ID: "a", Column: 1, Row: 1, Width: 1, Height: 1},
		{ID: "b", Column: 2, Row: 1, Width: 1, Height: 1},
	}
	original := append([]Item(nil), items...)

	CalculateReorderLayout(items, "b", Cell{Column: 1, Row: 1}, ReorderOptions{Columns: 2})

	assert.Equal(t, original, items)
}

func TestUnit_PackItems_ClampsOversizeWidth(t *testing.T) {
	items := []Item{{ID: "a", Width: 10, Height: 1}}
	result := PackItems(items, 3)
	require.Len(t, result, 1)
	assert.Equal(t, 3, result[0].Width)
	assert.Equal(t, Cell{Column: 1, Row: 1}, result[0].Cell())
}

func indexByID(items []Item) map[string]Item {
	out := make(map[string]Item, len(items))
	for _, it := range items {
		out[it.ID] = it
	}
	return out
}
