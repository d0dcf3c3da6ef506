package engines

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestUnit_PushDown_SingleCollision is spec.md §8 scenario 1.
func TestUnit_PushDown_SingleCollision(t *testing.T) {
	items := []Item{
		{ID: "a", Column: 1, Row: 1, Width: 2, Height: 2},
		{ID: "b", Column: 1, Row: 2, Width: 2, Height: 1},
	}

	result := CalculateLayout(items, "a", Cell{Column: 1, Row: 1}, DefaultPushDownOptions())

	b := findItem(result, "b")
	require.NotNil(t, b)
	assert.Equal(t, 3, b.Row)
	assert.Zero(t, countOverlaps(result))
}

// TestUnit_PushDown_SwapLikeMove is spec.md §8 scenario 2.
func TestUnit_PushDown_SwapLikeMove(t *testing.T) {
	items := []Item{
		{ID: "a", Column: 1, Row: 1, Width: 2, Height: 2},
		{ID: "b", Column: 3, Row: 1, Width: 2, Height: 2},
	}

	result := CalculateLayout(items, "a", Cell{Column: 3, Row: 1}, DefaultPushDownOptions())

	a := findItem(result, "a")
	b := findItem(result, "b")
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.Equal(t, Item{ID: "a", Column: 3, Row: 1, Width: 2, Height: 2}, *a)
	assert.Equal(t, 3, b.Row)
	assert.Zero(t, countOverlaps(result))
}

// TestUnit_PushDown_Cascading is spec.md §8 scenario 3.
func TestUnit_PushDown_Cascading(t *testing.T) {
	items := []Item{
		{ID: "a", Column: 1, Row: 1, Width: 2, Height: 2},
		{ID: "b", Column: 1, Row: 2, Width: 2, Height: 2},
		{ID: "c", Column: 1, Row: 3, Width: 2, Height: 1},
	}

	result := CalculateLayout(items, "a", Cell{Column: 1, Row: 1}, DefaultPushDownOptions())

	b := findItem(result, "b")
	c := findItem(result, "c")
	require.NotNil(t, b)
	require.NotNil(t, c)
	assert.Equal(t, 3, b.Row)
	assert.Equal(t, 5, c.Row)
	assert.Zero(t, countOverlaps(result))
}

func TestUnit_PushDown_AbsentMovedIDReturnsUnchangedCopy(t *testing.T) {
	items := []Item{{ID: "a", Column: 1, Row: 1, Width: 1, Height: 1}}
	result := CalculateLayout(items, "missing", Cell{Column: 5, Row: 5}, DefaultPushDownOptions())
	assert.Equal(t, items, result)
}

func TestUnit_PushDown_NeverMutatesInput(t *testing.T) {
	items := []Item{
		{ID: "a", Column: 1, Row: 1, Width: 2, Height: 2},
		{ID: "b", Column: 1, Row: 2, Width: 2, Height: 1},
	}
	original := append([]Item(nil), items...)

	CalculateLayout(items, "a", Cell{Column: 1, Row: 1}, DefaultPushDownOptions())

	assert.Equal(t, original, items)
}

// TestUnit_PushDown_PreservesRelativeVerticalOrder checks that two colliders
// sharing a column range keep their before/after ordering through a push
// (spec.md §8 "Push-down preserves relative vertical order").
func TestUnit_PushDown_PreservesRelativeVerticalOrder(t *testing.T) {
	items := []Item{
		{ID: "moved", Column: 1, Row: 1, Width: 1, Height: 1},
		{ID: "upper", Column: 1, Row: 2, Width: 1, Height: 1},
		{ID: "lower", Column: 1, Row: 3, Width: 1, Height: 1},
	}

	result := CalculateLayout(items, "moved", Cell{Column: 1, Row: 2}, PushDownOptions{Compact: false})

	upper := findItem(result, "upper")
	lower := findItem(result, "lower")
	require.NotNil(t, upper)
	require.NotNil(t, lower)
	assert.Less(t, upper.Row, lower.Row)
}

// TestProperty_PushDown_NoOverlapAcrossRandomMoves verifies the no-overlap
// invariant across random valid layouts and many sequential moves (spec.md
// §8 "No-overlap").
func TestProperty_PushDown_NoOverlapAcrossRandomMoves(t *testing.T) {
	for _, columns := range []int{4, 6, 12} {
		for _, count := range []int{2, 8, 25} {
			rng := rand.New(rand.NewSource(int64(columns*1000 + count)))
			items := randomNonOverlappingLayout(rng, columns, count)

			for move := 0; move < 200; move++ {
				id := items[rng.Intn(len(items))].ID
				target := Cell{Column: 1 + rng.Intn(columns), Row: 1 + rng.Intn(10)}
				items = CalculateLayout(items, id, target, DefaultPushDownOptions())
				require.Zero(t, countOverlaps(items), "columns=%d count=%d move=%d", columns, count, move)
			}
		}
	}
}

func countOverlaps(items []Item) int {
	count := 0
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			if itemsOverlap(items[i], items[j]) {
				count++
			}
		}
	}
	return count
}

// randomNonOverlappingLayout builds a valid starting layout via the reorder
// reflow (guaranteed overlap-free) for use as a property-test fixture.
func randomNonOverlappingLayout(rng *rand.Rand, columns, count int) []Item {
	items := make([]Item, count)
	for i := range items {
		items[i] = Item{
			ID:     string(rune('a' + i%26)) + string(rune('0'+i/26)),
			Width:  1 + rng.Intn(minInt(2, columns)),
			Height: 1,
		}
	}
	return reflow(items, columns)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
