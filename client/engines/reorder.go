package engines

import "sort"

// maxReflowRowScan caps reflow's row-major scan per spec.md §4.7, §7: a
// safety valve against degenerate inputs, not a limit correct input nears.
const maxReflowRowScan = 100

// ReorderOptions configures CalculateReorderLayout.
type ReorderOptions struct {
	Columns int
}

// CalculateReorderLayout treats items as a logical sequence (reading order)
// and reflows by first-fit auto-placement after inserting movedID at the
// sequence index its targetCell implies. It never fails: absent movedID
// falls through to a plain reflow (spec.md §4.7, §7).
func CalculateReorderLayout(items []Item, movedID string, targetCell Cell, opts ReorderOptions) []Item {
	ordered := cloneItems(items)
	sort.Slice(ordered, func(i, j int) bool { return readingOrderLess(ordered[i], ordered[j]) })

	movedIdx := -1
	for i := range ordered {
		if ordered[i].ID == movedID {
			movedIdx = i
			break
		}
	}
	if movedIdx == -1 {
		return reflow(ordered, opts.Columns)
	}

	moved := ordered[movedIdx]
	remaining := append(append([]Item{}, ordered[:movedIdx]...), ordered[movedIdx+1:]...)
	reflowed := reflow(remaining, opts.Columns)

	insertAt := len(reflowed)
	for i, it := range reflowed {
		if !cellBefore(it.Cell(), targetCell) {
			insertAt = i
			break
		}
	}

	withMoved := make([]Item, 0, len(remaining)+1)
	withMoved = append(withMoved, remaining[:insertAt]...)
	withMoved = append(withMoved, moved)
	withMoved = append(withMoved, remaining[insertAt:]...)

	return reflow(withMoved, opts.Columns)
}

// cellBefore reports whether a sits strictly before b in reading order:
// a.row < b.row, or equal rows with a.column < b.column.
func cellBefore(a, b Cell) bool {
	if a.Row != b.Row {
		return a.Row < b.Row
	}
	return a.Column < b.Column
}

// PackItems exposes reflow's first-fit row-major auto-placement directly,
// for callers (the responsive layout model's derivation, spec.md §4.9) that
// need to pack an already-ordered sequence into a column count without the
// reorder-by-target-cell machinery above.
func PackItems(items []Item, columns int) []Item {
	return reflow(items, columns)
}

// reflow performs first-fit row-major auto-placement: for each item in
// sequence, its width is clamped to columns, then the first top-left cell
// where every required cell is free and in-bounds is found by scanning rows
// 1.. and columns 1..columns. Oversize items fall through the
// maxReflowRowScan cap and are placed at the last safe row (spec.md §4.7, §7).
func reflow(items []Item, columns int) []Item {
	if columns < 1 {
		columns = 1
	}
	out := cloneItems(items)
	occupied := make(map[Cell]bool)

	for i := range out {
		width := out[i].Width
		if width > columns {
			width = columns
		}
		if width < 1 {
			width = 1
		}
		height := out[i].Height
		if height < 1 {
			height = 1
		}

		col, row := firstFit(occupied, columns, width, height)
		out[i].Column = col
		out[i].Row = row
		out[i].Width = width
		out[i].Height = height

		for dx := 0; dx < width; dx++ {
			for dy := 0; dy < height; dy++ {
				occupied[Cell{Column: col + dx, Row: row + dy}] = true
			}
		}
	}

	return out
}

// firstFit scans rows 1.. and columns 1..columns for the first top-left
// cell where a width x height block fits, free and in-bounds.
func firstFit(occupied map[Cell]bool, columns, width, height int) (col, row int) {
	for r := 1; r <= maxReflowRowScan; r++ {
		for c := 1; c+width-1 <= columns; c++ {
			if fits(occupied, c, r, width, height) {
				return c, r
			}
		}
	}
	return 1, maxReflowRowScan
}

func fits(occupied map[Cell]bool, col, row, width, height int) bool {
	for dx := 0; dx < width; dx++ {
		for dy := 0; dy < height; dy++ {
			if occupied[Cell{Column: col + dx, Row: row + dy}] {
				return false
			}
		}
	}
	return true
}
