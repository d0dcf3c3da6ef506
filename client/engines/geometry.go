package engines

import (
	"fmt"
	"math"

	"fyne.io/fyne/v2"
)

// GeometryEngine converts pointer coordinates to 1-indexed grid cells, reads
// item position/span from an element's current geometry, and detects
// overlap. It is the gridcore analogue of layout_engine.go's SpatialMath,
// generalized from pixel-rectangle math to the grid-cell domain.
type GeometryEngine struct{}

// NewGeometryEngine creates a new GeometryEngine instance.
func NewGeometryEngine() *GeometryEngine {
	return &GeometryEngine{}
}

// GridInfo describes a grid container's resolved track geometry.
type GridInfo struct {
	Rect       fyne.Position // top-left of the grid, in the same coordinate space as pointer events
	RectSize   fyne.Size
	Columns    []float32 // pixel width of each column track
	Rows       []float32 // pixel height of each row track
	ColumnGap  float32
	RowGap     float32
	CellWidth  float32 // average, for callers that want a single number
	CellHeight float32
}

// GetGridInfo reads track geometry from a grid description. The grid is
// supplied by the caller (the DOM/computed-style equivalent is external to
// the core per spec.md §1); this is the seam C11 crosses.
func (ge *GeometryEngine) GetGridInfo(rect fyne.Position, size fyne.Size, columns, rows []float32, columnGap, rowGap float32) GridInfo {
	info := GridInfo{
		Rect:      rect,
		RectSize:  size,
		Columns:   columns,
		Rows:      rows,
		ColumnGap: columnGap,
		RowGap:    rowGap,
	}
	if len(columns) > 0 {
		info.CellWidth = average(columns)
	}
	if len(rows) > 0 {
		info.CellHeight = average(rows)
	}
	return info
}

func average(vals []float32) float32 {
	var sum float32
	for _, v := range vals {
		sum += v
	}
	return sum / float32(len(vals))
}

// GetCellFromPoint maps a pointer point to a 1-indexed Cell, or reports ok=false
// if the point falls outside the grid's bounding rectangle. The cell boundary
// sits at track-end + gap/2, so a point belongs to the track whose following
// gap midpoint it has not yet crossed (spec.md §4.1).
func (ge *GeometryEngine) GetCellFromPoint(info GridInfo, px, py float32) (cell Cell, ok bool) {
	if px < info.Rect.X || py < info.Rect.Y ||
		px > info.Rect.X+info.RectSize.Width || py > info.Rect.Y+info.RectSize.Height {
		return Cell{}, false
	}

	col, okCol := trackIndex(info.Columns, info.ColumnGap, px-info.Rect.X)
	row, okRow := trackIndex(info.Rows, info.RowGap, py-info.Rect.Y)
	if !okCol || !okRow {
		return Cell{}, false
	}
	return Cell{Column: col, Row: row}, true
}

// trackIndex walks tracks accumulating track size and half the following gap;
// it returns the 1-indexed track the offset falls within.
func trackIndex(tracks []float32, gap float32, offset float32) (int, bool) {
	if len(tracks) == 0 {
		return 0, false
	}
	var cursor float32
	for i, track := range tracks {
		boundary := cursor + track + gap/2
		if offset < boundary || i == len(tracks)-1 {
			return i + 1, true
		}
		cursor += track + gap
	}
	return len(tracks), true
}

// GetItemCell reads an item's 1-indexed top-left cell from its current position,
// given the grid's resolved geometry (the computed-style equivalent).
func (ge *GeometryEngine) GetItemCell(info GridInfo, itemRect fyne.Position) (Cell, error) {
	cell, ok := ge.GetCellFromPoint(info, itemRect.X+1, itemRect.Y+1)
	if !ok {
		return Cell{}, fmt.Errorf("gridcore: item position %v is outside grid bounds", itemRect)
	}
	return cell, nil
}

// GetItemSize reads colspan/rowspan from explicit data-attribute-equivalent
// values, defaulting both to 1 as spec.md §4.1/§6 require.
func (ge *GeometryEngine) GetItemSize(colspanAttr, rowspanAttr int) Size {
	width, height := colspanAttr, rowspanAttr
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return Size{Width: width, Height: height}
}

// ItemsOverlap reports whether a and b occupy intersecting cell ranges.
func (ge *GeometryEngine) ItemsOverlap(a, b Item) bool {
	return itemsOverlap(a, b)
}

// distance mirrors layout_engine.go's SpatialMath.CalculateDistance, used by
// the harness when it must pick the nearest settle cell after a camera scroll.
func distance(a, b fyne.Position) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return math.Sqrt(dx*dx + dy*dy)
}
