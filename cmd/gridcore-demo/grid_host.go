// Command gridcore-demo is a small host program wiring a GridManager, a
// ResponsiveLayoutModel, and the go-git-backed LayoutStore together, in the
// spirit of the teacher's cmd/eisenkan wiring an ApplicationRoot. This is
// explicitly NOT part of the core: the core itself has no persistence
// (spec.md §1 Non-goals); this program is the caller that supplies it.
package main

import (
	"sort"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"

	"github.com/rknuus/gridcore/client/engines"
)

// demoHost is an in-memory engines.GridHost over a fixed set of
// canvas.Rectangle items, standing in for a real DOM: there is no browser
// underneath this Go port, so the GridHost seam (client/engines/contracts.go)
// is satisfied with the grid geometry a caller would otherwise read from a
// live fyne.CanvasObject tree.
type demoHost struct {
	mu        sync.Mutex
	rect      fyne.Position
	size      fyne.Size
	columns   []float32
	rows      []float32
	columnGap float32
	rowGap    float32

	items    map[string]*canvas.Rectangle
	cells    map[string]engines.Cell
	spans    map[string]engines.Size
	cellSize fyne.Size
}

func newDemoHost(columnCount int, cellSize fyne.Size, gap float32) *demoHost {
	columns := make([]float32, columnCount)
	for i := range columns {
		columns[i] = cellSize.Width
	}
	return &demoHost{
		size:      fyne.NewSize(float32(columnCount)*cellSize.Width+float32(columnCount-1)*gap, 0),
		columns:   columns,
		columnGap: gap,
		rowGap:    gap,
		items:     make(map[string]*canvas.Rectangle),
		cells:     make(map[string]engines.Cell),
		spans:     make(map[string]engines.Size),
		cellSize:  cellSize,
	}
}

// place registers an item at cell with the given span, creating its backing
// canvas.Rectangle and positioning it from the cell, mirroring how a real
// caller would compute inline pixel position from a grid cell before the
// core takes over with injected CSS (spec.md §9 "inline-style vs. injected
// CSS").
func (h *demoHost) place(id string, cell engines.Cell, size engines.Size) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.cells[id] = cell
	h.spans[id] = size
	rect := canvas.NewRectangle(nil)
	rect.Move(h.pixelPosition(cell))
	rect.Resize(h.pixelSize(size))
	h.items[id] = rect

	if rows := cell.Row + size.Height - 1; rows > len(h.rows) {
		for len(h.rows) < rows {
			h.rows = append(h.rows, h.cellSize.Height)
		}
	}
}

func (h *demoHost) pixelPosition(cell engines.Cell) fyne.Position {
	x := float32(cell.Column-1) * (h.cellSize.Width + h.columnGap)
	y := float32(cell.Row-1) * (h.cellSize.Height + h.rowGap)
	return fyne.NewPos(x, y)
}

func (h *demoHost) pixelSize(size engines.Size) fyne.Size {
	w := float32(size.Width)*h.cellSize.Width + float32(size.Width-1)*h.columnGap
	ht := float32(size.Height)*h.cellSize.Height + float32(size.Height-1)*h.rowGap
	return fyne.NewSize(w, ht)
}

// ApplyLayout writes result positions onto the backing rectangles, the
// in-memory stand-in for the harness's CSS injection (spec.md §4.8).
func (h *demoHost) ApplyLayout(result []engines.Item) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, it := range result {
		h.cells[it.ID] = it.Cell()
		h.spans[it.ID] = it.Size()
		if rect, ok := h.items[it.ID]; ok {
			rect.Move(h.pixelPosition(it.Cell()))
			rect.Resize(h.pixelSize(it.Size()))
		}
	}
}

func (h *demoHost) ElementFor(itemID string) fyne.CanvasObject {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.items[itemID]
}

func (h *demoHost) CurrentRect(itemID string) engines.FlipRect {
	h.mu.Lock()
	defer h.mu.Unlock()
	rect, ok := h.items[itemID]
	if !ok {
		return engines.FlipRect{}
	}
	return engines.FlipRect{Position: rect.Position(), Size: rect.Size()}
}

func (h *demoHost) ClearInlineStyles(exceptItemID string) {
	// The demo has no inline/CSS duality; no-op mirrors a caller whose
	// items are already governed entirely by the core's style layer.
	_ = exceptItemID
}

func (h *demoHost) CurrentItems() []engines.Item {
	h.mu.Lock()
	defer h.mu.Unlock()

	ids := make([]string, 0, len(h.cells))
	for id := range h.cells {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]engines.Item, 0, len(ids))
	for _, id := range ids {
		cell := h.cells[id]
		size := h.spans[id]
		out = append(out, engines.Item{ID: id, Column: cell.Column, Row: cell.Row, Width: size.Width, Height: size.Height})
	}
	return out
}

func (h *demoHost) GridRect() (fyne.Position, fyne.Size) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rect, h.size
}

func (h *demoHost) Tracks() (columns, rows []float32, columnGap, rowGap float32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]float32(nil), h.columns...), append([]float32(nil), h.rows...), h.columnGap, h.rowGap
}

// CurrentColumnCount implements engines.ResponsiveObserver: the demo's
// column count is fixed at construction, but reporting it through the same
// seam a responsive caller would use exercises the GridManager wiring
// (spec.md §4.9 "Current column count is tracked separately and updated by
// an external observer").
func (h *demoHost) CurrentColumnCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.columns)
}
