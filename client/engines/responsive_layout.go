package engines

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rknuus/gridcore/internal/utilities"
)

// ResponsiveLayoutModel stores canonical-at-maxColumns item positions plus
// per-breakpoint overrides, derives layouts for intermediate breakpoints by
// first-fit packing, and generates container-query CSS for all breakpoints
// (spec.md §4.9). It outlives any single grid binding and is a shared
// writer-single-reader resource (spec.md §5): the core writes on commit,
// callers read and subscribe. It carries no persistence of its own — per
// spec.md §1 Non-goals, callers own saving it, which is why subscribers
// exist at all (SPEC_FULL.md §11/§12 wire a git-backed example caller).
type ResponsiveLayoutModel struct {
	mu          sync.RWMutex
	maxColumns  int
	minColumns  int
	definitions map[string]Size
	canonical   map[string]Cell
	overrides   map[int]map[string]Cell
	subscribers []func()
	logger      Logger
	// deriveCache memoizes derive(n) the way the teacher's Optimization
	// facet memoized CachedLayout results, keyed by column count; it is
	// invalidated wholesale whenever canonical positions or item
	// definitions change (SPEC_FULL.md §11).
	deriveCache utilities.ICacheUtility
}

// Logger is the minimal diagnostic seam spec.md §7 calls for on a
// no-op-with-diagnostic ("Layout model update for unknown id"); nil is valid
// and silences diagnostics.
type Logger interface {
	Warn(component, message string, fields map[string]any)
}

// NewResponsiveLayoutModel creates a model with the given column bounds.
// logger may be nil.
func NewResponsiveLayoutModel(minColumns, maxColumns int, logger Logger) *ResponsiveLayoutModel {
	if minColumns < 1 {
		minColumns = 1
	}
	if maxColumns < minColumns {
		maxColumns = minColumns
	}
	return &ResponsiveLayoutModel{
		maxColumns:  maxColumns,
		minColumns:  minColumns,
		definitions: make(map[string]Size),
		canonical:   make(map[string]Cell),
		overrides:   make(map[int]map[string]Cell),
		logger:      logger,
		deriveCache: utilities.NewCacheUtility(),
	}
}

// deriveCacheKey is the cache key a derived layout for n columns is stored
// under. Derivation only depends on canonical positions and item
// definitions, so the whole cache is invalidated (rather than keyed per
// generation) whenever either changes.
func deriveCacheKey(n int) string {
	return "derived:" + strconv.Itoa(n)
}

// DefineItem registers (or replaces) an item's intrinsic size and canonical
// position. Canonical positions always exist for every defined item at
// maxColumns (spec.md §3). Returns an error, leaving the model unchanged, if
// canonicalCell or size violates the 1-indexed cell / >=1 span invariant.
func (rlm *ResponsiveLayoutModel) DefineItem(id string, size Size, canonicalCell Cell) error {
	if err := validatePosition(canonicalCell.Column, canonicalCell.Row, size.Width, size.Height); err != nil {
		return err
	}

	rlm.mu.Lock()
	defer rlm.mu.Unlock()
	rlm.definitions[id] = size
	rlm.canonical[id] = canonicalCell
	rlm.deriveCache.Clear()
	return nil
}

// Export returns a read-only copy of the model's definitions, canonical
// positions, overrides, and column bounds, so a host-side persistence layer
// (SPEC_FULL.md §11/§12's LayoutStore) can serialize the model without
// reaching into its private fields. The core has no persistence of its own
// (spec.md §1 Non-goals); Export is the read side of that boundary.
func (rlm *ResponsiveLayoutModel) Export() (definitions map[string]Size, canonical map[string]Cell, overrides map[int]map[string]Cell, minColumns, maxColumns int) {
	rlm.mu.RLock()
	defer rlm.mu.RUnlock()

	definitions = make(map[string]Size, len(rlm.definitions))
	for id, size := range rlm.definitions {
		definitions[id] = size
	}
	canonical = copyPositions(rlm.canonical)
	overrides = make(map[int]map[string]Cell, len(rlm.overrides))
	for n, positions := range rlm.overrides {
		overrides[n] = copyPositions(positions)
	}
	return definitions, canonical, overrides, rlm.minColumns, rlm.maxColumns
}

// Subscribe registers a change-notification callback and returns an
// unsubscribe callable.
func (rlm *ResponsiveLayoutModel) Subscribe(fn func()) func() {
	rlm.mu.Lock()
	rlm.subscribers = append(rlm.subscribers, fn)
	idx := len(rlm.subscribers) - 1
	rlm.mu.Unlock()

	return func() {
		rlm.mu.Lock()
		defer rlm.mu.Unlock()
		if idx < len(rlm.subscribers) {
			rlm.subscribers = append(rlm.subscribers[:idx], rlm.subscribers[idx+1:]...)
		}
	}
}

func (rlm *ResponsiveLayoutModel) notify() {
	for _, sub := range rlm.subscribers {
		sub()
	}
}

// clampColumns clamps n to [minColumns, maxColumns].
func (rlm *ResponsiveLayoutModel) clampColumns(n int) int {
	if n < rlm.minColumns {
		return rlm.minColumns
	}
	if n > rlm.maxColumns {
		return rlm.maxColumns
	}
	return n
}

// GetLayoutForColumns returns the layout for n columns: canonical if
// n==maxColumns, a stored override if one exists for n, otherwise a derived
// layout computed by first-fit packing of canonical items (spec.md §4.9).
func (rlm *ResponsiveLayoutModel) GetLayoutForColumns(n int) map[string]Cell {
	rlm.mu.RLock()
	defer rlm.mu.RUnlock()

	n = rlm.clampColumns(n)

	if n == rlm.maxColumns {
		return copyPositions(rlm.canonical)
	}
	if override, ok := rlm.overrides[n]; ok {
		return copyPositions(override)
	}
	return rlm.derive(n)
}

// derive packs canonical items, in canonical reading order, into n columns.
// Items wider than n are clamped; any item PackItems cannot place within its
// row-scan safety cap falls back to the last scanned row (spec.md §4.9, §7).
// Results are memoized in deriveCache, since repeated derivation at the same
// column count between canonical mutations is exactly the "Derivation
// determinism" property spec.md §8 requires and a pure function of
// (canonical, definitions, n) is safe to cache.
func (rlm *ResponsiveLayoutModel) derive(n int) map[string]Cell {
	key := deriveCacheKey(n)
	if cached, ok := rlm.deriveCache.Get(key); ok {
		return copyPositions(cached.(map[string]Cell))
	}

	items := make([]Item, 0, len(rlm.definitions))
	for id, size := range rlm.definitions {
		cell := rlm.canonical[id]
		items = append(items, Item{ID: id, Column: cell.Column, Row: cell.Row, Width: size.Width, Height: size.Height})
	}
	sort.Slice(items, func(i, j int) bool { return readingOrderLess(items[i], items[j]) })

	packed := PackItems(items, n)

	result := make(map[string]Cell, len(packed))
	for _, it := range packed {
		result[it.ID] = it.Cell()
	}
	rlm.deriveCache.Set(key, result, 5*time.Minute)
	return result
}

// SaveLayout writes positions as canonical (n==maxColumns) or as the override
// for n, and notifies subscribers (spec.md §4.9).
func (rlm *ResponsiveLayoutModel) SaveLayout(n int, positions map[string]Cell) {
	rlm.mu.Lock()
	n = rlm.clampColumns(n)
	if n == rlm.maxColumns {
		rlm.canonical = copyPositions(positions)
		rlm.deriveCache.Clear()
	} else {
		rlm.overrides[n] = copyPositions(positions)
	}
	rlm.mu.Unlock()
	rlm.notify()
}

// ClearOverride removes the stored override for n; a no-op for maxColumns
// (spec.md §4.9).
func (rlm *ResponsiveLayoutModel) ClearOverride(n int) {
	rlm.mu.Lock()
	if n != rlm.maxColumns {
		delete(rlm.overrides, n)
	}
	rlm.mu.Unlock()
	rlm.notify()
}

// UpdateItemSize replaces id's intrinsic size definition and notifies
// subscribers. Updating an unknown id is a no-op with an optional
// diagnostic logged (spec.md §7).
func (rlm *ResponsiveLayoutModel) UpdateItemSize(id string, size Size) {
	rlm.mu.Lock()
	if _, exists := rlm.definitions[id]; !exists {
		rlm.mu.Unlock()
		if rlm.logger != nil {
			rlm.logger.Warn("ResponsiveLayoutModel", "UpdateItemSize: unknown item id", map[string]any{"id": id})
		}
		return
	}
	rlm.definitions[id] = size
	rlm.deriveCache.Clear()
	rlm.mu.Unlock()
	rlm.notify()
}

// BreakpointCSSOptions configures GenerateAllBreakpointCSS.
type BreakpointCSSOptions struct {
	CellSize        float64
	Gap             float64
	SelectorPrefix  string
	SelectorSuffix  string
	GridSelector    string
}

// breakpointWidth computes W(n) = n*cellSize + (n-1)*gap (spec.md §4.9).
func (o BreakpointCSSOptions) breakpointWidth(n int) float64 {
	return float64(n)*o.CellSize + float64(n-1)*o.Gap
}

// GenerateAllBreakpointCSS emits a fallback block containing canonical
// positions (applies before container queries evaluate, preventing flash),
// then for each column count from maxColumns down to minColumns, a
// container-query block. The top breakpoint uses only min-width: W(max);
// the bottom uses only max-width: W(min+1)-1; intermediates use both bounds
// (spec.md §4.9).
func (rlm *ResponsiveLayoutModel) GenerateAllBreakpointCSS(opts BreakpointCSSOptions) string {
	rlm.mu.RLock()
	defer rlm.mu.RUnlock()

	var b strings.Builder

	b.WriteString(rlm.renderPositionRules(opts, copyPositions(rlm.canonical), rlm.maxColumns))
	b.WriteString("\n\n")

	for n := rlm.maxColumns; n >= rlm.minColumns; n-- {
		positions := copyPositions(rlm.canonical)
		if n != rlm.maxColumns {
			if override, ok := rlm.overrides[n]; ok {
				positions = copyPositions(override)
			} else {
				positions = rlm.derive(n)
			}
		}

		var condition string
		switch {
		case n == rlm.maxColumns:
			condition = fmt.Sprintf("(min-width: %gpx)", opts.breakpointWidth(n))
		case n == rlm.minColumns:
			condition = fmt.Sprintf("(max-width: %gpx)", opts.breakpointWidth(n+1)-1)
		default:
			condition = fmt.Sprintf("(min-width: %gpx) and (max-width: %gpx)", opts.breakpointWidth(n), opts.breakpointWidth(n+1)-1)
		}

		b.WriteString(fmt.Sprintf("@container %s {\n", condition))
		b.WriteString(fmt.Sprintf("  %s { grid-template-columns: repeat(%d, 1fr); }\n", opts.GridSelector, n))
		b.WriteString(rlm.renderPositionRules(opts, positions, n))
		b.WriteString("}\n\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// renderPositionRules emits grid-column/grid-row rules for each item,
// clamping width to columns, in the `SEL { grid-column: C / span W; grid-row:
// R / span H; }` form spec.md §4.8/§6 define.
func (rlm *ResponsiveLayoutModel) renderPositionRules(opts BreakpointCSSOptions, positions map[string]Cell, columns int) string {
	ids := make([]string, 0, len(positions))
	for id := range positions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	for _, id := range ids {
		cell := positions[id]
		width := rlm.definitions[id].Width
		if width < 1 {
			width = 1
		}
		if width > columns {
			width = columns
		}
		height := rlm.definitions[id].Height
		if height < 1 {
			height = 1
		}
		selector := opts.SelectorPrefix + normalizeSelectorID(id) + opts.SelectorSuffix
		b.WriteString(fmt.Sprintf("  %s { grid-column: %d / span %d; grid-row: %d / span %d; }\n", selector, cell.Column, width, cell.Row, height))
	}
	return b.String()
}
