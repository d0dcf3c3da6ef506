package engines

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"fyne.io/fyne/v2"
)

// AlgorithmKind selects which pure layout algorithm the harness wires to the
// event bus (spec.md §9 Open Question: "A rewrite must pick one... harness").
type AlgorithmKind int

const (
	AlgorithmPushDown AlgorithmKind = iota
	AlgorithmReorder
)

// algorithm computes a new layout for a moved item and reports the cell it
// actually landed on (which the reorder algorithm may differ from the
// cursor's target cell, spec.md §6 drop-preview).
type algorithm interface {
	compute(items []Item, movedID string, target Cell, columns int) (result []Item, landing Cell)
}

type pushDownAlgorithm struct{}

func (pushDownAlgorithm) compute(items []Item, movedID string, target Cell, _ int) ([]Item, Cell) {
	return CalculateLayout(items, movedID, target, DefaultPushDownOptions()), target
}

type reorderAlgorithm struct{}

func (reorderAlgorithm) compute(items []Item, movedID string, target Cell, columns int) ([]Item, Cell) {
	result := CalculateReorderLayout(items, movedID, target, ReorderOptions{Columns: columns})
	landing := target
	if moved := findItem(result, movedID); moved != nil {
		landing = moved.Cell()
	}
	return result, landing
}

// HarnessOptions configures NewAlgorithmHarness.
type HarnessOptions struct {
	Algorithm      AlgorithmKind
	SelectorPrefix string
	SelectorSuffix string
	Logger         Logger
	ViewTransition ViewTransitionRunner // nil falls back to synchronous application
}

// AlgorithmHarness is the only component that touches the DOM on behalf of
// an algorithm (spec.md §4.8). It wires either the push-down or reorder
// algorithm to the event bus and state machine: captures original positions
// at interaction start, recomputes layout on every move, applies results
// through the animator/style manager, and persists final positions to the
// layout model on commit. Grounded on the teacher's workflowManager
// (dragWorkflows.ProcessDragDropWorkflow wiring an engine to backend state)
// generalized from a single CRUD call into the full per-frame recompute loop
// spec.md §4.8 specifies.
type AlgorithmHarness struct {
	bus         *EventBus
	sm          *StateMachine
	providers   *ProviderRegistry
	styles      *StyleLayerManager
	layoutModel *ResponsiveLayoutModel
	flip        *FlipAnimator
	host        GridHost
	algo        algorithm
	opts        HarnessOptions
	geometry    *GeometryEngine

	mu            sync.Mutex
	layoutVersion uint64
	pendingTarget *Cell
	draggedID     string
	firstRect     FlipRect
}

// NewAlgorithmHarness wires bus, sm, providers, styles, layoutModel, flip,
// and host together under opts.
func NewAlgorithmHarness(bus *EventBus, sm *StateMachine, providers *ProviderRegistry, styles *StyleLayerManager, layoutModel *ResponsiveLayoutModel, flip *FlipAnimator, host GridHost, opts HarnessOptions) *AlgorithmHarness {
	var algo algorithm = pushDownAlgorithm{}
	if opts.Algorithm == AlgorithmReorder {
		algo = reorderAlgorithm{}
	}
	return &AlgorithmHarness{
		bus:         bus,
		sm:          sm,
		providers:   providers,
		styles:      styles,
		layoutModel: layoutModel,
		flip:        flip,
		host:        host,
		algo:        algo,
		opts:        opts,
		geometry:    NewGeometryEngine(),
	}
}

// Bind subscribes the harness to the event bus and returns a teardown
// callable (spec.md §4.4/§9).
func (h *AlgorithmHarness) Bind() func() {
	return h.bus.RegisterMany(map[string]EventHandler{
		EventDragStart:    func(_ string, d any) { h.onDragStart(d.(DragDetail)) },
		EventDragMove:     func(_ string, d any) { h.onDragMove(d.(DragDetail)) },
		EventDragEnd:      func(_ string, d any) { h.onDragEnd(d.(DragDetail)) },
		EventDragCancel:   func(_ string, d any) { h.onCancel(d.(DragCancelDetail).ItemID) },
		EventResizeStart:  func(_ string, d any) { h.onResizeStart(d.(ResizeDetail)) },
		EventResizeMove:   func(_ string, d any) { h.onResizeMove(d.(ResizeDetail)) },
		EventResizeEnd:    func(_ string, d any) { h.onResizeEnd(d.(ResizeDetail)) },
		EventResizeCancel: func(_ string, d any) { h.onCancel(d.(ResizeCancelDetail).ItemID) },
		EventCameraSettled: func(_ string, _ any) { h.onCameraSettled() },
	})
}

// warn reports a degraded-behavior diagnostic through opts.Logger, if one was
// supplied; a nil Logger means these are silently dropped (spec.md §7
// "no-op with diagnostic").
func (h *AlgorithmHarness) warn(message string, fields map[string]any) {
	if h.opts.Logger != nil {
		h.opts.Logger.Warn("AlgorithmHarness", message, fields)
	}
}

// nextVersion increments and returns the harness's layoutVersion counter,
// used to invalidate stale asynchronous View Transitions (spec.md §4.8, §5).
func (h *AlgorithmHarness) nextVersion() uint64 {
	return atomic.AddUint64(&h.layoutVersion, 1)
}

func (h *AlgorithmHarness) currentVersion() uint64 {
	return atomic.LoadUint64(&h.layoutVersion)
}

// onDragStart records originals, writes the initial preview layer, and
// clears inline styles on every item but the dragged one (spec.md §4.8).
func (h *AlgorithmHarness) onDragStart(d DragDetail) {
	state := h.sm.State()

	items := h.host.CurrentItems()
	originals := make(map[string]Cell, len(items))
	sizes := make(map[string]Size, len(items))
	for _, it := range items {
		originals[it.ID] = it.Cell()
		sizes[it.ID] = it.Size()
	}

	h.sm.Dispatch(Action{
		Kind:              ActionStartInteraction,
		ItemID:            d.ItemID,
		InteractionType:   InteractionDrag,
		Mode:              d.Source,
		Element:           h.host.ElementFor(d.ItemID),
		ColumnCount:       state.startColumnCount(h.currentColumnCount(items)),
		OriginalPositions: originals,
		OriginalSizes:     sizes,
		TargetCell:        d.Cell,
		Size:              Size{Width: d.Colspan, Height: d.Rowspan},
	})

	h.mu.Lock()
	h.draggedID = d.ItemID
	h.pendingTarget = nil
	h.firstRect = h.host.CurrentRect(d.ItemID)
	h.mu.Unlock()

	h.writePreview(items, state.clampedColumnCount(h.currentColumnCount(items)))
	h.host.ClearInlineStyles(d.ItemID)
}

// currentColumnCount derives a column count from the widest observed right
// edge when no explicit count is supplied; real hosts supply this via a
// ResponsiveObserver (spec.md §4.9) wired through the provider registry.
func (h *AlgorithmHarness) currentColumnCount(items []Item) int {
	if status, ok := h.providers.Get("resize"); ok {
		if rc, ok := status.(int); ok && rc > 0 {
			return rc
		}
	}
	max := 1
	for _, it := range items {
		if right := it.Column + it.Width - 1; right > max {
			max = right
		}
	}
	return max
}

func (s CoreState) startColumnCount(fallback int) int {
	if s.Interaction != nil && s.Interaction.ColumnCount > 0 {
		return s.Interaction.ColumnCount
	}
	return fallback
}

func (s CoreState) clampedColumnCount(fallback int) int {
	return s.startColumnCount(fallback)
}

// onDragMove recomputes layout on every move unless a camera scroll is in
// progress, in which case the target cell is stashed as pending (spec.md
// §4.8).
func (h *AlgorithmHarness) onDragMove(d DragDetail) {
	if h.cameraInProgress() {
		h.mu.Lock()
		cell := d.Cell
		h.pendingTarget = &cell
		h.mu.Unlock()
		return
	}
	h.recompute(d.Cell, false)
}

func (h *AlgorithmHarness) cameraInProgress() bool {
	status, ok := h.providers.Get("camera")
	if !ok {
		return false
	}
	cs, ok := status.(CameraStatus)
	return ok && cs.InProgress
}

// onCameraSettled resumes the pending target cell, or failing that the cell
// under the dragged element's current center (spec.md §4.8).
func (h *AlgorithmHarness) onCameraSettled() {
	h.mu.Lock()
	pending := h.pendingTarget
	h.pendingTarget = nil
	draggedID := h.draggedID
	h.mu.Unlock()

	if pending != nil {
		h.recompute(*pending, false)
		return
	}
	if draggedID == "" {
		return
	}
	h.recompute(h.nearestCellAfterSettle(draggedID), false)
}

// nearestCellAfterSettle resolves draggedID's post-scroll target cell from
// its current on-screen center. If the scroll carried that center outside
// the grid's bounding rect, the center is clamped to the nearest in-bounds
// point before resolving, using distance the same way
// layout_engine.go's SpatialMath.CalculateDistance measures a candidate's
// fitness (spec.md §4.8 "camera settled... re-resolve the drop target").
func (h *AlgorithmHarness) nearestCellAfterSettle(draggedID string) Cell {
	rect := h.host.CurrentRect(draggedID)
	center := fyne.NewPos(rect.Position.X+rect.Size.Width/2, rect.Position.Y+rect.Size.Height/2)

	gridPos, gridSize := h.host.GridRect()
	columns, rows, columnGap, rowGap := h.host.Tracks()
	info := h.geometry.GetGridInfo(gridPos, gridSize, columns, rows, columnGap, rowGap)

	if cell, ok := h.geometry.GetCellFromPoint(info, center.X, center.Y); ok {
		return cell
	}

	clamped := clampToRect(center, gridPos, gridSize)
	if cell, ok := h.geometry.GetCellFromPoint(info, clamped.X, clamped.Y); ok {
		h.warn("onCameraSettled: dragged element center left the grid bounds; clamped to nearest point", map[string]any{
			"itemID":          draggedID,
			"clampedDistance": distance(center, clamped),
		})
		return cell
	}
	return Cell{Column: 1, Row: 1}
}

// clampToRect constrains p to rectPos/rectSize's bounding rectangle.
func clampToRect(p fyne.Position, rectPos fyne.Position, rectSize fyne.Size) fyne.Position {
	x, y := p.X, p.Y
	if x < rectPos.X {
		x = rectPos.X
	}
	if x > rectPos.X+rectSize.Width {
		x = rectPos.X + rectSize.Width
	}
	if y < rectPos.Y {
		y = rectPos.Y
	}
	if y > rectPos.Y+rectSize.Height {
		y = rectPos.Y + rectSize.Height
	}
	return fyne.NewPos(x, y)
}

// recompute builds the items-with-originals view, runs the algorithm, and
// applies the result. useFinal controls whether this is the terminal
// drag-end/resize-end apply (which commits, rather than previews).
func (h *AlgorithmHarness) recompute(target Cell, useFinal bool) {
	state := h.sm.State()
	if state.Interaction == nil {
		h.warn("recompute: called with no active interaction", map[string]any{"target": target})
		return
	}
	ctx := state.Interaction

	items := h.itemsWithOriginals(ctx)
	result, landing := h.algo.compute(items, ctx.ItemID, target, ctx.ColumnCount)

	if landing != target {
		h.bus.Dispatch(EventDropPreview, DropPreviewDetail{Cell: landing, Colspan: ctx.Size.Width, Rowspan: ctx.Size.Height})
	}

	h.sm.Dispatch(Action{Kind: ActionUpdateInteraction, TargetCell: landing, Size: ctx.Size})

	pointerMidDrag := ctx.Mode == SourcePointer && !useFinal
	h.applyLayout(result, ctx, !pointerMidDrag, useFinal, nil)
}

// itemsWithOriginals substitutes every item except the interacting one with
// its captured original cell/size, so stale transient CSS cannot leak into
// the algorithm's view of the world (spec.md §4.8).
func (h *AlgorithmHarness) itemsWithOriginals(ctx *InteractionContext) []Item {
	ids := make([]string, 0, len(ctx.OriginalPositions))
	for id := range ctx.OriginalPositions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	items := make([]Item, 0, len(ids))
	for _, id := range ids {
		cell := ctx.OriginalPositions[id]
		size := ctx.OriginalSizes[id]
		if size.Width == 0 {
			size.Width = 1
		}
		if size.Height == 0 {
			size.Height = 1
		}
		if id == ctx.ItemID {
			size = ctx.Size
		}
		items = append(items, Item{ID: id, Column: cell.Column, Row: cell.Row, Width: size.Width, Height: size.Height})
	}
	return items
}

// applyLayout writes result to the preview layer and to the host's live
// elements, optionally wrapped in a View Transition, guarded by
// layoutVersion so a stale async completion cannot overwrite a newer apply
// (spec.md §4.8, §5, §8 scenario 8). For pointer interactions, the
// interacting element's view-transition name is suppressed so the FLIP
// animator owns its motion instead. onApplied, if non-nil,
// runs once the layout has actually taken effect and this apply is still the
// current one — the harness's hook for playing the FLIP animation only after
// the host has moved the dragged element to its resting position.
func (h *AlgorithmHarness) applyLayout(items []Item, ctx *InteractionContext, wrapTransition bool, final bool, onApplied func()) {
	version := h.nextVersion()

	update := func() {
		h.writePreview(items, ctx.ColumnCount)
		h.host.ApplyLayout(items)
	}

	suppressElement := ctx.Element != nil && ctx.Mode == SourcePointer
	if suppressElement {
		h.flip.SuppressViewTransition(ctx.Element, "", ctx.ItemID, ctx.ItemID)
	}

	var runner ViewTransitionRunner
	if wrapTransition {
		runner = h.opts.ViewTransition
	}
	done := RunOrFallback(runner, update)

	go func() {
		<-done
		if version != h.currentVersion() {
			h.warn("applyLayout: discarding stale View Transition completion", map[string]any{
				"interactionID": ctx.ID,
				"staleVersion":  version,
				"currentVersion": h.currentVersion(),
			})
			return // a newer layout already superseded this one
		}
		if onApplied != nil {
			onApplied()
		}
		if suppressElement && !final {
			h.flip.RestoreViewTransition(ctx.Element)
		}
	}()
}

// writePreview serializes items as CSS into the "preview" style layer,
// clamping width to columnCount so a colspan never overruns the track count
// (spec.md §4.8 "CSS emission").
func (h *AlgorithmHarness) writePreview(items []Item, columnCount int) {
	h.styles.Set("preview", h.serializeCSS(items, columnCount))
	h.styles.Commit()
}

// serializeCSS renders `<prefix><id><suffix>{ grid-column: C / span W;
// grid-row: R / span H; }` rules, clamping W to columnCount and the starting
// column so column+W-1 <= columnCount (spec.md §4.8).
func (h *AlgorithmHarness) serializeCSS(items []Item, columnCount int) string {
	if columnCount < 1 {
		columnCount = 1
	}
	ordered := cloneItems(items)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	var b strings.Builder
	for _, it := range ordered {
		width := it.Width
		if maxWidth := columnCount - it.Column + 1; maxWidth < width {
			width = maxWidth
		}
		if width < 1 {
			width = 1
		}
		selector := h.opts.SelectorPrefix + normalizeSelectorID(it.ID) + h.opts.SelectorSuffix
		fmt.Fprintf(&b, "%s { grid-column: %d / span %d; grid-row: %d / span %d; }\n", selector, it.Column, width, it.Row, it.Height)
	}
	return b.String()
}

// onDragEnd computes the final layout, clears the dragged element's
// sentinel view-transition name, and applies it. Pointer drags bypass the
// final View Transition (other items already settled; FLIP animates the
// dropped element); keyboard drags use one. On completion it persists
// positions to the layout model keyed by the interaction's start column
// count, then clears the preview layer (spec.md §4.8).
func (h *AlgorithmHarness) onDragEnd(d DragDetail) {
	state := h.sm.State()
	if state.Interaction == nil {
		h.warn("onDragEnd: no active interaction", map[string]any{"itemID": d.ItemID})
		return
	}
	ctx := state.Interaction

	items := h.itemsWithOriginals(ctx)
	result, landing := h.algo.compute(items, ctx.ItemID, d.Cell, ctx.ColumnCount)

	if ctx.Element != nil {
		h.flip.RestoreViewTransition(ctx.Element)
	}

	h.mu.Lock()
	first := h.firstRect
	h.mu.Unlock()

	wrapTransition := ctx.Mode == SourceKeyboard
	h.sm.Dispatch(Action{Kind: ActionCommitInteraction})
	h.applyLayout(result, ctx, wrapTransition, true, func() {
		// Pointer drags bypass the final View Transition (other items
		// already settled via the preview CSS); FLIP owns the dropped
		// element's motion from its pre-drag rect to its new resting
		// position, which host.ApplyLayout has just written (spec.md §4.8,
		// §2 "the dragged element's final motion is animated by C2").
		if ctx.Mode == SourcePointer && ctx.Element != nil {
			h.flip.Animate(ctx.Element, first, FlipOptions{ElementID: ctx.ItemID, DatasetID: ctx.ItemID})
		}
	})

	positions := make(map[string]Cell, len(result))
	for _, it := range result {
		positions[it.ID] = it.Cell()
	}
	h.layoutModel.SaveLayout(ctx.ColumnCount, positions)

	h.styles.Clear("preview")
	h.styles.Commit()

	h.sm.Dispatch(Action{Kind: ActionFinishCommit})
	_ = landing
}

// onCancel re-applies the original layout without a transition and clears
// interaction state (spec.md §4.8).
func (h *AlgorithmHarness) onCancel(itemID string) {
	state := h.sm.State()
	if state.Interaction == nil {
		h.warn("onCancel: no active interaction", map[string]any{"itemID": itemID})
		return
	}
	ctx := state.Interaction

	items := h.itemsWithOriginals(ctx)
	h.nextVersion()
	h.writePreview(items, ctx.ColumnCount)
	h.host.ApplyLayout(items)
	h.styles.Clear("preview")
	h.styles.Commit()

	if ctx.Element != nil {
		h.flip.RestoreViewTransition(ctx.Element)
	}

	h.mu.Lock()
	h.draggedID = ""
	h.pendingTarget = nil
	h.mu.Unlock()

	h.sm.Dispatch(Action{Kind: ActionCancelInteraction})
	_ = itemID
}

// onResizeStart mirrors onDragStart, additionally capturing the resized
// item's original size (spec.md §4.8 "Resize lifecycle mirrors drag").
func (h *AlgorithmHarness) onResizeStart(d ResizeDetail) {
	state := h.sm.State()
	items := h.host.CurrentItems()
	originals := make(map[string]Cell, len(items))
	sizes := make(map[string]Size, len(items))
	for _, it := range items {
		originals[it.ID] = it.Cell()
		sizes[it.ID] = it.Size()
	}

	h.sm.Dispatch(Action{
		Kind:              ActionStartInteraction,
		ItemID:            d.ItemID,
		InteractionType:   InteractionResize,
		Mode:              d.Source,
		Element:           h.host.ElementFor(d.ItemID),
		ColumnCount:       state.startColumnCount(h.currentColumnCount(items)),
		OriginalPositions: originals,
		OriginalSizes:     sizes,
		TargetCell:        d.Cell,
		Size:              Size{Width: d.Colspan, Height: d.Rowspan},
	})

	h.mu.Lock()
	h.draggedID = d.ItemID
	h.pendingTarget = nil
	h.firstRect = h.host.CurrentRect(d.ItemID)
	h.mu.Unlock()

	h.writePreview(items, h.currentColumnCount(items))
	h.host.ClearInlineStyles(d.ItemID)
}

// onResizeMove recomputes with the resized item's new cell/size substituted
// in (spec.md §4.8).
func (h *AlgorithmHarness) onResizeMove(d ResizeDetail) {
	state := h.sm.State()
	if state.Interaction == nil {
		h.warn("onResizeMove: no active interaction", map[string]any{"itemID": d.ItemID})
		return
	}
	h.sm.Dispatch(Action{Kind: ActionUpdateInteraction, TargetCell: d.Cell, Size: Size{Width: d.Colspan, Height: d.Rowspan}})
	h.recompute(d.Cell, false)
}

// onResizeEnd mirrors onDragEnd; the final commit also calls UpdateItemSize
// on the layout model, positions first and size second, to avoid a
// transient overlapping state (spec.md §4.8).
func (h *AlgorithmHarness) onResizeEnd(d ResizeDetail) {
	state := h.sm.State()
	if state.Interaction == nil {
		h.warn("onResizeEnd: no active interaction", map[string]any{"itemID": d.ItemID})
		return
	}
	ctx := state.Interaction

	items := h.itemsWithOriginals(ctx)
	items = replaceSize(items, ctx.ItemID, Size{Width: d.Colspan, Height: d.Rowspan})
	result, _ := h.algo.compute(items, ctx.ItemID, d.Cell, ctx.ColumnCount)

	if ctx.Element != nil {
		h.flip.RestoreViewTransition(ctx.Element)
	}

	h.mu.Lock()
	first := h.firstRect
	h.mu.Unlock()

	h.sm.Dispatch(Action{Kind: ActionCommitInteraction})
	h.applyLayout(result, ctx, true, true, func() {
		if ctx.Mode == SourcePointer && ctx.Element != nil {
			h.flip.Animate(ctx.Element, first, FlipOptions{ElementID: ctx.ItemID, DatasetID: ctx.ItemID})
		}
	})

	positions := make(map[string]Cell, len(result))
	for _, it := range result {
		positions[it.ID] = it.Cell()
	}
	h.layoutModel.SaveLayout(ctx.ColumnCount, positions)
	h.layoutModel.UpdateItemSize(ctx.ItemID, Size{Width: d.Colspan, Height: d.Rowspan})

	h.styles.Clear("preview")
	h.styles.Commit()

	h.sm.Dispatch(Action{Kind: ActionFinishCommit})
}

func replaceSize(items []Item, id string, size Size) []Item {
	out := cloneItems(items)
	if it := findItem(out, id); it != nil {
		it.Width = size.Width
		it.Height = size.Height
	}
	return out
}
