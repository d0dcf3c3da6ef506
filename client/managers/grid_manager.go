// Package managers provides the Client Managers layer for the gridcore
// system, following the same iDesign namespace convention client/engines
// uses (gridcore.Client.Managers). GridManager is the engine/lifecycle
// component (C10 in spec.md §4.10): it binds a grid element to a core
// instance, exposing selection, cell lookup, grid metrics, event emission,
// the style manager, the state machine, and the provider registry, and runs
// a caller-supplied set of plugin constructors, collecting their teardown
// callbacks into one Destroy().
//
// Grounded on the teacher's ApplicationRoot (internal/client/managers,
// present only in the retrieval pack's original_source and not copied into
// this repository, but whose "compose the engines, expose a narrow surface,
// own the teardown list" shape this type follows) and on
// NavigationEventDispatcher's reverse-order teardown draining, generalized
// from a fixed composition root to the plugin-driven one spec.md §4.10/§9
// describes.
package managers

import (
	"fmt"
	"sync"

	"fyne.io/fyne/v2"
	"github.com/google/uuid"

	"github.com/rknuus/gridcore/client/engines"
	"github.com/rknuus/gridcore/internal/utilities"
)

// Plugin is a value-typed record {name, init(core, options) -> teardown}
// (spec.md §9 "Plugin dispatch"). A portable design passes an explicit
// plugin list into Init rather than relying on a process-wide registry
// populated by side-effect module loading, per spec.md §9's "no global"
// option. Init may return a non-nil error; GridManager.Init logs and skips
// that plugin rather than failing the whole binding (spec.md §7 "Missing
// required collaborator... returns without attaching; caller sees a null
// teardown").
type Plugin struct {
	Name string
	Init func(core *GridManager, options map[string]any) (teardown func(), err error)
}

// SelectionReflector mirrors selection state onto an item's external
// representation (spec.md §4.10 "reflects selection into a data attribute on
// the item"). Nil is valid: selection still transitions the state machine
// and emits select/deselect, just without any visible reflection.
type SelectionReflector interface {
	ReflectSelected(itemID string, selected bool)
}

// Options configures Init.
type Options struct {
	// Host is the live-grid seam the state machine, algorithm harness, and
	// geometry lookups read through. Required.
	Host engines.GridHost
	// StyleSink receives the composed stylesheet on every Commit (spec.md
	// §4.3); InitialStyleText, if non-empty, is captured under the "base"
	// layer, preserving server-rendered CSS (spec.md §4.10).
	StyleSink        engines.StyleSink
	InitialStyleText string
	// EventPrefix namespaces bus events; defaults to "gridcore:" (spec.md §6
	// "historical values... egg:, gridiot:... either acceptable").
	EventPrefix string
	// Selection reflects selection changes onto items; may be nil.
	Selection SelectionReflector
	// ResponsiveObserver reports the live column count so SyncColumnCount can
	// detect a change and emit column-count-change (spec.md §4.9 "Current
	// column count is tracked separately and updated by an external
	// observer"); may be nil.
	ResponsiveObserver engines.ResponsiveObserver
	// Logger receives degraded-behavior diagnostics (spec.md §7); may be nil.
	Logger utilities.ILoggingUtility
	// Plugins are run in order at Init, skipping any name present (and
	// true) in DisablePlugins. PluginOptions[name] is passed to that
	// plugin's Init, or nil if absent.
	Plugins        []Plugin
	PluginOptions  map[string]map[string]any
	DisablePlugins map[string]bool
}

// GridManager binds one grid element to a core instance (spec.md §4.10).
type GridManager struct {
	id      uuid.UUID
	element fyne.CanvasObject
	host    engines.GridHost

	geometry  *engines.GeometryEngine
	bus       *engines.EventBus
	sm        *engines.StateMachine
	providers *engines.ProviderRegistry
	styles    *engines.StyleLayerManager
	selection SelectionReflector
	observer  engines.ResponsiveObserver
	logger    utilities.ILoggingUtility

	mu              sync.Mutex
	selectedID      string
	lastColumnCount int
	teardowns       []func()
}

// Init binds element to a new GridManager. It creates a state machine,
// provider registry, and event bus; wraps opts.StyleSink in a
// StyleLayerManager seeded from opts.InitialStyleText; and runs every
// registered-but-not-disabled plugin's Init, collecting teardown callbacks
// (spec.md §4.10).
func Init(element fyne.CanvasObject, opts Options) (*GridManager, error) {
	if element == nil {
		return nil, fmt.Errorf("managers: Init requires a non-nil grid element")
	}
	if opts.Host == nil {
		return nil, fmt.Errorf("managers: Init requires a non-nil Host")
	}

	prefix := opts.EventPrefix
	if prefix == "" {
		prefix = "gridcore:"
	}

	gm := &GridManager{
		id:        uuid.New(),
		element:   element,
		host:      opts.Host,
		geometry:  engines.NewGeometryEngine(),
		bus:       engines.NewEventBus(prefix),
		sm:        engines.NewStateMachine(),
		providers: engines.NewProviderRegistry(),
		styles:    engines.NewStyleLayerManager(opts.StyleSink, opts.InitialStyleText),
		selection: opts.Selection,
		observer:  opts.ResponsiveObserver,
		logger:    opts.Logger,
	}

	if gm.observer != nil {
		gm.lastColumnCount = gm.observer.CurrentColumnCount()
		gm.providers.Register("resize", func() any { return gm.observer.CurrentColumnCount() })
	}

	for _, plugin := range opts.Plugins {
		if opts.DisablePlugins[plugin.Name] {
			continue
		}
		teardown, err := plugin.Init(gm, opts.PluginOptions[plugin.Name])
		if err != nil {
			gm.warn("Init: plugin failed to initialize", map[string]any{
				"plugin": plugin.Name,
				"error":  err.Error(),
			})
			continue
		}
		if teardown != nil {
			gm.teardowns = append(gm.teardowns, teardown)
		}
	}

	return gm, nil
}

func (gm *GridManager) warn(message string, fields map[string]any) {
	if gm.logger == nil {
		return
	}
	gm.logger.Log(utilities.Warning, "GridManager", message, fields)
}

// ID returns the correlation id this binding logs under.
func (gm *GridManager) ID() uuid.UUID { return gm.id }

// Element returns the bound grid element.
func (gm *GridManager) Element() fyne.CanvasObject { return gm.element }

// SelectedItem returns the currently selected item id and whether a
// selection is active.
func (gm *GridManager) SelectedItem() (string, bool) {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	return gm.selectedID, gm.selectedID != ""
}

// Select transitions to PhaseSelected for itemID, reflecting the change onto
// the item and emitting "select". Rejected (returns false) if an interaction
// is in progress (spec.md §4.10 "rejecting selection changes during
// interacting or committing").
func (gm *GridManager) Select(itemID string) bool {
	if !gm.sm.Dispatch(engines.Action{Kind: engines.ActionSelect, ItemID: itemID}) {
		return false
	}

	gm.mu.Lock()
	previous := gm.selectedID
	gm.selectedID = itemID
	gm.mu.Unlock()

	if gm.selection != nil {
		if previous != "" && previous != itemID {
			gm.selection.ReflectSelected(previous, false)
		}
		gm.selection.ReflectSelected(itemID, true)
	}
	gm.bus.Dispatch(engines.EventSelect, engines.SelectDetail{ItemID: itemID})
	return true
}

// Deselect transitions back to PhaseIdle, clearing the reflected selection
// and emitting "deselect" with the item that was selected (or "" if none).
func (gm *GridManager) Deselect() bool {
	if !gm.sm.Dispatch(engines.Action{Kind: engines.ActionDeselect}) {
		return false
	}

	gm.mu.Lock()
	previous := gm.selectedID
	gm.selectedID = ""
	gm.mu.Unlock()

	if gm.selection != nil && previous != "" {
		gm.selection.ReflectSelected(previous, false)
	}
	gm.bus.Dispatch(engines.EventDeselect, engines.SelectDetail{ItemID: previous})
	return true
}

// GetGridInfo reads the host's current track geometry (spec.md §4.1/§4.10).
func (gm *GridManager) GetGridInfo() engines.GridInfo {
	rect, size := gm.host.GridRect()
	columns, rows, columnGap, rowGap := gm.host.Tracks()
	return gm.geometry.GetGridInfo(rect, size, columns, rows, columnGap, rowGap)
}

// GetCellFromPoint maps a pointer point to a 1-indexed cell using the host's
// current grid geometry (spec.md §4.1).
func (gm *GridManager) GetCellFromPoint(px, py float32) (engines.Cell, bool) {
	return gm.geometry.GetCellFromPoint(gm.GetGridInfo(), px, py)
}

// Emit dispatches name on the bus with detail (spec.md §4.4, §6).
func (gm *GridManager) Emit(name string, detail any) {
	gm.bus.Dispatch(name, detail)
}

// Providers returns the provider registry (spec.md §4.4).
func (gm *GridManager) Providers() *engines.ProviderRegistry { return gm.providers }

// StateMachine returns the interaction state machine (spec.md §4.5).
func (gm *GridManager) StateMachine() *engines.StateMachine { return gm.sm }

// Styles returns the style layer manager (spec.md §4.3).
func (gm *GridManager) Styles() *engines.StyleLayerManager { return gm.styles }

// Bus returns the event bus plugins subscribe to (spec.md §4.4).
func (gm *GridManager) Bus() *engines.EventBus { return gm.bus }

// Host returns the bound GridHost, the seam an AlgorithmHarness or plugin
// needs to reach live item state.
func (gm *GridManager) Host() engines.GridHost { return gm.host }

// SyncColumnCount polls the configured ResponsiveObserver and, if the column
// count has changed since the last poll, emits column-count-change and
// returns the new count with changed=true (spec.md §4.9). A caller with no
// ResponsiveObserver configured gets (0, false) every time.
func (gm *GridManager) SyncColumnCount() (count int, changed bool) {
	if gm.observer == nil {
		return 0, false
	}

	current := gm.observer.CurrentColumnCount()

	gm.mu.Lock()
	previous := gm.lastColumnCount
	changed = current != previous
	if changed {
		gm.lastColumnCount = current
	}
	gm.mu.Unlock()

	if changed {
		gm.bus.Dispatch(engines.EventColumnCountChange, engines.ColumnCountChangeDetail{
			PreviousCount: previous,
			CurrentCount:  current,
		})
	}
	return current, changed
}

// SetKeyboardModeActive dispatches the phase-independent keyboard-mode
// toggle (spec.md §4.5, §4.10 "keyboardModeActive is part of CoreState the
// engine exposes"), the public surface for the state machine's
// TOGGLE_KEYBOARD_MODE action.
func (gm *GridManager) SetKeyboardModeActive(active bool) bool {
	return gm.sm.Dispatch(engines.Action{Kind: engines.ActionToggleKeyboardMode, KeyboardModeActive: active})
}

// Snapshot returns a race-free, read-only copy of every item's current
// position, so a host application can implement its own persistence: the
// core itself has none (spec.md §1 Non-goals), but it doesn't follow that it
// can't expose what a caller would persist (SPEC_FULL.md §12). Grounded on
// ApplicationRoot's read-only accessors.
func (gm *GridManager) Snapshot() map[string]engines.Cell {
	items := gm.host.CurrentItems()
	out := make(map[string]engines.Cell, len(items))
	for _, it := range items {
		out[it.ID] = it.Cell()
	}
	return out
}

// Destroy drains registered plugin teardowns in reverse registration order,
// breaking the core/plugin cyclic reference the way spec.md §9 prescribes,
// then clears the teardown list so a repeated Destroy call is a no-op.
func (gm *GridManager) Destroy() {
	gm.mu.Lock()
	teardowns := gm.teardowns
	gm.teardowns = nil
	gm.mu.Unlock()

	for i := len(teardowns) - 1; i >= 0; i-- {
		teardowns[i]()
	}
}
