package engines

import (
	"sync"

	"fyne.io/fyne/v2"
	"github.com/google/uuid"
)

// Phase is CoreState's tagged variant (spec.md §3, §9 "State machine as
// tagged variants"). InteractionContext is only meaningfully populated in
// the interacting/committing phases.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSelected
	PhaseInteracting
	PhaseCommitting
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSelected:
		return "selected"
	case PhaseInteracting:
		return "interacting"
	case PhaseCommitting:
		return "committing"
	default:
		return "unknown"
	}
}

// InteractionType distinguishes a drag from a resize interaction.
type InteractionType string

const (
	InteractionDrag   InteractionType = "drag"
	InteractionResize InteractionType = "resize"
)

// InteractionContext is captured at START_INTERACTION and immutable for the
// interaction's duration except for TargetCell/Size, which UPDATE_INTERACTION
// mutates (spec.md §3).
type InteractionContext struct {
	// ID correlates this interaction's log lines and provider-registry
	// reads/writes across subsystems (C5 reducer, C8 harness), the same
	// role uuid.UUID plays for board_access.go/task_facet_impl.go's entity
	// identifiers (SPEC_FULL.md §11). It is not part of spec.md's data
	// model and carries no semantic weight beyond debugging correlation.
	ID                uuid.UUID
	Type              InteractionType
	Mode              InteractionSource
	ItemID            string
	Element           fyne.CanvasObject
	ColumnCount       int
	OriginalPositions map[string]Cell
	OriginalSizes     map[string]Size
	TargetCell        Cell
	Size              Size
	UseFlip           bool
	UseViewTransition bool
}

// clone returns a deep copy of the context so nothing outside the state
// machine can mutate the OriginalPositions/OriginalSizes/ColumnCount the
// spec requires to stay fixed after START_INTERACTION.
func (ic *InteractionContext) clone() *InteractionContext {
	if ic == nil {
		return nil
	}
	cp := *ic
	cp.OriginalPositions = make(map[string]Cell, len(ic.OriginalPositions))
	for k, v := range ic.OriginalPositions {
		cp.OriginalPositions[k] = v
	}
	cp.OriginalSizes = make(map[string]Size, len(ic.OriginalSizes))
	for k, v := range ic.OriginalSizes {
		cp.OriginalSizes[k] = v
	}
	return &cp
}

// CoreState is the full state the reducer operates over (spec.md §3).
type CoreState struct {
	Phase              Phase
	SelectedItemID     string // "" means no selection
	Interaction        *InteractionContext
	KeyboardModeActive bool
}

// ActionKind tags a reducer input (Action). Each Kind uses only the Action
// fields its transition needs, mirroring the teacher's dragManager methods
// (StartDrag/UpdateDragPosition/CompleteDrag/CancelDrag), unified here into
// one reducer entry point as spec.md §4.5 requires.
type ActionKind string

const (
	ActionSelect             ActionKind = "SELECT"
	ActionDeselect           ActionKind = "DESELECT"
	ActionStartInteraction   ActionKind = "START_INTERACTION"
	ActionUpdateInteraction  ActionKind = "UPDATE_INTERACTION"
	ActionCommitInteraction  ActionKind = "COMMIT_INTERACTION"
	ActionFinishCommit       ActionKind = "FINISH_COMMIT"
	ActionCancelInteraction  ActionKind = "CANCEL_INTERACTION"
	ActionToggleKeyboardMode ActionKind = "TOGGLE_KEYBOARD_MODE"
)

// Action carries the fields any reducer transition might need; unused fields
// are zero-valued for a given Kind.
type Action struct {
	Kind                ActionKind
	ItemID              string
	InteractionType     InteractionType
	Mode                InteractionSource
	Element             fyne.CanvasObject
	ColumnCount         int
	OriginalPositions   map[string]Cell
	OriginalSizes       map[string]Size
	TargetCell          Cell
	Size                Size
	KeyboardModeActive  bool
}

// reduce is the pure reducer: given a state and an action, it returns the
// next state and whether the transition was accepted. A rejected transition
// returns the input state unchanged and referentially (same Interaction
// pointer, same map values) so callers can tell nothing happened without a
// deep comparison. spec.md §4.5, §7 "Rejected state transition".
func reduce(state CoreState, action Action) (CoreState, bool) {
	switch action.Kind {
	case ActionSelect:
		switch state.Phase {
		case PhaseIdle, PhaseSelected:
			next := state
			next.Phase = PhaseSelected
			next.SelectedItemID = action.ItemID
			return next, true
		}

	case ActionDeselect:
		if state.Phase == PhaseSelected {
			next := state
			next.Phase = PhaseIdle
			next.SelectedItemID = ""
			return next, true
		}

	case ActionStartInteraction:
		if state.Phase == PhaseSelected {
			useFlip := action.Mode == SourcePointer
			ctx := &InteractionContext{
				ID:                uuid.New(),
				Type:              action.InteractionType,
				Mode:              action.Mode,
				ItemID:            action.ItemID,
				Element:           action.Element,
				ColumnCount:       action.ColumnCount,
				OriginalPositions: copyPositions(action.OriginalPositions),
				OriginalSizes:     copySizes(action.OriginalSizes),
				TargetCell:        action.TargetCell,
				Size:              action.Size,
				UseFlip:           useFlip,
				UseViewTransition: !useFlip,
			}
			next := state
			next.Phase = PhaseInteracting
			next.Interaction = ctx
			return next, true
		}

	case ActionUpdateInteraction:
		if state.Phase == PhaseInteracting && state.Interaction != nil {
			ctx := state.Interaction.clone()
			ctx.TargetCell = action.TargetCell
			ctx.Size = action.Size
			next := state
			next.Interaction = ctx
			return next, true
		}

	case ActionCommitInteraction:
		if state.Phase == PhaseInteracting {
			next := state
			next.Phase = PhaseCommitting
			return next, true
		}

	case ActionFinishCommit:
		if state.Phase == PhaseCommitting {
			next := state
			next.Phase = PhaseSelected
			next.Interaction = nil
			return next, true
		}

	case ActionCancelInteraction:
		if state.Phase == PhaseInteracting {
			next := state
			next.Phase = PhaseSelected
			next.Interaction = nil
			return next, true
		}

	case ActionToggleKeyboardMode:
		// Keyboard mode toggle is phase-independent (spec.md §4.5).
		next := state
		next.KeyboardModeActive = action.KeyboardModeActive
		return next, true
	}

	return state, false
}

func copyPositions(m map[string]Cell) map[string]Cell {
	out := make(map[string]Cell, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copySizes(m map[string]Size) map[string]Size {
	out := make(map[string]Size, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// StateMachineSubscriber is notified after each accepted transition, never
// after a rejected one (spec.md §4.5).
type StateMachineSubscriber func(state CoreState, action Action)

// StateMachine wraps the pure reducer with subscriber notification and
// synchronization, generalizing the teacher's dragManager from a
// single-purpose drag lifecycle into the full idle/selected/interacting/
// committing phase set spec.md §4.5 requires.
type StateMachine struct {
	mu          sync.Mutex
	state       CoreState
	subscribers []StateMachineSubscriber
}

// NewStateMachine creates a StateMachine starting in PhaseIdle.
func NewStateMachine() *StateMachine {
	return &StateMachine{}
}

// State returns a copy of the current state.
func (sm *StateMachine) State() CoreState {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.state
}

// Subscribe registers a subscriber, returning an unsubscribe callable.
func (sm *StateMachine) Subscribe(sub StateMachineSubscriber) func() {
	sm.mu.Lock()
	sm.subscribers = append(sm.subscribers, sub)
	idx := len(sm.subscribers) - 1
	sm.mu.Unlock()

	return func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if idx < len(sm.subscribers) {
			sm.subscribers = append(sm.subscribers[:idx], sm.subscribers[idx+1:]...)
		}
	}
}

// Dispatch applies action to the current state via the pure reducer. If
// accepted, the new state replaces the old one and subscribers are notified
// (outside the lock, per the teacher's NavigationEventDispatcher.Publish
// convention, to avoid deadlocks on reentrant Dispatch calls from a
// subscriber). A rejected action is silently dropped; no subscriber runs.
func (sm *StateMachine) Dispatch(action Action) bool {
	sm.mu.Lock()
	next, accepted := reduce(sm.state, action)
	if accepted {
		sm.state = next
	}
	subs := append([]StateMachineSubscriber(nil), sm.subscribers...)
	sm.mu.Unlock()

	if !accepted {
		return false
	}
	for _, sub := range subs {
		sub(next, action)
	}
	return true
}
