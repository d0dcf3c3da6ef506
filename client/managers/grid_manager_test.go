package managers

import (
	"fmt"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/widget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rknuus/gridcore/client/engines"
)

// fakeHost is a minimal engines.GridHost stand-in for tests, the same role
// the teacher's test doubles play for its engine interfaces.
type fakeHost struct {
	items    []engines.Item
	elements map[string]fyne.CanvasObject
	cleared  []string
}

func newFakeHost(items ...engines.Item) *fakeHost {
	elements := make(map[string]fyne.CanvasObject, len(items))
	for _, it := range items {
		elements[it.ID] = widget.NewLabel(it.ID)
	}
	return &fakeHost{items: items, elements: elements}
}

func (h *fakeHost) ElementFor(itemID string) fyne.CanvasObject { return h.elements[itemID] }
func (h *fakeHost) CurrentRect(itemID string) engines.FlipRect {
	el := h.elements[itemID]
	if el == nil {
		return engines.FlipRect{}
	}
	return engines.FlipRect{Position: el.Position(), Size: el.Size()}
}
func (h *fakeHost) ClearInlineStyles(exceptItemID string) { h.cleared = append(h.cleared, exceptItemID) }
func (h *fakeHost) CurrentItems() []engines.Item          { return h.items }
func (h *fakeHost) ApplyLayout(items []engines.Item)      { h.items = items }
func (h *fakeHost) GridRect() (fyne.Position, fyne.Size) {
	return fyne.NewPos(0, 0), fyne.NewSize(400, 300)
}
func (h *fakeHost) Tracks() ([]float32, []float32, float32, float32) {
	return []float32{100, 100, 100, 100}, []float32{150, 150}, 0, 0
}

type fakeReflector struct {
	calls []string
}

func (r *fakeReflector) ReflectSelected(itemID string, selected bool) {
	r.calls = append(r.calls, fmt.Sprintf("%s:%v", itemID, selected))
}

// fakeObserver is a minimal engines.ResponsiveObserver stand-in whose
// reported count a test can change between SyncColumnCount calls.
type fakeObserver struct {
	count int
}

func (o *fakeObserver) CurrentColumnCount() int { return o.count }

func TestUnit_GridManager_InitRejectsNilElement(t *testing.T) {
	_, err := Init(nil, Options{Host: newFakeHost()})
	assert.Error(t, err)
}

func TestUnit_GridManager_InitRejectsNilHost(t *testing.T) {
	_, err := Init(widget.NewLabel("grid"), Options{})
	assert.Error(t, err)
}

func TestUnit_GridManager_SelectAndDeselect(t *testing.T) {
	host := newFakeHost(engines.Item{ID: "a", Column: 1, Row: 1, Width: 1, Height: 1})
	reflector := &fakeReflector{}
	gm, err := Init(widget.NewLabel("grid"), Options{Host: host, Selection: reflector})
	require.NoError(t, err)

	require.True(t, gm.Select("a"))
	id, ok := gm.SelectedItem()
	assert.True(t, ok)
	assert.Equal(t, "a", id)
	assert.Equal(t, []string{"a:true"}, reflector.calls)

	require.True(t, gm.Deselect())
	_, ok = gm.SelectedItem()
	assert.False(t, ok)
	assert.Equal(t, []string{"a:true", "a:false"}, reflector.calls)
}

func TestUnit_GridManager_SelectRejectedWhileInteracting(t *testing.T) {
	host := newFakeHost(engines.Item{ID: "a", Column: 1, Row: 1, Width: 1, Height: 1})
	gm, err := Init(widget.NewLabel("grid"), Options{Host: host})
	require.NoError(t, err)
	require.True(t, gm.Select("a"))

	require.True(t, gm.StateMachine().Dispatch(engines.Action{
		Kind:            engines.ActionStartInteraction,
		ItemID:          "a",
		InteractionType: engines.InteractionDrag,
		Mode:            engines.SourcePointer,
	}))

	assert.False(t, gm.Select("b"), "selection changes must be rejected mid-interaction")
}

// TestUnit_GridManager_SyncColumnCountEmitsOnChange covers spec.md §4.9's
// "external observer" column-count tracking.
func TestUnit_GridManager_SyncColumnCountEmitsOnChange(t *testing.T) {
	host := newFakeHost()
	observer := &fakeObserver{count: 4}
	gm, err := Init(widget.NewLabel("grid"), Options{Host: host, ResponsiveObserver: observer})
	require.NoError(t, err)

	var received []engines.ColumnCountChangeDetail
	gm.Bus().Subscribe(engines.EventColumnCountChange, func(name string, detail any) {
		received = append(received, detail.(engines.ColumnCountChangeDetail))
	})

	count, changed := gm.SyncColumnCount()
	assert.Equal(t, 4, count)
	assert.False(t, changed, "no change since Init already captured the initial count")
	assert.Empty(t, received)

	observer.count = 2
	count, changed = gm.SyncColumnCount()
	assert.Equal(t, 2, count)
	assert.True(t, changed)
	require.Len(t, received, 1)
	assert.Equal(t, engines.ColumnCountChangeDetail{PreviousCount: 4, CurrentCount: 2}, received[0])
}

func TestUnit_GridManager_SyncColumnCountNoopWithoutObserver(t *testing.T) {
	gm, err := Init(widget.NewLabel("grid"), Options{Host: newFakeHost()})
	require.NoError(t, err)

	count, changed := gm.SyncColumnCount()
	assert.Equal(t, 0, count)
	assert.False(t, changed)
}

// TestUnit_GridManager_SetKeyboardModeActive covers spec.md §4.10's
// keyboardModeActive surface.
func TestUnit_GridManager_SetKeyboardModeActive(t *testing.T) {
	gm, err := Init(widget.NewLabel("grid"), Options{Host: newFakeHost()})
	require.NoError(t, err)

	require.True(t, gm.SetKeyboardModeActive(true))
	assert.True(t, gm.StateMachine().State().KeyboardModeActive)

	require.True(t, gm.SetKeyboardModeActive(false))
	assert.False(t, gm.StateMachine().State().KeyboardModeActive)
}

func TestUnit_GridManager_Snapshot(t *testing.T) {
	host := newFakeHost(
		engines.Item{ID: "a", Column: 1, Row: 1, Width: 1, Height: 1},
		engines.Item{ID: "b", Column: 2, Row: 1, Width: 1, Height: 1},
	)
	gm, err := Init(widget.NewLabel("grid"), Options{Host: host})
	require.NoError(t, err)

	snap := gm.Snapshot()
	assert.Equal(t, engines.Cell{Column: 1, Row: 1}, snap["a"])
	assert.Equal(t, engines.Cell{Column: 2, Row: 1}, snap["b"])
}

func TestUnit_GridManager_GetCellFromPoint(t *testing.T) {
	host := newFakeHost()
	gm, err := Init(widget.NewLabel("grid"), Options{Host: host})
	require.NoError(t, err)

	cell, ok := gm.GetCellFromPoint(150, 10)
	require.True(t, ok)
	assert.Equal(t, 2, cell.Column)
	assert.Equal(t, 1, cell.Row)
}

func TestUnit_GridManager_PluginTeardownRunsInReverseOrder(t *testing.T) {
	host := newFakeHost()
	var order []string

	plugins := []Plugin{
		{Name: "first", Init: func(core *GridManager, _ map[string]any) (func(), error) {
			return func() { order = append(order, "first") }, nil
		}},
		{Name: "second", Init: func(core *GridManager, _ map[string]any) (func(), error) {
			return func() { order = append(order, "second") }, nil
		}},
	}

	gm, err := Init(widget.NewLabel("grid"), Options{Host: host, Plugins: plugins})
	require.NoError(t, err)

	gm.Destroy()
	assert.Equal(t, []string{"second", "first"}, order)
}

func TestUnit_GridManager_FailingPluginDoesNotAbortInit(t *testing.T) {
	host := newFakeHost()
	plugins := []Plugin{
		{Name: "broken", Init: func(core *GridManager, _ map[string]any) (func(), error) {
			return nil, fmt.Errorf("missing collaborator")
		}},
		{Name: "ok", Init: func(core *GridManager, _ map[string]any) (func(), error) {
			return func() {}, nil
		}},
	}

	gm, err := Init(widget.NewLabel("grid"), Options{Host: host, Plugins: plugins})
	require.NoError(t, err)
	assert.NotNil(t, gm)
}

func TestUnit_GridManager_DisabledPluginIsSkipped(t *testing.T) {
	host := newFakeHost()
	ran := false
	plugins := []Plugin{
		{Name: "optional", Init: func(core *GridManager, _ map[string]any) (func(), error) {
			ran = true
			return nil, nil
		}},
	}

	_, err := Init(widget.NewLabel("grid"), Options{
		Host:           host,
		Plugins:        plugins,
		DisablePlugins: map[string]bool{"optional": true},
	})
	require.NoError(t, err)
	assert.False(t, ran)
}
