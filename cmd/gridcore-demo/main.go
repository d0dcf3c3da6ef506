package main

import (
	"fmt"
	"log"
	"os"

	"fyne.io/fyne/v2"

	"github.com/rknuus/gridcore/client/engines"
	"github.com/rknuus/gridcore/client/managers"
	"github.com/rknuus/gridcore/internal/resource_access"
	"github.com/rknuus/gridcore/internal/utilities"
)

const (
	gridID      = "demo-board"
	maxColumns  = 4
	minColumns  = 1
	cellSizePx  = 180.0
	gapPx       = 16.0
	selectorPfx = "[data-gridcore-item=\""
	selectorSfx = "\"]"
)

func main() {
	repoPath := os.Getenv("GRIDCORE_DEMO_REPO")
	if repoPath == "" {
		repoPath = "./gridcore-demo-data"
	}

	logger := utilities.NewLoggingUtility()

	store, err := resource_access.NewLayoutStore(repoPath, &utilities.AuthorConfiguration{
		User:  "gridcore-demo",
		Email: "gridcore-demo@local",
	})
	if err != nil {
		log.Fatalf("gridcore-demo: failed to open layout store: %v", err)
	}
	defer store.Close()

	model := engines.NewResponsiveLayoutModel(minColumns, maxColumns, engines.NewUtilitiesLogger(logger, "ResponsiveLayoutModel"))

	snapshot, found, err := store.Load(gridID)
	if err != nil {
		log.Fatalf("gridcore-demo: failed to load snapshot: %v", err)
	}
	if found {
		resource_access.ApplyToModel(model, snapshot)
		logger.Log(utilities.Info, "gridcore-demo", "restored layout from store", map[string]interface{}{"items": len(snapshot.Items)})
	} else {
		seedDefaultLayout(model)
	}

	definitions, _, _, _, _ := model.Export()
	host := newDemoHost(maxColumns, fyne.NewSize(cellSizePx, cellSizePx), gapPx)
	for id, cell := range model.GetLayoutForColumns(maxColumns) {
		host.place(id, cell, definitions[id])
	}

	gm, err := managers.Init(host.items["item-a"], managers.Options{
		Host:               host,
		EventPrefix:        "gridcore:",
		ResponsiveObserver: host,
		Logger:             logger,
	})
	if err != nil {
		log.Fatalf("gridcore-demo: failed to init GridManager: %v", err)
	}
	defer gm.Destroy()

	flip := engines.NewFlipAnimator()
	harness := engines.NewAlgorithmHarness(gm.Bus(), gm.StateMachine(), gm.Providers(), gm.Styles(), model, flip, host, engines.HarnessOptions{
		Algorithm:      engines.AlgorithmPushDown,
		SelectorPrefix: selectorPfx,
		SelectorSuffix: selectorSfx,
		Logger:         engines.NewUtilitiesLogger(logger, "AlgorithmHarness"),
	})
	defer harness.Bind()()

	runDemoInteraction(gm, host, model, store)

	css := model.GenerateAllBreakpointCSS(engines.BreakpointCSSOptions{
		CellSize:       cellSizePx,
		Gap:            gapPx,
		SelectorPrefix: selectorPfx,
		SelectorSuffix: selectorSfx,
		GridSelector:   "[data-gridcore-grid]",
	})
	fmt.Println("--- generated container-query CSS ---")
	fmt.Println(css)
}

// seedDefaultLayout defines a small default board the first time the demo
// runs against an empty repository.
func seedDefaultLayout(model *engines.ResponsiveLayoutModel) {
	model.DefineItem("item-a", engines.Size{Width: 2, Height: 1}, engines.Cell{Column: 1, Row: 1})
	model.DefineItem("item-b", engines.Size{Width: 2, Height: 1}, engines.Cell{Column: 3, Row: 1})
	model.DefineItem("item-c", engines.Size{Width: 2, Height: 1}, engines.Cell{Column: 1, Row: 2})
	model.DefineItem("item-d", engines.Size{Width: 2, Height: 1}, engines.Cell{Column: 3, Row: 2})
	model.SaveLayout(maxColumns, model.GetLayoutForColumns(maxColumns))
}

// runDemoInteraction simulates a full pointer drag of item-a to column 3,
// row 1, exercising the harness's drag-start/move/end lifecycle, then saves
// and commits the model's snapshot to the layout store.
func runDemoInteraction(gm *managers.GridManager, host *demoHost, model *engines.ResponsiveLayoutModel, store resource_access.ILayoutStore) {
	gm.Select("item-a")

	gm.Emit(engines.EventDragStart, engines.DragDetail{
		ItemID: "item-a", Cell: engines.Cell{Column: 1, Row: 1}, Colspan: 2, Rowspan: 1, Source: engines.SourcePointer,
	})
	gm.Emit(engines.EventDragMove, engines.DragDetail{
		ItemID: "item-a", Cell: engines.Cell{Column: 3, Row: 1}, Colspan: 2, Rowspan: 1, Source: engines.SourcePointer,
	})
	gm.Emit(engines.EventDragEnd, engines.DragDetail{
		ItemID: "item-a", Cell: engines.Cell{Column: 3, Row: 1}, Colspan: 2, Rowspan: 1, Source: engines.SourcePointer,
	})

	if _, changed := gm.SyncColumnCount(); changed {
		log.Printf("gridcore-demo: column count changed")
	}

	snapshot := resource_access.SnapshotFromModel(model)
	if err := store.Save(gridID, snapshot); err != nil {
		log.Printf("gridcore-demo: failed to save snapshot: %v", err)
	}

	fmt.Println("--- final item positions ---")
	for _, it := range host.CurrentItems() {
		fmt.Printf("%s: column=%d row=%d width=%d height=%d\n", it.ID, it.Column, it.Row, it.Width, it.Height)
	}
}
