// Package resource_access provides ResourceAccess layer components for the
// gridcore demo host, following the same iDesign layering the teacher uses
// for its own resource_access package. Unlike client/engines and
// client/managers, nothing here is imported by the core: the core has no
// built-in persistence (spec.md §1 Non-goals; it only emits positions for
// callers to save). LayoutStore is the one concretely wired example of a
// caller doing that saving, grounded on board_access.go and
// configuration_facet.go's "git-backed JSON" persistence pattern.
package resource_access

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rknuus/gridcore/client/engines"
	"github.com/rknuus/gridcore/internal/utilities"
)

// ItemSnapshot is the serializable form of one item's definition + canonical
// position (spec.md §6 "Persisted state layout").
type ItemSnapshot struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	Column int `json:"column"`
	Row    int `json:"row"`
}

// LayoutSnapshot is the on-disk shape spec.md §6 names: a maxColumns
// integer, an item-definition map, a canonical positions map, and an
// optional overrides map keyed by column count.
type LayoutSnapshot struct {
	MaxColumns int                              `json:"max_columns"`
	MinColumns int                              `json:"min_columns"`
	Items      map[string]ItemSnapshot          `json:"items"`
	Overrides  map[string]map[string]engines.Cell `json:"overrides,omitempty"`
	SavedAt    time.Time                        `json:"saved_at"`
}

// ILayoutStore persists ResponsiveLayoutModel snapshots to a git-tracked
// JSON file, the one legitimate place persistence belongs per spec.md §1 /
// SPEC_FULL.md §11: the demo host (cmd/gridcore-demo), not the core.
type ILayoutStore interface {
	// Save writes snapshot for gridID and commits it.
	Save(gridID string, snapshot LayoutSnapshot) error
	// Load reads the last-saved snapshot for gridID, or (zero, false, nil)
	// if none was ever saved.
	Load(gridID string) (LayoutSnapshot, bool, error)
	// History returns the commit history touching gridID's snapshot file.
	History(gridID string, limit int) ([]utilities.CommitInfo, error)
	Close() error
}

type layoutStore struct {
	repository utilities.Repository
	logger     utilities.ILoggingUtility
	mu         sync.Mutex
}

// NewLayoutStore initializes (or opens) a git repository at repositoryPath
// under gitConfig and returns a LayoutStore backed by it, grounded on
// board_access.go's NewBoardAccess / InitializeRepositoryWithConfig wiring.
func NewLayoutStore(repositoryPath string, gitConfig *utilities.AuthorConfiguration) (ILayoutStore, error) {
	logger := utilities.NewLoggingUtility()

	if gitConfig == nil {
		gitConfig = &utilities.AuthorConfiguration{
			User:  "gridcore-demo",
			Email: "gridcore-demo@local",
		}
	}

	repository, err := utilities.InitializeRepositoryWithConfig(repositoryPath, gitConfig)
	if err != nil {
		return nil, fmt.Errorf("resource_access.NewLayoutStore: failed to initialize repository: %w", err)
	}

	return &layoutStore{repository: repository, logger: logger}, nil
}

func (ls *layoutStore) snapshotPath(gridID string) (abs, relative string) {
	relative = filepath.Join(".gridcore", "layouts", gridID+".json")
	abs = filepath.Join(ls.repository.Path(), relative)
	return abs, relative
}

// Save serializes snapshot to JSON, writes it under .gridcore/layouts/, and
// commits the change (board_access.go / configuration_facet.go's
// write-stage-commit sequence, narrowed to one file per grid).
func (ls *layoutStore) Save(gridID string, snapshot LayoutSnapshot) error {
	if gridID == "" {
		return fmt.Errorf("resource_access.LayoutStore.Save: gridID cannot be empty")
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	snapshot.SavedAt = snapshot.SavedAt.UTC()
	content, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("resource_access.LayoutStore.Save: failed to serialize snapshot: %w", err)
	}

	abs, relative := ls.snapshotPath(gridID)
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return fmt.Errorf("resource_access.LayoutStore.Save: failed to create directory: %w", err)
	}
	if err := os.WriteFile(abs, content, 0644); err != nil {
		return fmt.Errorf("resource_access.LayoutStore.Save: failed to write snapshot: %w", err)
	}

	if err := ls.repository.Stage([]string{relative}); err != nil {
		return fmt.Errorf("resource_access.LayoutStore.Save: failed to stage snapshot: %w", err)
	}
	if _, err := ls.repository.Commit(fmt.Sprintf("Update layout snapshot: %s", gridID)); err != nil {
		return fmt.Errorf("resource_access.LayoutStore.Save: failed to commit snapshot: %w", err)
	}

	ls.logger.Log(utilities.Info, "LayoutStore", "saved layout snapshot", map[string]interface{}{
		"gridID": gridID,
		"items":  len(snapshot.Items),
	})
	return nil
}

// Load reads the last-saved snapshot for gridID. A missing file is not an
// error: it reports (zero value, false, nil), matching the teacher's
// configuration_facet.go treatment of a not-yet-created config file as a
// legitimate default case rather than a failure.
func (ls *layoutStore) Load(gridID string) (LayoutSnapshot, bool, error) {
	if gridID == "" {
		return LayoutSnapshot{}, false, fmt.Errorf("resource_access.LayoutStore.Load: gridID cannot be empty")
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	abs, _ := ls.snapshotPath(gridID)
	content, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return LayoutSnapshot{}, false, nil
		}
		return LayoutSnapshot{}, false, fmt.Errorf("resource_access.LayoutStore.Load: failed to read snapshot: %w", err)
	}

	var snapshot LayoutSnapshot
	if err := json.Unmarshal(content, &snapshot); err != nil {
		return LayoutSnapshot{}, false, fmt.Errorf("resource_access.LayoutStore.Load: failed to parse snapshot: %w", err)
	}
	return snapshot, true, nil
}

// History returns the commit history for gridID's snapshot file.
func (ls *layoutStore) History(gridID string, limit int) ([]utilities.CommitInfo, error) {
	_, relative := ls.snapshotPath(gridID)
	history, err := ls.repository.GetFileHistory(relative, limit)
	if err != nil {
		return nil, fmt.Errorf("resource_access.LayoutStore.History: %w", err)
	}
	return history, nil
}

func (ls *layoutStore) Close() error {
	return ls.repository.Close()
}

// SnapshotFromModel reads model's current definitions, canonical, and
// override positions into a LayoutSnapshot ready for Save. This is the
// bridge a host wires between spec.md §4.9's in-memory ResponsiveLayoutModel
// and LayoutStore's on-disk form; it belongs to the demo, not the core,
// and reads the model's private maps through its Export accessor.
func SnapshotFromModel(model *engines.ResponsiveLayoutModel) LayoutSnapshot {
	defs, canonical, overrides, minCols, maxCols := model.Export()

	items := make(map[string]ItemSnapshot, len(defs))
	ids := make([]string, 0, len(defs))
	for id := range defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		size := defs[id]
		cell := canonical[id]
		items[id] = ItemSnapshot{Width: size.Width, Height: size.Height, Column: cell.Column, Row: cell.Row}
	}

	out := make(map[string]map[string]engines.Cell, len(overrides))
	for n, positions := range overrides {
		key := fmt.Sprintf("%d", n)
		out[key] = positions
	}

	return LayoutSnapshot{
		MaxColumns: maxCols,
		MinColumns: minCols,
		Items:      items,
		Overrides:  out,
	}
}

// ApplyToModel replays a loaded snapshot's definitions, canonical positions,
// and overrides into model, the inverse of SnapshotFromModel.
func ApplyToModel(model *engines.ResponsiveLayoutModel, snapshot LayoutSnapshot) {
	ids := make([]string, 0, len(snapshot.Items))
	for id := range snapshot.Items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		it := snapshot.Items[id]
		model.DefineItem(id, engines.Size{Width: it.Width, Height: it.Height}, engines.Cell{Column: it.Column, Row: it.Row})
	}
	for key, positions := range snapshot.Overrides {
		var n int
		if _, err := fmt.Sscanf(key, "%d", &n); err != nil {
			continue
		}
		model.SaveLayout(n, positions)
	}
}
