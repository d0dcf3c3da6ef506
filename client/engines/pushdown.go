package engines

import "sort"

// maxPushDepth caps collision-cascade recursion; maxCompactIterations caps
// the per-item upward compaction walk. Both are safety valves against
// malformed input, not limits correct input approaches (spec.md §4.6, §7).
const (
	maxPushDepth          = 50
	maxCompactIterations  = 100
)

// PushDownOptions configures CalculateLayout.
type PushDownOptions struct {
	// Compact runs the upward gravity-compaction phase. Defaults to true
	// when constructed via DefaultPushDownOptions.
	Compact bool
}

// DefaultPushDownOptions returns {Compact: true}, the spec's default.
func DefaultPushDownOptions() PushDownOptions {
	return PushDownOptions{Compact: true}
}

// CalculateLayout resolves collisions after moving movedID to targetCell by
// recursively pushing colliders downward, then (if opts.Compact) compacting
// upward to remove gaps. It never mutates items and never fails: if movedID
// is absent, it returns a deep copy of items unchanged (spec.md §4.6, §7).
func CalculateLayout(items []Item, movedID string, targetCell Cell, opts PushDownOptions) []Item {
	out := cloneItems(items)

	moved := findItem(out, movedID)
	if moved == nil {
		return out
	}
	moved.Column = targetCell.Column
	moved.Row = targetCell.Row

	pushDown(out, movedID, 0)

	if opts.Compact {
		compact(out, movedID)
	}

	return out
}

// pushDown finds colliders of the item named movedID, sorts them by
// descending row then ascending column (so lower-on-screen colliders are
// pushed before upper ones, letting upper ones settle above lower ones and
// preserving vertical reading order), and recurses on each as the new
// "moved" item up to maxPushDepth.
func pushDown(items []Item, movedID string, depth int) {
	if depth >= maxPushDepth {
		return
	}
	moved := findItem(items, movedID)
	if moved == nil {
		return
	}
	movedCopy := *moved

	var colliderIDs []string
	for i := range items {
		if items[i].ID == movedID {
			continue
		}
		if itemsOverlap(items[i], movedCopy) {
			colliderIDs = append(colliderIDs, items[i].ID)
		}
	}

	sort.Slice(colliderIDs, func(i, j int) bool {
		a := findItem(items, colliderIDs[i])
		b := findItem(items, colliderIDs[j])
		if a.Row != b.Row {
			return a.Row > b.Row // descending row
		}
		return a.Column < b.Column // ascending column tie-break
	})

	for _, id := range colliderIDs {
		collider := findItem(items, id)
		if collider == nil {
			continue
		}
		// Re-check overlap: an earlier collider in this batch may already
		// have pushed this one out of the way.
		if !itemsOverlap(*collider, movedCopy) {
			continue
		}
		collider.Row = movedCopy.Row + movedCopy.Height
		pushDown(items, id, depth+1)
	}
}

// compact sorts all non-moved items by ascending row then ascending column,
// and for each, walks it upward one row at a time while row >1 and the move
// introduces no overlap with any other item in the current layout, capped at
// maxCompactIterations per item (spec.md §4.6).
func compact(items []Item, movedID string) {
	order := make([]string, 0, len(items))
	for i := range items {
		if items[i].ID == movedID {
			continue
		}
		order = append(order, items[i].ID)
	}
	sort.Slice(order, func(i, j int) bool {
		a := findItem(items, order[i])
		b := findItem(items, order[j])
		return readingOrderLess(*a, *b)
	})

	for _, id := range order {
		it := findItem(items, id)
		if it == nil {
			continue
		}
		for iter := 0; iter < maxCompactIterations && it.Row > 1; iter++ {
			candidate := *it
			candidate.Row--
			if overlapsAny(items, candidate, id) {
				break
			}
			it.Row = candidate.Row
		}
	}
}

// overlapsAny reports whether candidate overlaps any item in items other
// than the one named excludeID.
func overlapsAny(items []Item, candidate Item, excludeID string) bool {
	for i := range items {
		if items[i].ID == excludeID {
			continue
		}
		if itemsOverlap(items[i], candidate) {
			return true
		}
	}
	return false
}
