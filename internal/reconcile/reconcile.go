// Package reconcile provides diff and shape-check logic for confirmed
// collection state. Engines never merge deltas locally; these helpers only
// describe what a server-confirmed replacement changed, choose the remote
// step for a quantity change, and reject responses that break collection
// invariants.
package reconcile

import (
	"fmt"
	"sort"

	"shopsync/internal/model"
)

// Direction is the remote step needed to move a line toward a desired quantity.
type Direction int

const (
	None Direction = iota
	Increase
	Decrease
)

func (d Direction) String() string {
	switch d {
	case Increase:
		return "increase"
	case Decrease:
		return "decrease"
	default:
		return "none"
	}
}

// Step compares the desired quantity against the currently known one.
//
// The comparison is only as good as current: if another update for the same
// line is still in flight, current is stale and the chosen step may not
// match intent.
func Step(current, desired int) Direction {
	switch {
	case desired > current:
		return Increase
	case desired < current:
		return Decrease
	default:
		return None
	}
}

// LineDiff describes how a confirmed replacement changed the cart.
type LineDiff struct {
	Added   []model.LineKey
	Removed []model.LineKey
	Changed []QuantityChange
}

// QuantityChange records a line whose quantity differs between snapshots.
type QuantityChange struct {
	Key    model.LineKey
	Before int
	After  int
}

// IsEmpty returns true if the two snapshots are identical.
func (d *LineDiff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// DiffLines computes the change from before to after, keyed by (product, size).
// Output slices are sorted by key for stable logging.
func DiffLines(before, after []model.CartLineItem) *LineDiff {
	diff := &LineDiff{}

	beforeByKey := make(map[model.LineKey]int, len(before))
	for _, item := range before {
		beforeByKey[item.Key()] = item.Quantity
	}
	afterByKey := make(map[model.LineKey]int, len(after))
	for _, item := range after {
		afterByKey[item.Key()] = item.Quantity
	}

	for key, qty := range afterByKey {
		prev, exists := beforeByKey[key]
		switch {
		case !exists:
			diff.Added = append(diff.Added, key)
		case prev != qty:
			diff.Changed = append(diff.Changed, QuantityChange{Key: key, Before: prev, After: qty})
		}
	}
	for key := range beforeByKey {
		if _, exists := afterByKey[key]; !exists {
			diff.Removed = append(diff.Removed, key)
		}
	}

	sortKeys(diff.Added)
	sortKeys(diff.Removed)
	sort.Slice(diff.Changed, func(i, j int) bool {
		return diff.Changed[i].Key.String() < diff.Changed[j].Key.String()
	})
	return diff
}

// CheckLines verifies a server-returned cart upholds the collection invariants:
// one line per (product, size), every quantity >= 1, every line identified.
// A violation means the response cannot be mirrored without guessing.
func CheckLines(lines []model.CartLineItem) error {
	seen := make(map[model.LineKey]struct{}, len(lines))
	for i, item := range lines {
		if item.ProductRef == "" {
			return fmt.Errorf("items[%d]: missing product reference", i)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("items[%d]: quantity %d for %s", i, item.Quantity, item.Key())
		}
		if _, dup := seen[item.Key()]; dup {
			return fmt.Errorf("items[%d]: duplicate line %s", i, item.Key())
		}
		seen[item.Key()] = struct{}{}
	}
	return nil
}

// CheckSet verifies a server-returned presence set holds each product at
// most once and every entry is identified.
func CheckSet(ids []model.ProductID) error {
	seen := make(map[model.ProductID]struct{}, len(ids))
	for i, id := range ids {
		if id == "" {
			return fmt.Errorf("items[%d]: missing product reference", i)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("items[%d]: duplicate product %s", i, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// SetDiff describes membership changes between two presence sets.
type SetDiff struct {
	Added   []model.ProductID
	Removed []model.ProductID
}

// IsEmpty returns true if no membership changed.
func (d *SetDiff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// DiffSet computes membership changes from before to after.
func DiffSet(before, after map[model.ProductID]bool) *SetDiff {
	diff := &SetDiff{}
	for id := range after {
		if !before[id] {
			diff.Added = append(diff.Added, id)
		}
	}
	for id := range before {
		if !after[id] {
			diff.Removed = append(diff.Removed, id)
		}
	}
	sort.Slice(diff.Added, func(i, j int) bool { return diff.Added[i] < diff.Added[j] })
	sort.Slice(diff.Removed, func(i, j int) bool { return diff.Removed[i] < diff.Removed[j] })
	return diff
}

func sortKeys(keys []model.LineKey) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
}
