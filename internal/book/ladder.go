package book

import (
	"github.com/google/btree"
	"github.com/shopspring/decimal"
)

const ladderDegree = 32

// Level is one resting price level: an exact price and the aggregate
// size at that price. A stored size is always strictly positive.
type Level struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// Less orders levels by price, which makes a Ladder a sorted set keyed
// by exact decimal price.
func (l Level) Less(than btree.Item) bool {
	return l.Price.LessThan(than.(Level).Price)
}

// Ladder holds one side of a book ordered ascending by price. Insert,
// replace and remove are logarithmic in the number of levels; top-N
// traversal stops after N levels.
type Ladder struct {
	tree *btree.BTree
}

// NewLadder returns an empty ladder.
func NewLadder() *Ladder {
	return &Ladder{tree: btree.New(ladderDegree)}
}

// Set inserts or replaces the size at price. Callers never pass a
// non-positive size; deletions go through Remove.
func (l *Ladder) Set(price, size decimal.Decimal) {
	l.tree.ReplaceOrInsert(Level{Price: price, Size: size})
}

// Remove deletes the level at price if present, otherwise does nothing.
func (l *Ladder) Remove(price decimal.Decimal) {
	l.tree.Delete(Level{Price: price})
}

// Get returns the level at exactly price.
func (l *Ladder) Get(price decimal.Decimal) (Level, bool) {
	item := l.tree.Get(Level{Price: price})
	if item == nil {
		return Level{}, false
	}
	return item.(Level), true
}

// Len returns the number of distinct price levels.
func (l *Ladder) Len() int {
	return l.tree.Len()
}

// Min returns the lowest-priced level.
func (l *Ladder) Min() (Level, bool) {
	item := l.tree.Min()
	if item == nil {
		return Level{}, false
	}
	return item.(Level), true
}

// Max returns the highest-priced level.
func (l *Ladder) Max() (Level, bool) {
	item := l.tree.Max()
	if item == nil {
		return Level{}, false
	}
	return item.(Level), true
}

// Ascend walks levels from the lowest price up until fn returns false.
func (l *Ladder) Ascend(fn func(Level) bool) {
	l.tree.Ascend(func(item btree.Item) bool {
		return fn(item.(Level))
	})
}

// Descend walks levels from the highest price down until fn returns
// false.
func (l *Ladder) Descend(fn func(Level) bool) {
	l.tree.Descend(func(item btree.Item) bool {
		return fn(item.(Level))
	})
}

// Clear removes every level.
func (l *Ladder) Clear() {
	l.tree.Clear(false)
}

// Clone returns a copy that shares nodes with the receiver
// copy-on-write, so cloning is cheap even for deep books.
func (l *Ladder) Clone() *Ladder {
	return &Ladder{tree: l.tree.Clone()}
}
