package registry

import (
	"sort"
	"sync"
	"time"

	"lighterbook/internal/book"
	"lighterbook/internal/feed"
)

// SubscriberBuffer is the capacity of each subscriber's update channel.
const SubscriberBuffer = 256

// BookUpdate is the immutable notification published after a snapshot
// or delta lands. Consumers pull whatever state they need via Snapshot.
type BookUpdate struct {
	MarketID  string
	Offset    uint64
	Nonce     uint64
	Timestamp time.Time
}

// entry pairs a book with its own lock so that markets never contend
// with each other. Reads go through clone, which also needs exclusive
// access, so there is no shared-reader mode.
type entry struct {
	mu   sync.Mutex
	book *book.Book
}

// Registry is the concurrency-safe owner of all books.
type Registry struct {
	mu    sync.RWMutex
	books map[string]*entry

	subMu   sync.Mutex
	subs    map[int]chan BookUpdate
	nextSub int
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		books: make(map[string]*entry),
		subs:  make(map[int]chan BookUpdate),
	}
}

func (r *Registry) getOrCreate(marketID string) *entry {
	r.mu.RLock()
	e, ok := r.books[marketID]
	r.mu.RUnlock()
	if ok {
		return e
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok = r.books[marketID]; ok {
		return e
	}
	e = &entry{book: book.New(marketID)}
	r.books[marketID] = e
	return e
}

// GetOrCreate ensures a book exists for marketID and returns a clone of
// its current state. Repeated calls for the same id address the same
// logical book.
func (r *Registry) GetOrCreate(marketID string) *book.Book {
	e := r.getOrCreate(marketID)
	return e.clone()
}

// clone copies the entry's book under the write lock: btree cloning
// mutates the shared copy-on-write context, so it is a write on the
// source tree even though the book is not logically changed.
func (e *entry) clone() *book.Book {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.Clone()
}

// ApplySnapshot resets the market's book from a full snapshot, creating
// the book if the market is new. On success subscribers are notified.
func (r *Registry) ApplySnapshot(marketID string, snap *feed.Snapshot, ts time.Time) error {
	e := r.getOrCreate(marketID)

	e.mu.Lock()
	err := e.book.ApplySnapshot(snap, ts)
	var note BookUpdate
	if err == nil {
		note = BookUpdate{
			MarketID:  marketID,
			Offset:    e.book.Offset(),
			Nonce:     e.book.Nonce(),
			Timestamp: e.book.Timestamp(),
		}
	}
	e.mu.Unlock()

	if err != nil {
		return err
	}
	r.publish(note)
	return nil
}

// ApplyDelta merges an incremental update into the market's book.
// Stale deltas are dropped without error and without notifying
// subscribers; deltas for a never-snapshotted market return
// book.ErrNoBaseline.
func (r *Registry) ApplyDelta(marketID string, upd *feed.Update, ts time.Time) error {
	e := r.getOrCreate(marketID)

	e.mu.Lock()
	prev := e.book.Offset()
	err := e.book.ApplyDelta(upd, ts)
	advanced := err == nil && e.book.Offset() != prev
	var note BookUpdate
	if advanced {
		note = BookUpdate{
			MarketID:  marketID,
			Offset:    e.book.Offset(),
			Nonce:     e.book.Nonce(),
			Timestamp: e.book.Timestamp(),
		}
	}
	e.mu.Unlock()

	if err != nil {
		return err
	}
	if advanced {
		r.publish(note)
	}
	return nil
}

// Snapshot returns a point-in-time copy of the market's book, or false
// if the market has never been seen.
func (r *Registry) Snapshot(marketID string) (*book.Book, bool) {
	r.mu.RLock()
	e, ok := r.books[marketID]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return e.clone(), true
}

// Markets returns the ids of every known book, sorted for stable
// output.
func (r *Registry) Markets() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.books))
	for id := range r.books {
		out = append(out, id)
	}
	r.mu.RUnlock()

	sort.Strings(out)
	return out
}

// Subscribe registers an update listener. The returned cancel func
// closes the channel and releases the subscription.
func (r *Registry) Subscribe() (<-chan BookUpdate, func()) {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	id := r.nextSub
	r.nextSub++
	ch := make(chan BookUpdate, SubscriberBuffer)
	r.subs[id] = ch

	cancel := func() {
		r.subMu.Lock()
		defer r.subMu.Unlock()
		if c, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// publish fans an update out to every subscriber without blocking.
// A full subscriber drops its oldest pending update to make room.
func (r *Registry) publish(u BookUpdate) {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	for _, ch := range r.subs {
		select {
		case ch <- u:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- u:
			default:
			}
		}
	}
}
