package book

import (
	"time"

	"github.com/shopspring/decimal"

	"lighterbook/internal/feed"
)

// Book holds the live two-sided limit order book for one market plus
// its sequence metadata. The zero offset means no snapshot has been
// applied yet.
type Book struct {
	marketID  string
	asks      *Ladder
	bids      *Ladder
	offset    uint64
	nonce     uint64
	timestamp time.Time
}

// New creates an empty book for a market.
func New(marketID string) *Book {
	return &Book{
		marketID: marketID,
		asks:     NewLadder(),
		bids:     NewLadder(),
	}
}

// MarketID returns the market identifier the book was created with.
func (b *Book) MarketID() string { return b.marketID }

// Offset returns the sequence position of the last applied message.
func (b *Book) Offset() uint64 { return b.offset }

// Nonce returns the nonce carried by the last applied message.
func (b *Book) Nonce() uint64 { return b.nonce }

// Timestamp returns the wall-clock marker of the last applied message.
func (b *Book) Timestamp() time.Time { return b.timestamp }

// HasBaseline reports whether a snapshot has established the book.
func (b *Book) HasBaseline() bool { return b.offset > 0 }

type parsedLevel struct {
	price decimal.Decimal
	size  decimal.Decimal
}

func parseLevels(levels []feed.PriceLevel, side string) ([]parsedLevel, error) {
	out := make([]parsedLevel, 0, len(levels))
	for _, lv := range levels {
		price, err := decimal.NewFromString(lv.Price)
		if err != nil {
			return nil, &ParseError{Field: side + " price", Value: lv.Price, Err: err}
		}
		size, err := decimal.NewFromString(lv.Size)
		if err != nil {
			return nil, &ParseError{Field: side + " size", Value: lv.Size, Err: err}
		}
		out = append(out, parsedLevel{price: price, size: size})
	}
	return out, nil
}

// ApplySnapshot replaces the book's entire state from a full snapshot.
// Every price and size is parsed before anything is mutated, so a
// malformed snapshot returns a *ParseError and leaves the book exactly
// as it was. A fresh snapshot always supersedes prior state regardless
// of the offset it carries; levels with zero size are omitted.
func (b *Book) ApplySnapshot(snap *feed.Snapshot, ts time.Time) error {
	asks, err := parseLevels(snap.Asks, "ask")
	if err != nil {
		return err
	}
	bids, err := parseLevels(snap.Bids, "bid")
	if err != nil {
		return err
	}

	b.asks.Clear()
	b.bids.Clear()
	for _, lv := range asks {
		if lv.size.IsPositive() {
			b.asks.Set(lv.price, lv.size)
		}
	}
	for _, lv := range bids {
		if lv.size.IsPositive() {
			b.bids.Set(lv.price, lv.size)
		}
	}

	b.offset = snap.Offset
	b.nonce = snap.Nonce
	b.timestamp = ts
	return nil
}

// ApplyDelta merges an incremental update into a snapshotted book.
//
// A delta whose offset does not advance past the current one is a
// duplicate or retransmit and is dropped without error. A delta for a
// book with no baseline returns ErrNoBaseline. Parsing failure on any
// entry returns a *ParseError with no partial mutation: the whole
// message is parsed before the first level is touched. Offsets may jump
// forward; gaps are not detected.
func (b *Book) ApplyDelta(upd *feed.Update, ts time.Time) error {
	if !b.HasBaseline() {
		return ErrNoBaseline
	}
	if upd.Offset <= b.offset {
		return nil
	}

	asks, err := parseLevels(upd.Asks, "ask")
	if err != nil {
		return err
	}
	bids, err := parseLevels(upd.Bids, "bid")
	if err != nil {
		return err
	}

	applySide(b.asks, asks)
	applySide(b.bids, bids)

	b.offset = upd.Offset
	b.nonce = upd.Nonce
	b.timestamp = ts
	return nil
}

func applySide(side *Ladder, levels []parsedLevel) {
	for _, lv := range levels {
		if lv.size.IsZero() {
			side.Remove(lv.price)
		} else if lv.size.IsPositive() {
			side.Set(lv.price, lv.size)
		}
	}
}

// Clone returns an independent copy of the book. The price ladders are
// cloned copy-on-write, so this is cheap enough to hand out per query.
func (b *Book) Clone() *Book {
	return &Book{
		marketID:  b.marketID,
		asks:      b.asks.Clone(),
		bids:      b.bids.Clone(),
		offset:    b.offset,
		nonce:     b.nonce,
		timestamp: b.timestamp,
	}
}
