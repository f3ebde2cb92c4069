package book

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"lighterbook/internal/feed"
)

func lv(price, size string) feed.PriceLevel {
	return feed.PriceLevel{Price: price, Size: size}
}

func snap(offset, nonce uint64, asks, bids []feed.PriceLevel) *feed.Snapshot {
	return &feed.Snapshot{Asks: asks, Bids: bids, Offset: offset, Nonce: nonce}
}

func upd(offset, nonce uint64, asks, bids []feed.PriceLevel) *feed.Update {
	return &feed.Update{Asks: asks, Bids: bids, Offset: offset, Nonce: nonce}
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", s, err)
	}
	return d
}

// seededBook loads the reference snapshot: asks 100/101/99.5, bids
// 98/97/99, offset 100.
func seededBook(t *testing.T) *Book {
	t.Helper()
	b := New("7")
	s := snap(100, 555,
		[]feed.PriceLevel{lv("100.0", "10.0"), lv("101.0", "5.0"), lv("99.5", "8.0")},
		[]feed.PriceLevel{lv("98.0", "15.0"), lv("97.0", "20.0"), lv("99.0", "12.0")},
	)
	if err := b.ApplySnapshot(s, time.UnixMilli(1700000000000)); err != nil {
		t.Fatalf("ApplySnapshot() = %v", err)
	}
	return b
}

func checkLevels(t *testing.T, got []Level, want [][2]string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d levels, want %d", len(got), len(want))
	}
	for i, w := range want {
		if !got[i].Price.Equal(dec(t, w[0])) {
			t.Errorf("level %d price = %s, want %s", i, got[i].Price, w[0])
		}
		if !got[i].Size.Equal(dec(t, w[1])) {
			t.Errorf("level %d size = %s, want %s", i, got[i].Size, w[1])
		}
	}
}

func TestApplySnapshotOrdering(t *testing.T) {
	b := seededBook(t)

	if b.Offset() != 100 {
		t.Errorf("Offset() = %d, want 100", b.Offset())
	}
	if b.Nonce() != 555 {
		t.Errorf("Nonce() = %d, want 555", b.Nonce())
	}

	asks := b.AllAsks()
	for i := 1; i < len(asks); i++ {
		if !asks[i-1].Price.LessThan(asks[i].Price) {
			t.Errorf("asks not strictly ascending at %d: %s >= %s", i, asks[i-1].Price, asks[i].Price)
		}
	}
	bids := b.AllBids()
	for i := 1; i < len(bids); i++ {
		if !bids[i-1].Price.GreaterThan(bids[i].Price) {
			t.Errorf("bids not strictly descending at %d: %s <= %s", i, bids[i-1].Price, bids[i].Price)
		}
	}
	for _, side := range [][]Level{asks, bids} {
		for _, l := range side {
			if !l.Size.IsPositive() {
				t.Errorf("non-positive size %s at price %s", l.Size, l.Price)
			}
		}
	}
}

func TestTopLevels(t *testing.T) {
	b := seededBook(t)

	checkLevels(t, b.TopAsks(3), [][2]string{
		{"99.5", "8.0"}, {"100.0", "10.0"}, {"101.0", "5.0"},
	})
	checkLevels(t, b.TopBids(3), [][2]string{
		{"99.0", "12.0"}, {"98.0", "15.0"}, {"97.0", "20.0"},
	})

	// Shallower than requested.
	if got := b.TopAsks(10); len(got) != 3 {
		t.Errorf("TopAsks(10) returned %d levels, want 3", len(got))
	}
	if got := b.TopAsks(0); got != nil {
		t.Errorf("TopAsks(0) = %v, want nil", got)
	}
}

func TestApplyDeltaScenario(t *testing.T) {
	b := seededBook(t)

	d := upd(101, 556,
		[]feed.PriceLevel{lv("100.0", "15.0"), lv("102.0", "8.0"), lv("101.0", "0.0")},
		[]feed.PriceLevel{lv("99.5", "10.0")},
	)
	if err := b.ApplyDelta(d, time.UnixMilli(1700000001000)); err != nil {
		t.Fatalf("ApplyDelta() = %v", err)
	}

	checkLevels(t, b.AllAsks(), [][2]string{
		{"99.5", "8.0"}, {"100.0", "15.0"}, {"102.0", "8.0"},
	})

	bid, ok := b.BestBid()
	if !ok {
		t.Fatal("BestBid() absent after delta")
	}
	if !bid.Price.Equal(dec(t, "99.5")) || !bid.Size.Equal(dec(t, "10.0")) {
		t.Errorf("BestBid() = %s@%s, want 10.0@99.5", bid.Size, bid.Price)
	}
	if b.Offset() != 101 || b.Nonce() != 556 {
		t.Errorf("sequence = %d/%d, want 101/556", b.Offset(), b.Nonce())
	}
}

func TestDeltaZeroSizeRemovesExactlyOneLevel(t *testing.T) {
	b := seededBook(t)

	d := upd(101, 556, []feed.PriceLevel{lv("100.0", "0")}, nil)
	if err := b.ApplyDelta(d, time.Time{}); err != nil {
		t.Fatalf("ApplyDelta() = %v", err)
	}

	checkLevels(t, b.AllAsks(), [][2]string{
		{"99.5", "8.0"}, {"101.0", "5.0"},
	})
	if b.BidDepth() != 3 {
		t.Errorf("BidDepth() = %d, want 3 (bids untouched)", b.BidDepth())
	}
}

func TestDeltaStaleOffsetIsNoop(t *testing.T) {
	b := seededBook(t)

	for _, offset := range []uint64{100, 99, 1} {
		d := upd(offset, 999, []feed.PriceLevel{lv("50.0", "1.0")}, nil)
		if err := b.ApplyDelta(d, time.Time{}); err != nil {
			t.Fatalf("ApplyDelta(offset=%d) = %v, want nil", offset, err)
		}
		if b.AskDepth() != 3 {
			t.Errorf("offset %d mutated the book", offset)
		}
		if b.Offset() != 100 {
			t.Errorf("Offset() = %d after stale delta, want 100", b.Offset())
		}
	}
}

func TestDeltaReplayIsIdempotent(t *testing.T) {
	b := seededBook(t)

	d := upd(101, 556, []feed.PriceLevel{lv("100.0", "15.0")}, nil)
	if err := b.ApplyDelta(d, time.Time{}); err != nil {
		t.Fatalf("first ApplyDelta() = %v", err)
	}
	before := b.AllAsks()

	if err := b.ApplyDelta(d, time.Time{}); err != nil {
		t.Fatalf("replayed ApplyDelta() = %v, want nil", err)
	}
	checkLevels(t, b.AllAsks(), [][2]string{
		{before[0].Price.String(), before[0].Size.String()},
		{before[1].Price.String(), before[1].Size.String()},
		{before[2].Price.String(), before[2].Size.String()},
	})
}

func TestDeltaOffsetGapAccepted(t *testing.T) {
	b := seededBook(t)

	// Jump from 100 to 105: accepted as forward progress.
	d := upd(105, 600, []feed.PriceLevel{lv("103.0", "2.0")}, nil)
	if err := b.ApplyDelta(d, time.Time{}); err != nil {
		t.Fatalf("ApplyDelta() = %v", err)
	}
	if b.Offset() != 105 {
		t.Errorf("Offset() = %d, want 105", b.Offset())
	}
	if b.AskDepth() != 4 {
		t.Errorf("AskDepth() = %d, want 4", b.AskDepth())
	}
}

func TestDeltaWithoutBaseline(t *testing.T) {
	b := New("3")
	d := upd(10, 1, []feed.PriceLevel{lv("1.0", "2.0")}, nil)

	err := b.ApplyDelta(d, time.Time{})
	if !errors.Is(err, ErrNoBaseline) {
		t.Fatalf("ApplyDelta() = %v, want ErrNoBaseline", err)
	}
	if b.AskDepth() != 0 {
		t.Errorf("book mutated despite missing baseline")
	}
}

func TestSnapshotParseErrorLeavesPriorState(t *testing.T) {
	b := seededBook(t)

	bad := snap(200, 1,
		[]feed.PriceLevel{lv("100.0", "1.0"), lv("not-a-price", "2.0")},
		nil,
	)
	err := b.ApplySnapshot(bad, time.Time{})

	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("ApplySnapshot() = %v, want *ParseError", err)
	}

	// Prior state fully intact, including sequence metadata.
	if b.Offset() != 100 {
		t.Errorf("Offset() = %d, want 100", b.Offset())
	}
	checkLevels(t, b.TopAsks(3), [][2]string{
		{"99.5", "8.0"}, {"100.0", "10.0"}, {"101.0", "5.0"},
	})
}

func TestDeltaParseErrorIsAllOrNothing(t *testing.T) {
	b := seededBook(t)

	// The first entry is valid; the failing second entry must prevent
	// it from being applied.
	bad := upd(101, 1,
		[]feed.PriceLevel{lv("100.0", "99.0"), lv("101.0", "bogus")},
		nil,
	)
	err := b.ApplyDelta(bad, time.Time{})

	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("ApplyDelta() = %v, want *ParseError", err)
	}
	got, ok := b.asks.Get(dec(t, "100.0"))
	if !ok || !got.Size.Equal(dec(t, "10.0")) {
		t.Errorf("ask 100.0 size = %s, want untouched 10.0", got.Size)
	}
	if b.Offset() != 100 {
		t.Errorf("Offset() = %d, want 100", b.Offset())
	}
}

func TestSnapshotAlwaysSupersedes(t *testing.T) {
	b := seededBook(t)

	// A snapshot with a lower offset still replaces everything.
	s := snap(50, 777, []feed.PriceLevel{lv("200.0", "1.0")}, nil)
	if err := b.ApplySnapshot(s, time.Time{}); err != nil {
		t.Fatalf("ApplySnapshot() = %v", err)
	}
	if b.Offset() != 50 {
		t.Errorf("Offset() = %d, want 50", b.Offset())
	}
	if b.AskDepth() != 1 || b.BidDepth() != 0 {
		t.Errorf("depth = %d/%d, want 1/0", b.AskDepth(), b.BidDepth())
	}
}

func TestSnapshotOmitsZeroSizes(t *testing.T) {
	b := New("1")
	s := snap(10, 1,
		[]feed.PriceLevel{lv("100.0", "0"), lv("101.0", "5.0")},
		[]feed.PriceLevel{lv("99.0", "0")},
	)
	if err := b.ApplySnapshot(s, time.Time{}); err != nil {
		t.Fatalf("ApplySnapshot() = %v", err)
	}
	if b.AskDepth() != 1 {
		t.Errorf("AskDepth() = %d, want 1", b.AskDepth())
	}
	if b.BidDepth() != 0 {
		t.Errorf("BidDepth() = %d, want 0", b.BidDepth())
	}
}

func TestSpreadQueries(t *testing.T) {
	b := seededBook(t)

	spread, ok := b.Spread()
	if !ok {
		t.Fatal("Spread() absent")
	}
	if !spread.Equal(dec(t, "0.5")) {
		t.Errorf("Spread() = %s, want 0.5", spread)
	}

	ask, _ := b.BestAsk()
	bid, _ := b.BestBid()
	if !spread.Equal(ask.Price.Sub(bid.Price)) {
		t.Errorf("Spread() = %s, want best ask - best bid = %s", spread, ask.Price.Sub(bid.Price))
	}

	mid, ok := b.MidPrice()
	if !ok || !mid.Equal(dec(t, "99.25")) {
		t.Errorf("MidPrice() = %s, want 99.25", mid)
	}

	bps, ok := b.SpreadBPS()
	if !ok {
		t.Fatal("SpreadBPS() absent")
	}
	want := dec(t, "0.5").Div(dec(t, "99.0")).Mul(decimal.NewFromInt(10000))
	if !bps.Equal(want) {
		t.Errorf("SpreadBPS() = %s, want %s", bps, want)
	}
}

func TestSpreadAbsentOnEmptySide(t *testing.T) {
	b := New("1")
	s := snap(10, 1, []feed.PriceLevel{lv("100.0", "5.0")}, nil)
	if err := b.ApplySnapshot(s, time.Time{}); err != nil {
		t.Fatalf("ApplySnapshot() = %v", err)
	}

	if _, ok := b.Spread(); ok {
		t.Error("Spread() present with empty bid side")
	}
	if _, ok := b.MidPrice(); ok {
		t.Error("MidPrice() present with empty bid side")
	}
	if _, ok := b.SpreadBPS(); ok {
		t.Error("SpreadBPS() present with empty bid side")
	}
	if _, ok := b.BestBid(); ok {
		t.Error("BestBid() present on empty side")
	}
}

func TestVolumes(t *testing.T) {
	b := seededBook(t)

	total := decimal.Zero
	for _, l := range b.AllAsks() {
		total = total.Add(l.Size)
	}
	if got := b.TotalAskVolume(); !got.Equal(total) {
		t.Errorf("TotalAskVolume() = %s, want %s", got, total)
	}
	if got := b.TotalBidVolume(); !got.Equal(dec(t, "47.0")) {
		t.Errorf("TotalBidVolume() = %s, want 47.0", got)
	}

	// Asks at 99.5 and 100.0 are within 100.0.
	if got := b.AskVolumeToPrice(dec(t, "100.0")); !got.Equal(dec(t, "18.0")) {
		t.Errorf("AskVolumeToPrice(100.0) = %s, want 18.0", got)
	}
	// Bids at 99.0 and 98.0 are within 98.0.
	if got := b.BidVolumeToPrice(dec(t, "98.0")); !got.Equal(dec(t, "27.0")) {
		t.Errorf("BidVolumeToPrice(98.0) = %s, want 27.0", got)
	}
	if got := b.AskVolumeToPrice(dec(t, "1.0")); !got.IsZero() {
		t.Errorf("AskVolumeToPrice(1.0) = %s, want 0", got)
	}
}

func TestCloneIsolation(t *testing.T) {
	b := seededBook(t)
	c := b.Clone()

	d := upd(101, 1, []feed.PriceLevel{lv("99.5", "0"), lv("104.0", "4.0")}, nil)
	if err := b.ApplyDelta(d, time.Time{}); err != nil {
		t.Fatalf("ApplyDelta() = %v", err)
	}

	if c.AskDepth() != 3 {
		t.Errorf("clone AskDepth() = %d, want 3", c.AskDepth())
	}
	if c.Offset() != 100 {
		t.Errorf("clone Offset() = %d, want 100", c.Offset())
	}
	best, _ := c.BestAsk()
	if !best.Price.Equal(dec(t, "99.5")) {
		t.Errorf("clone BestAsk() = %s, want 99.5", best.Price)
	}
}

func TestExactDecimalOrdering(t *testing.T) {
	// Prices that would collide or misorder under float64.
	b := New("1")
	s := snap(10, 1,
		[]feed.PriceLevel{
			lv("0.30000000000000004", "1"),
			lv("0.3", "2"),
			lv("0.29999999999999999", "3"),
		},
		nil,
	)
	if err := b.ApplySnapshot(s, time.Time{}); err != nil {
		t.Fatalf("ApplySnapshot() = %v", err)
	}

	if b.AskDepth() != 3 {
		t.Fatalf("AskDepth() = %d, want 3 distinct levels", b.AskDepth())
	}
	checkLevels(t, b.AllAsks(), [][2]string{
		{"0.29999999999999999", "3"},
		{"0.3", "2"},
		{"0.30000000000000004", "1"},
	})
}
