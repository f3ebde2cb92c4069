package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"lighterbook/internal/book"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleBooks(w http.ResponseWriter, _ *http.Request) {
	ids := s.reg.Markets()
	out := make([]BookListing, 0, len(ids))
	for _, id := range ids {
		b, ok := s.reg.Snapshot(id)
		if !ok {
			continue
		}
		out = append(out, BookListing{
			MarketID: b.MarketID(),
			Offset:   b.Offset(),
			BidDepth: b.BidDepth(),
			AskDepth: b.AskDepth(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	market := mux.Vars(r)["market"]
	b, ok := s.reg.Snapshot(market)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorPayload{Error: "unknown market " + market})
		return
	}
	writeJSON(w, http.StatusOK, summarize(b))
}

func (s *Server) handleDepth(w http.ResponseWriter, r *http.Request) {
	market := mux.Vars(r)["market"]
	b, ok := s.reg.Snapshot(market)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorPayload{Error: "unknown market " + market})
		return
	}

	limit := s.cfg.DepthLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorPayload{Error: "invalid limit " + raw})
			return
		}
		limit = n
	}

	bids := b.TopBids(limit)
	asks := b.TopAsks(limit)

	if raw := r.URL.Query().Get("tick"); raw != "" {
		tick, err := decimal.NewFromString(raw)
		if err != nil || !tick.IsPositive() {
			writeJSON(w, http.StatusBadRequest, errorPayload{Error: "invalid tick " + raw})
			return
		}
		bids = book.AggregateBids(bids, tick)
		asks = book.AggregateAsks(asks, tick)
	}

	writeJSON(w, http.StatusOK, DepthPayload{
		MarketID: b.MarketID(),
		Offset:   b.Offset(),
		Bids:     withCumulative(bids),
		Asks:     withCumulative(asks),
	})
}

// summarize computes the derived view of a book clone.
func summarize(b *book.Book) SummaryPayload {
	p := SummaryPayload{
		MarketID:       b.MarketID(),
		Offset:         b.Offset(),
		Nonce:          b.Nonce(),
		Timestamp:      b.Timestamp().UnixMilli(),
		BidDepth:       b.BidDepth(),
		AskDepth:       b.AskDepth(),
		TotalBidVolume: b.TotalBidVolume().String(),
		TotalAskVolume: b.TotalAskVolume().String(),
	}

	if bid, ok := b.BestBid(); ok {
		p.BestBid = strPtr(bid.Price.String())
	}
	if ask, ok := b.BestAsk(); ok {
		p.BestAsk = strPtr(ask.Price.String())
	}
	if spread, ok := b.Spread(); ok {
		p.Spread = strPtr(spread.String())
	}
	if bps, ok := b.SpreadBPS(); ok {
		p.SpreadBPS = strPtr(bps.String())
	}
	if mid, ok := b.MidPrice(); ok {
		p.MidPrice = strPtr(mid.String())
	}
	return p
}

// withCumulative converts best-first levels to wire form with running
// size totals.
func withCumulative(levels []book.Level) []LevelPayload {
	out := make([]LevelPayload, 0, len(levels))
	total := decimal.Zero
	for _, lv := range levels {
		total = total.Add(lv.Size)
		out = append(out, LevelPayload{
			Price:      lv.Price.String(),
			Size:       lv.Size.String(),
			Cumulative: total.String(),
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func strPtr(s string) *string {
	return &s
}
