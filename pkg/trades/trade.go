// Package trades gives a typed view of trade pages and renders them for the console.
package trades

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Sternrassler/trade-paginator/pkg/pagination"
	"github.com/shopspring/decimal"
)

// Side values used by the upstream "type" field.
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Trade is one executed trade as published by the trades endpoint.
type Trade struct {
	TID    uint64
	Date   time.Time
	Type   string
	Price  decimal.Decimal
	Amount decimal.Decimal
}

// wireTrade mirrors the upstream JSON object. The tid is taken from the
// already decoded Record, which also accepts quoted numbers.
type wireTrade struct {
	Date   int64           `json:"date"`
	Type   string          `json:"type"`
	Price  decimal.Decimal `json:"price"`
	Amount decimal.Decimal `json:"amount"`
}

// Notional returns price times amount.
func (t Trade) Notional() decimal.Decimal {
	return t.Price.Mul(t.Amount)
}

// FromRecord decodes a pagination record into a Trade.
func FromRecord(r pagination.Record) (Trade, error) {
	var w wireTrade
	if err := json.Unmarshal(r.Raw, &w); err != nil {
		return Trade{}, fmt.Errorf("decode trade %d: %w", r.TID, err)
	}

	return Trade{
		TID:    r.TID,
		Date:   time.Unix(w.Date, 0).UTC(),
		Type:   w.Type,
		Price:  w.Price,
		Amount: w.Amount,
	}, nil
}

// FromPage decodes every record of a page, stopping at the first failure.
func FromPage(page pagination.Page) ([]Trade, error) {
	out := make([]Trade, 0, len(page))
	for _, r := range page {
		t, err := FromRecord(r)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Summary aggregates a batch of trades.
type Summary struct {
	Count    int
	Buys     int
	Sells    int
	Volume   decimal.Decimal
	Notional decimal.Decimal
	FirstTID uint64
	LastTID  uint64
}

// Summarize computes totals over trades in the order given.
func Summarize(trades []Trade) Summary {
	s := Summary{Volume: decimal.Zero, Notional: decimal.Zero}
	for i, t := range trades {
		if i == 0 {
			s.FirstTID = t.TID
		}
		s.LastTID = t.TID
		s.Count++

		switch t.Type {
		case SideBuy:
			s.Buys++
		case SideSell:
			s.Sells++
		}

		s.Volume = s.Volume.Add(t.Amount)
		s.Notional = s.Notional.Add(t.Notional())
	}
	return s
}

// VWAP returns the volume-weighted average price, or zero without volume.
func (s Summary) VWAP() decimal.Decimal {
	if s.Volume.IsZero() {
		return decimal.Zero
	}
	return s.Notional.DivRound(s.Volume, 8)
}

// Merge folds next, which covers later trades, into s.
func (s Summary) Merge(next Summary) Summary {
	if next.Count == 0 {
		return s
	}
	if s.Count == 0 {
		return next
	}
	return Summary{
		Count:    s.Count + next.Count,
		Buys:     s.Buys + next.Buys,
		Sells:    s.Sells + next.Sells,
		Volume:   s.Volume.Add(next.Volume),
		Notional: s.Notional.Add(next.Notional),
		FirstTID: s.FirstTID,
		LastTID:  next.LastTID,
	}
}
