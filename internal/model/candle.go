package model

import (
	"encoding/json"
	"time"
)

// Candle is a 1-minute OHLC summary of all ticks for one pair.
// Immutable once created; TS is the window start, minute-aligned in UTC.
type Candle struct {
	Pair  string    `json:"pair"`
	TS    time.Time `json:"timestamp"` // window start (UTC, minute-aligned)
	Open  float64   `json:"open"`
	High  float64   `json:"high"`
	Low   float64   `json:"low"`
	Close float64   `json:"close"`
	Ticks int       `json:"ticks"` // number of ticks aggregated
}

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c *Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}
