package model

import "time"

// Tick is a single price observation from the live feed.
// Ticks are ephemeral: they exist only inside the current aggregation
// window and are never persisted individually.
type Tick struct {
	Pair   string    `json:"pair"`
	Price  float64   `json:"price"`
	Minute time.Time `json:"minute"` // observation time truncated to the minute (UTC)
}
