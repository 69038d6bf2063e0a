package model

import "time"

// Direction is the side of a binary-options signal.
type Direction string

const (
	DirectionCall Direction = "CALL"
	DirectionPut  Direction = "PUT"
)

// Strength is a coarse classification of signal conviction based on
// RSI extremity.
type Strength string

const (
	StrengthWeak   Strength = "WEAK"
	StrengthStrong Strength = "STRONG"
)

// Candidate is an immutable entry proposal produced by the generator.
// At most one is produced per Analyze call.
type Candidate struct {
	Pair      string
	Direction Direction
	Price     float64 // close of the most recent candle at analysis time
	RSI       float64
	Strength  Strength
}

// OpenSignal is a tracked signal lineage entry. It is owned exclusively by
// the lifecycle manager: escalation to the next gale level rewrites
// EntryPrice, OpenedAt, MessageID and GaleLevel in one step.
type OpenSignal struct {
	Pair       string
	Direction  Direction
	EntryPrice float64
	RSIAtEntry float64
	Strength   Strength
	OpenedAt   time.Time
	MessageID  int // notification handle; 0 means delivery failed or unthreaded
	GaleLevel  int
	TraceID    string // lineage trace ID, stable across gale escalations
}

// SignalEvent is one journaled lifecycle transition (open, gale, win,
// loss_final) for after-the-fact auditing.
type SignalEvent struct {
	TraceID   string
	Pair      string
	Event     string
	Direction Direction
	Gale      int
	Price     float64
	RSI       float64
	Note      string
	At        time.Time
}
