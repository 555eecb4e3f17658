package domain

// EventKind distinguishes market-wide yield shocks from bond-specific ones.
type EventKind string

const (
	EventMarket        EventKind = "MARKET"
	EventIdiosyncratic EventKind = "IDIOS"
)

// MarketEvent is a scripted yield shock scheduled for a round. Events are
// created at scenario load and only ever mutated by flipping Published when
// their round's quotes go out.
type MarketEvent struct {
	Round        int       `json:"round"`
	Kind         EventKind `json:"kind"`
	BondID       string    `json:"bond_id,omitempty"` // set iff Kind == EventIdiosyncratic
	MagnitudeBps float64   `json:"magnitude_bps"`
	Published    bool      `json:"published"`
}
