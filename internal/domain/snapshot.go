package domain

// Snapshot is the complete durable state of one game code. Persistence is
// whole-snapshot overwrite; Version supports optimistic concurrency in the
// store so that a stale load-mutate-save loses instead of clobbering.
type Snapshot struct {
	Version int64         `json:"version"`
	Game    Game          `json:"game"`
	Bonds   []Bond        `json:"bonds"`
	Events  []MarketEvent `json:"events"`
	Quotes  []Quote       `json:"quotes"`
	Teams   []Team        `json:"teams"`
	Orders  []Order       `json:"orders"`
}

// BondByID returns the bond with the given identifier.
func (s *Snapshot) BondByID(id string) (Bond, bool) {
	for _, b := range s.Bonds {
		if b.ID == id {
			return b, true
		}
	}
	return Bond{}, false
}

// TeamByName returns the team with the given (unique) name.
func (s *Snapshot) TeamByName(name string) (Team, bool) {
	for _, t := range s.Teams {
		if t.Name == name {
			return t, true
		}
	}
	return Team{}, false
}

// TeamByID returns the team with the given identifier.
func (s *Snapshot) TeamByID(id string) (Team, bool) {
	for _, t := range s.Teams {
		if t.ID == id {
			return t, true
		}
	}
	return Team{}, false
}

// QuoteFor returns the published quote for the given round and bond.
func (s *Snapshot) QuoteFor(round int, bondID string) (Quote, bool) {
	for _, q := range s.Quotes {
		if q.Round == round && q.BondID == bondID {
			return q, true
		}
	}
	return Quote{}, false
}

// MidPrices returns bond ID -> mid price for all quotes of the given round.
func (s *Snapshot) MidPrices(round int) map[string]float64 {
	mids := make(map[string]float64)
	for _, q := range s.Quotes {
		if q.Round == round {
			mids[q.BondID] = q.Mid
		}
	}
	return mids
}

// LastQuotedRound returns the highest round for which any quote exists, or
// 0 when no quotes have ever been published.
func (s *Snapshot) LastQuotedRound() int {
	last := 0
	for _, q := range s.Quotes {
		if q.Round > last {
			last = q.Round
		}
	}
	return last
}

// Clone returns a deep copy of the snapshot. Engine operations mutate a
// clone so a failed save never leaves a caller holding half-applied state.
func (s *Snapshot) Clone() Snapshot {
	out := *s
	out.Bonds = append([]Bond(nil), s.Bonds...)
	out.Events = append([]MarketEvent(nil), s.Events...)
	out.Quotes = append([]Quote(nil), s.Quotes...)
	out.Teams = append([]Team(nil), s.Teams...)
	out.Orders = append([]Order(nil), s.Orders...)
	return out
}
