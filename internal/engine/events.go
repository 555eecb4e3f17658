package engine

import "github.com/misionbonos/bondgame/internal/domain"

// AggregateShocks sums the scripted yield shocks scheduled for the given
// round. Market-wide magnitudes add up into a single shock; idiosyncratic
// magnitudes add up per bond. Events scheduled for other rounds are
// ignored, never consumed.
func AggregateShocks(events []domain.MarketEvent, round int) (marketBps float64, idiosByBond map[string]float64) {
	idiosByBond = make(map[string]float64)
	for _, e := range events {
		if e.Round != round {
			continue
		}
		switch e.Kind {
		case domain.EventMarket:
			marketBps += e.MagnitudeBps
		case domain.EventIdiosyncratic:
			idiosByBond[e.BondID] += e.MagnitudeBps
		}
	}
	return marketBps, idiosByBond
}
