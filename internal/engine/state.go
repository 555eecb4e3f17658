package engine

import (
	"fmt"
	"time"

	"github.com/misionbonos/bondgame/internal/domain"
)

// PublishPrices computes and stores quotes for every bond in the current
// round and moves the game to TRADING_ON. It is legal from LOBBY (opening
// the round) and from TRADING_ON (a moderator price refresh); in the latter
// case the round's previous quotes are replaced wholesale. Events for the
// round are flagged published for audit purposes.
func PublishPrices(s domain.Snapshot, now time.Time) (domain.Snapshot, []domain.Quote, error) {
	switch s.Game.State {
	case domain.StateLobby, domain.StateTradingOn:
	default:
		return s, nil, fmt.Errorf("engine: publish prices in state %s: %w", s.Game.State, domain.ErrInvalidTransition)
	}
	if len(s.Bonds) == 0 {
		return s, nil, fmt.Errorf("engine: publish prices: %w", domain.ErrNoBondsLoaded)
	}

	out := s.Clone()
	round := out.Game.CurrentRound
	marketBps, idiosByBond := AggregateShocks(out.Events, round)

	quotes := make([]domain.Quote, 0, len(out.Bonds))
	for _, b := range out.Bonds {
		yield := EffectiveYield(b.SpreadBps, marketBps, idiosByBond[b.ID])
		mid := PriceBondMid(b, yield, out.Game.YearFraction, out.Game.RoundsElapsed())
		bid, ask := BidAsk(mid, out.Game.BidSpreadBps, out.Game.AskSpreadBps)
		quotes = append(quotes, domain.Quote{
			Round:          round,
			BondID:         b.ID,
			EffectiveYield: yield,
			Mid:            mid,
			Bid:            bid,
			Ask:            ask,
			PublishedAt:    now,
		})
	}

	// Replace this round's quotes only; prior rounds stay for ranking.
	kept := out.Quotes[:0]
	for _, q := range out.Quotes {
		if q.Round != round {
			kept = append(kept, q)
		}
	}
	out.Quotes = append(kept, quotes...)

	for i := range out.Events {
		if out.Events[i].Round == round {
			out.Events[i].Published = true
		}
	}

	out.Game.State = domain.StateTradingOn
	return out, quotes, nil
}

// CloseTrading moves the game from TRADING_ON to TRADING_OFF.
func CloseTrading(s domain.Snapshot) (domain.Snapshot, error) {
	if s.Game.State != domain.StateTradingOn {
		return s, fmt.Errorf("engine: close trading in state %s: %w", s.Game.State, domain.ErrInvalidTransition)
	}
	out := s.Clone()
	out.Game.State = domain.StateTradingOff
	return out, nil
}

// AdvanceRound increments the round and returns to LOBBY. Only legal from
// TRADING_OFF while rounds remain; the round number never decreases.
func AdvanceRound(s domain.Snapshot) (domain.Snapshot, error) {
	if s.Game.State != domain.StateTradingOff {
		return s, fmt.Errorf("engine: advance round in state %s: %w", s.Game.State, domain.ErrInvalidTransition)
	}
	if s.Game.CurrentRound >= s.Game.RoundsTotal {
		return s, fmt.Errorf("engine: advance past final round %d: %w", s.Game.CurrentRound, domain.ErrInvalidTransition)
	}
	out := s.Clone()
	out.Game.CurrentRound++
	out.Game.State = domain.StateLobby
	return out, nil
}

// Finalize ends the game. Only legal from TRADING_OFF once the configured
// round count has been played.
func Finalize(s domain.Snapshot) (domain.Snapshot, error) {
	if s.Game.State != domain.StateTradingOff {
		return s, fmt.Errorf("engine: finalize in state %s: %w", s.Game.State, domain.ErrInvalidTransition)
	}
	if s.Game.CurrentRound < s.Game.RoundsTotal {
		return s, fmt.Errorf("engine: finalize at round %d of %d: %w", s.Game.CurrentRound, s.Game.RoundsTotal, domain.ErrInvalidTransition)
	}
	out := s.Clone()
	out.Game.State = domain.StateFinished
	return out, nil
}

// ApplyScenario replaces the game's bond catalog and event script. Loading
// a scenario mid-game is a moderator decision the engine does not second-
// guess, matching how the original tool behaves.
func ApplyScenario(s domain.Snapshot, bonds []domain.Bond, events []domain.MarketEvent) (domain.Snapshot, error) {
	seen := make(map[string]bool, len(bonds))
	for _, b := range bonds {
		if seen[b.ID] {
			return s, fmt.Errorf("engine: duplicate bond id %q: %w", b.ID, domain.ErrAlreadyExists)
		}
		seen[b.ID] = true
	}
	out := s.Clone()
	out.Bonds = append([]domain.Bond(nil), bonds...)
	out.Events = append([]domain.MarketEvent(nil), events...)
	return out, nil
}
