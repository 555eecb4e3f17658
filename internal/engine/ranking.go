package engine

import (
	"sort"

	"github.com/misionbonos/bondgame/internal/domain"
)

// Standing is one leaderboard row: a team marked-to-market against a
// round's mid prices.
type Standing struct {
	TeamID         string  `json:"team_id"`
	TeamName       string  `json:"team_name"`
	Cash           float64 `json:"cash"`
	PositionValue  float64 `json:"position_value"`
	PortfolioValue float64 `json:"portfolio_value"`
}

// FinalStanding is one final-ranking row with the return over initial cash.
type FinalStanding struct {
	TeamID     string  `json:"team_id"`
	TeamName   string  `json:"team_name"`
	FinalValue float64 `json:"final_value"`
	ReturnPct  float64 `json:"return_pct"`
}

// Leaderboard marks every team to market using the given round's mid
// prices and sorts descending by portfolio value. A bond with no published
// price for the round contributes zero; unpriced positions never block
// ranking. Ties keep team registration order.
func Leaderboard(s domain.Snapshot, round int) []Standing {
	mids := s.MidPrices(round)

	rows := make([]Standing, 0, len(s.Teams))
	for _, t := range s.Teams {
		positions, cash := TeamState(s, t.ID)
		posValue := 0.0
		for bondID, qty := range positions {
			posValue += float64(qty) * mids[bondID]
		}
		rows = append(rows, Standing{
			TeamID:         t.ID,
			TeamName:       t.Name,
			Cash:           cash,
			PositionValue:  posValue,
			PortfolioValue: cash + posValue,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].PortfolioValue > rows[j].PortfolioValue
	})
	return rows
}

// FinalRanking values every team against the latest round with published
// quotes and sorts descending by return percentage. It returns an empty
// slice when no quotes exist anywhere.
func FinalRanking(s domain.Snapshot) []FinalStanding {
	last := s.LastQuotedRound()
	if last == 0 {
		return []FinalStanding{}
	}
	mids := s.MidPrices(last)

	rows := make([]FinalStanding, 0, len(s.Teams))
	for _, t := range s.Teams {
		positions, cash := TeamState(s, t.ID)
		posValue := 0.0
		for bondID, qty := range positions {
			posValue += float64(qty) * mids[bondID]
		}
		value := cash + posValue

		base := t.InitialCash
		if base == 0 {
			base = 1
		}
		rows = append(rows, FinalStanding{
			TeamID:     t.ID,
			TeamName:   t.Name,
			FinalValue: value,
			ReturnPct:  (value/base - 1) * 100,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].ReturnPct > rows[j].ReturnPct
	})
	return rows
}
