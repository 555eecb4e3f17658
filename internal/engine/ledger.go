package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/misionbonos/bondgame/internal/domain"
)

// Execution is the validated price and fee for a prospective order.
type Execution struct {
	Price float64
	Fees  float64
}

// TeamState replays the team's full order history in timestamp order and
// returns its bond positions and cash. Balances are derived, never stored:
// the order log is the single source of truth, and replaying it twice must
// yield identical state.
func TeamState(s domain.Snapshot, teamID string) (positions map[string]int64, cash float64) {
	team, ok := s.TeamByID(teamID)
	if !ok {
		return map[string]int64{}, 0
	}

	orders := make([]domain.Order, 0, len(s.Orders))
	for _, o := range s.Orders {
		if o.TeamID == teamID {
			orders = append(orders, o)
		}
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].Timestamp.Before(orders[j].Timestamp)
	})

	positions = make(map[string]int64)
	cash = team.InitialCash
	for _, o := range orders {
		notional := float64(o.Quantity) * o.Price
		switch o.Side {
		case domain.OrderSideBuy:
			positions[o.BondID] += o.Quantity
			cash -= notional + o.Fees
		case domain.OrderSideSell:
			positions[o.BondID] -= o.Quantity
			cash += notional - o.Fees
		}
	}
	return positions, cash
}

// ValidateOrder checks a prospective order against the current round's
// quotes and the team's replayed balances. BUYs execute at the ask, SELLs
// at the bid; fees are quantity x price x commission bps. It returns the
// execution terms on success and a trading error otherwise. No state is
// mutated.
func ValidateOrder(s domain.Snapshot, teamID string, side domain.OrderSide, bondID string, qty int64) (Execution, error) {
	if !side.Valid() || qty <= 0 {
		return Execution{}, fmt.Errorf("engine: validate order side=%s qty=%d: %w", side, qty, domain.ErrInvalidOrder)
	}
	if s.Game.State != domain.StateTradingOn {
		return Execution{}, fmt.Errorf("engine: validate order in state %s: %w", s.Game.State, domain.ErrMarketClosed)
	}
	if _, ok := s.TeamByID(teamID); !ok {
		return Execution{}, fmt.Errorf("engine: validate order for team %q: %w", teamID, domain.ErrNotFound)
	}

	quote, ok := s.QuoteFor(s.Game.CurrentRound, bondID)
	if !ok {
		return Execution{}, fmt.Errorf("engine: validate order for bond %q round %d: %w", bondID, s.Game.CurrentRound, domain.ErrNoQuote)
	}

	price := quote.Ask
	if side == domain.OrderSideSell {
		price = quote.Bid
	}
	fees := float64(qty) * price * s.Game.CommissionBps / 10_000
	exec := Execution{Price: price, Fees: fees}

	positions, cash := TeamState(s, teamID)
	switch side {
	case domain.OrderSideBuy:
		if cash < float64(qty)*price+fees {
			return exec, fmt.Errorf("engine: buy %d %s: %w", qty, bondID, domain.ErrInsufficientCash)
		}
	case domain.OrderSideSell:
		if positions[bondID] < qty {
			return exec, fmt.Errorf("engine: sell %d %s holding %d: %w", qty, bondID, positions[bondID], domain.ErrInsufficientPosition)
		}
	}
	return exec, nil
}

// ExecuteOrder validates and, on success, appends one immutable order
// stamped with the current round. Either the full quantity executes at the
// validated price or nothing is recorded.
func ExecuteOrder(s domain.Snapshot, teamID string, side domain.OrderSide, bondID string, qty int64, now time.Time) (domain.Snapshot, domain.Order, error) {
	exec, err := ValidateOrder(s, teamID, side, bondID, qty)
	if err != nil {
		return s, domain.Order{}, err
	}

	order := domain.Order{
		ID:        uuid.New().String(),
		Timestamp: now,
		TeamID:    teamID,
		BondID:    bondID,
		Side:      side,
		Quantity:  qty,
		Price:     exec.Price,
		Fees:      exec.Fees,
		Round:     s.Game.CurrentRound,
	}

	out := s.Clone()
	out.Orders = append(out.Orders, order)
	return out, order, nil
}
