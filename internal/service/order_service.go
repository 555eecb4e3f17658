package service

import (
	"context"
	"log/slog"

	"github.com/misionbonos/bondgame/internal/domain"
	"github.com/misionbonos/bondgame/internal/engine"
)

// OrderService executes team orders against the current round's quotes.
// Every attempt, accepted or rejected, lands in the audit log.
type OrderService struct {
	games  *GameService
	logger *slog.Logger
}

// NewOrderService creates an OrderService on top of the game service's
// load-mutate-save machinery.
func NewOrderService(games *GameService, logger *slog.Logger) *OrderService {
	return &OrderService{games: games, logger: logger}
}

// Submit validates and executes one all-or-nothing order. BUYs fill at the
// ask, SELLs at the bid; the executed order is appended to the game's
// ledger and broadcast on the orders channel.
func (s *OrderService) Submit(ctx context.Context, code, teamID string, side domain.OrderSide, bondID string, qty int64) (domain.Order, error) {
	var order domain.Order
	_, err := s.games.withGame(ctx, code, func(snap domain.Snapshot) (domain.Snapshot, error) {
		next, o, err := engine.ExecuteOrder(snap, teamID, side, bondID, qty, s.games.now().UTC())
		order = o
		return next, err
	})
	if err != nil {
		s.games.auditLog(ctx, code, "order.reject", map[string]any{
			"team_id": teamID,
			"side":    side,
			"bond_id": bondID,
			"qty":     qty,
			"reason":  err.Error(),
		})
		return domain.Order{}, err
	}

	s.games.auditLog(ctx, code, "order.execute", map[string]any{
		"order_id": order.ID,
		"team_id":  order.TeamID,
		"side":     order.Side,
		"bond_id":  order.BondID,
		"qty":      order.Quantity,
		"price":    order.Price,
		"fees":     order.Fees,
		"round":    order.Round,
	})
	publishEvent(ctx, s.games.bus, s.logger, ChannelOrders, code, "order.executed", order)
	return order, nil
}
