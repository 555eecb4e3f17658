package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/misionbonos/bondgame/internal/domain"
	"github.com/misionbonos/bondgame/internal/service"
)

// OrderHandler serves order submission and listing.
type OrderHandler struct {
	games  *service.GameService
	orders *service.OrderService
	logger *slog.Logger
}

// NewOrderHandler creates an OrderHandler.
func NewOrderHandler(games *service.GameService, orders *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{games: games, orders: orders, logger: logger}
}

type orderRequest struct {
	TeamID string `json:"team_id"`
	Side   string `json:"side"`
	BondID string `json:"bond_id"`
	Qty    int64  `json:"qty"`
}

// Submit executes one all-or-nothing order at the current round's quotes.
// POST /api/games/{code}/orders
func (h *OrderHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	side := domain.OrderSide(strings.ToUpper(strings.TrimSpace(req.Side)))
	if !side.Valid() {
		writeError(w, http.StatusBadRequest, `side must be "BUY" or "SELL"`)
		return
	}

	order, err := h.orders.Submit(r.Context(), pathParam(r, "code"), req.TeamID, side, req.BondID, req.Qty)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// List returns a game's full order ledger, optionally filtered by team.
// GET /api/games/{code}/orders
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	snap, err := h.games.Get(r.Context(), pathParam(r, "code"))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	teamID := r.URL.Query().Get("team_id")
	orders := make([]domain.Order, 0, len(snap.Orders))
	for _, o := range snap.Orders {
		if teamID == "" || o.TeamID == teamID {
			orders = append(orders, o)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}
