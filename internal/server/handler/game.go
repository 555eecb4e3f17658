package handler

import (
	"log/slog"
	"net/http"

	"github.com/misionbonos/bondgame/internal/domain"
	"github.com/misionbonos/bondgame/internal/service"
)

// GameHandler serves game state and moderator lifecycle endpoints.
type GameHandler struct {
	games  *service.GameService
	logger *slog.Logger
}

// NewGameHandler creates a GameHandler.
func NewGameHandler(games *service.GameService, logger *slog.Logger) *GameHandler {
	return &GameHandler{games: games, logger: logger}
}

// publicTeam is a team row with the PIN hash stripped.
type publicTeam struct {
	ID          string  `json:"team_id"`
	Name        string  `json:"team_name"`
	InitialCash float64 `json:"initial_cash"`
	Active      bool    `json:"active"`
	HasPIN      bool    `json:"has_pin"`
}

// gameResponse is the full game view returned to clients.
type gameResponse struct {
	Game   domain.Game          `json:"game"`
	Bonds  []domain.Bond        `json:"bonds"`
	Events []domain.MarketEvent `json:"events"`
	Teams  []publicTeam         `json:"teams"`
	Quotes []domain.Quote       `json:"quotes"`
}

func toGameResponse(snap domain.Snapshot) gameResponse {
	teams := make([]publicTeam, 0, len(snap.Teams))
	for _, t := range snap.Teams {
		teams = append(teams, publicTeam{
			ID:          t.ID,
			Name:        t.Name,
			InitialCash: t.InitialCash,
			Active:      t.Active,
			HasPIN:      t.PINHash != "",
		})
	}

	quotes := make([]domain.Quote, 0)
	for _, q := range snap.Quotes {
		if q.Round == snap.Game.CurrentRound {
			quotes = append(quotes, q)
		}
	}

	return gameResponse{
		Game:   snap.Game,
		Bonds:  snap.Bonds,
		Events: snap.Events,
		Teams:  teams,
		Quotes: quotes,
	}
}

// ListGames returns all known game codes.
// GET /api/games
func (h *GameHandler) ListGames(w http.ResponseWriter, r *http.Request) {
	codes, err := h.games.ListGames(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if codes == nil {
		codes = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"games": codes})
}

// GetGame returns the full game state, creating the game with defaults on
// first access.
// GET /api/games/{code}
func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	snap, err := h.games.Get(r.Context(), pathParam(r, "code"))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toGameResponse(snap))
}

// configRequest carries moderator-settable game parameters.
type configRequest struct {
	RoundsTotal   int     `json:"rounds_total"`
	YearFraction  float64 `json:"year_fraction"`
	BidSpreadBps  float64 `json:"bid_spread_bps"`
	AskSpreadBps  float64 `json:"ask_spread_bps"`
	CommissionBps float64 `json:"commission_bps"`
	InitialCash   float64 `json:"initial_cash"`
}

// UpdateConfig applies moderator game settings while the game is still in
// its first lobby.
// PUT /api/games/{code}/config
func (h *GameHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req configRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.RoundsTotal < 1 || req.YearFraction <= 0 || req.InitialCash <= 0 {
		writeError(w, http.StatusBadRequest, "rounds_total, year_fraction and initial_cash must be positive")
		return
	}
	if req.BidSpreadBps < 0 || req.AskSpreadBps < 0 || req.CommissionBps < 0 {
		writeError(w, http.StatusBadRequest, "spreads and commission must not be negative")
		return
	}

	snap, err := h.games.UpdateConfig(r.Context(), pathParam(r, "code"), domain.Game{
		RoundsTotal:   req.RoundsTotal,
		YearFraction:  req.YearFraction,
		BidSpreadBps:  req.BidSpreadBps,
		AskSpreadBps:  req.AskSpreadBps,
		CommissionBps: req.CommissionBps,
		InitialCash:   req.InitialCash,
	})
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, snap.Game)
}

// Publish computes and publishes the current round's quotes, opening
// trading.
// POST /api/games/{code}/publish
func (h *GameHandler) Publish(w http.ResponseWriter, r *http.Request) {
	quotes, err := h.games.PublishPrices(r.Context(), pathParam(r, "code"))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quotes": quotes})
}

// Close ends the current round's trading window.
// POST /api/games/{code}/close
func (h *GameHandler) Close(w http.ResponseWriter, r *http.Request) {
	snap, err := h.games.CloseTrading(r.Context(), pathParam(r, "code"))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, snap.Game)
}

// Advance moves the game into the next round's lobby.
// POST /api/games/{code}/advance
func (h *GameHandler) Advance(w http.ResponseWriter, r *http.Request) {
	snap, err := h.games.AdvanceRound(r.Context(), pathParam(r, "code"))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, snap.Game)
}

// Finalize ends the game and archives it when an archiver is configured.
// POST /api/games/{code}/finalize
func (h *GameHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	snap, err := h.games.Finalize(r.Context(), pathParam(r, "code"))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, snap.Game)
}

// ListBonds returns the game's bond catalog.
// GET /api/games/{code}/bonds
func (h *GameHandler) ListBonds(w http.ResponseWriter, r *http.Request) {
	snap, err := h.games.Get(r.Context(), pathParam(r, "code"))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	bonds := snap.Bonds
	if bonds == nil {
		bonds = []domain.Bond{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"bonds": bonds})
}

// ListEvents returns the game's event script.
// GET /api/games/{code}/events
func (h *GameHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	snap, err := h.games.Get(r.Context(), pathParam(r, "code"))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	events := snap.Events
	if events == nil {
		events = []domain.MarketEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// GetQuotes returns a round's published quotes. ?round=N selects a past
// round; the default is the current one.
// GET /api/games/{code}/quotes
func (h *GameHandler) GetQuotes(w http.ResponseWriter, r *http.Request) {
	snap, err := h.games.Get(r.Context(), pathParam(r, "code"))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	round := queryInt(r, "round", snap.Game.CurrentRound)
	quotes := make([]domain.Quote, 0)
	for _, q := range snap.Quotes {
		if q.Round == round {
			quotes = append(quotes, q)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"round": round, "quotes": quotes})
}

// Leaderboard returns the mark-to-market standings for a round (default:
// current).
// GET /api/games/{code}/leaderboard
func (h *GameHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	standings, err := h.games.Leaderboard(r.Context(), pathParam(r, "code"), queryInt(r, "round", 0))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": standings})
}

// Ranking returns the final ranking by return over initial cash.
// GET /api/games/{code}/ranking
func (h *GameHandler) Ranking(w http.ResponseWriter, r *http.Request) {
	ranking, err := h.games.FinalRanking(r.Context(), pathParam(r, "code"))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ranking": ranking})
}

// AuditTrail returns the most recent audit entries for a game.
// GET /api/games/{code}/audit
func (h *GameHandler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	entries, err := h.games.AuditTrail(r.Context(), pathParam(r, "code"), queryInt(r, "limit", 100))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"audit": entries})
}
