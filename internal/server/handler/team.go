package handler

import (
	"log/slog"
	"net/http"

	"github.com/misionbonos/bondgame/internal/domain"
	"github.com/misionbonos/bondgame/internal/service"
)

// TeamHandler serves team registration, login, and account views.
type TeamHandler struct {
	games  *service.GameService
	teams  *service.TeamService
	logger *slog.Logger
}

// NewTeamHandler creates a TeamHandler.
func NewTeamHandler(games *service.GameService, teams *service.TeamService, logger *slog.Logger) *TeamHandler {
	return &TeamHandler{games: games, teams: teams, logger: logger}
}

type registerRequest struct {
	Name string `json:"name"`
	PIN  string `json:"pin"`
}

func teamBody(t domain.Team) map[string]any {
	return map[string]any{
		"team_id":      t.ID,
		"team_name":    t.Name,
		"initial_cash": t.InitialCash,
		"has_pin":      t.PINHash != "",
	}
}

// Register adds a team to the game.
// POST /api/games/{code}/teams
func (h *TeamHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	team, err := h.teams.Register(r.Context(), pathParam(r, "code"), req.Name, req.PIN)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, teamBody(team))
}

type loginRequest struct {
	PIN string `json:"pin"`
}

// Login verifies a team's PIN for rejoining.
// POST /api/games/{code}/teams/{name}/login
func (h *TeamHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	team, err := h.teams.Login(r.Context(), pathParam(r, "code"), pathParam(r, "name"), req.PIN)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, teamBody(team))
}

// GetTeam returns a team's positions, cash, and portfolio value marked
// against the current round.
// GET /api/games/{code}/teams/{name}
func (h *TeamHandler) GetTeam(w http.ResponseWriter, r *http.Request) {
	view, err := h.games.TeamView(r.Context(), pathParam(r, "code"), pathParam(r, "name"))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
