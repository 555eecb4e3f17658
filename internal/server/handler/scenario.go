package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/misionbonos/bondgame/internal/scenario"
	"github.com/misionbonos/bondgame/internal/service"
)

// maxScenarioSize caps uploaded scenario files. Classroom CSVs are a few
// kilobytes.
const maxScenarioSize = 1 << 20

// ScenarioHandler loads moderator-uploaded scenario CSVs into a game.
type ScenarioHandler struct {
	games  *service.GameService
	logger *slog.Logger
}

// NewScenarioHandler creates a ScenarioHandler.
func NewScenarioHandler(games *service.GameService, logger *slog.Logger) *ScenarioHandler {
	return &ScenarioHandler{games: games, logger: logger}
}

// Upload parses a scenario CSV (multipart "file" field or raw body) and
// replaces the game's bond catalog and event script.
// POST /api/games/{code}/scenario
func (h *ScenarioHandler) Upload(w http.ResponseWriter, r *http.Request) {
	body, err := h.scenarioBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer body.Close()

	res, err := scenario.Load(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(res.Bonds) == 0 {
		writeError(w, http.StatusBadRequest, "scenario contains no BOND rows")
		return
	}

	if _, err := h.games.ApplyScenario(r.Context(), pathParam(r, "code"), res.Bonds, res.Events); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	warnings := res.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"bonds":    len(res.Bonds),
		"events":   len(res.Events),
		"skipped":  res.Skipped,
		"warnings": warnings,
	})
}

// scenarioBody extracts the CSV payload: a multipart "file" part when the
// request is a form upload, the raw body otherwise.
func (h *ScenarioHandler) scenarioBody(r *http.Request) (io.ReadCloser, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxScenarioSize)

	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, err
		}
		return file, nil
	}
	return r.Body, nil
}
