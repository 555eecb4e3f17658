// Package service orchestrates the game engine against the domain stores:
// every mutating operation runs inside the per-game lock as a
// load-mutate-save cycle, with audit logging and signal-bus fan-out.
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/misionbonos/bondgame/internal/domain"
)

// Signal bus channels consumed by the WebSocket hub.
const (
	ChannelQuotes = "bondgame:quotes"
	ChannelOrders = "bondgame:orders"
	ChannelGame   = "bondgame:game"
)

// Event is the envelope published on the signal bus. Data carries the
// kind-specific payload already marshalled to JSON.
type Event struct {
	GameCode string          `json:"game_code"`
	Kind     string          `json:"kind"`
	At       time.Time       `json:"at"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// publishEvent marshals and publishes one event. Bus delivery is
// best-effort; a failed publish is logged and never fails the operation
// that triggered it.
func publishEvent(ctx context.Context, bus domain.SignalBus, logger *slog.Logger, channel, code, kind string, data any) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			logger.Warn("marshal event payload", "kind", kind, "error", err)
			return
		}
		raw = b
	}

	payload, err := json.Marshal(Event{
		GameCode: code,
		Kind:     kind,
		At:       time.Now().UTC(),
		Data:     raw,
	})
	if err != nil {
		logger.Warn("marshal event", "kind", kind, "error", err)
		return
	}

	if err := bus.Publish(ctx, channel, payload); err != nil {
		logger.Warn("publish event", "channel", channel, "kind", kind, "error", err)
	}
}
