package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/misionbonos/bondgame/internal/domain"
)

func TestAggregateShocksSumsByKind(t *testing.T) {
	events := []domain.MarketEvent{
		{Round: 1, Kind: domain.EventMarket, MagnitudeBps: 50},
		{Round: 1, Kind: domain.EventMarket, MagnitudeBps: -20},
		{Round: 1, Kind: domain.EventIdiosyncratic, BondID: "B1", MagnitudeBps: 100},
		{Round: 1, Kind: domain.EventIdiosyncratic, BondID: "B1", MagnitudeBps: 25},
		{Round: 1, Kind: domain.EventIdiosyncratic, BondID: "B2", MagnitudeBps: -10},
		{Round: 2, Kind: domain.EventMarket, MagnitudeBps: 999},
		{Round: 2, Kind: domain.EventIdiosyncratic, BondID: "B1", MagnitudeBps: 999},
	}

	marketBps, idios := AggregateShocks(events, 1)
	assert.InDelta(t, 30.0, marketBps, 1e-12)
	assert.InDelta(t, 125.0, idios["B1"], 1e-12)
	assert.InDelta(t, -10.0, idios["B2"], 1e-12)
	assert.NotContains(t, idios, "B3")
}

func TestAggregateShocksEmptyRound(t *testing.T) {
	events := []domain.MarketEvent{
		{Round: 2, Kind: domain.EventMarket, MagnitudeBps: 50},
	}
	marketBps, idios := AggregateShocks(events, 1)
	assert.Zero(t, marketBps)
	assert.Empty(t, idios)
}
