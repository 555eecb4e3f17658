package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/misionbonos/bondgame/internal/domain"
)

func rankedSnapshot(t *testing.T) domain.Snapshot {
	t.Helper()
	s := tradingSnapshot(t) // team T1 "Alfa" registered
	var err error
	s, _, err = RegisterTeam(s, "Beta", "", publishAt())
	require.NoError(t, err)
	return s
}

func TestLeaderboardRanksByPortfolioValue(t *testing.T) {
	s := rankedSnapshot(t)

	// Alfa buys 10 at ask 1050; mid is 1000, so Alfa carries the spread
	// cost but Beta sits in cash. Now mark the mid up to 1200: Alfa's
	// position is worth 12,000 and it overtakes Beta.
	var err error
	s, _, err = ExecuteOrder(s, "T1", domain.OrderSideBuy, "B1", 10, publishAt())
	require.NoError(t, err)
	s.Quotes[0].Mid = 1200

	rows := Leaderboard(s, 1)
	require.Len(t, rows, 2)
	assert.Equal(t, "Alfa", rows[0].TeamName)
	assert.InDelta(t, 989_489.5, rows[0].Cash, 1e-6)
	assert.InDelta(t, 12_000.0, rows[0].PositionValue, 1e-6)
	assert.InDelta(t, 1_001_489.5, rows[0].PortfolioValue, 1e-6)
	assert.Equal(t, "Beta", rows[1].TeamName)
	assert.InDelta(t, 1_000_000.0, rows[1].PortfolioValue, 1e-6)

	// Recomputing from the same inputs reproduces the ordering.
	again := Leaderboard(s, 1)
	assert.Equal(t, rows, again)
}

func TestLeaderboardTiesKeepRegistrationOrder(t *testing.T) {
	s := rankedSnapshot(t)

	rows := Leaderboard(s, 1)
	require.Len(t, rows, 2)
	assert.Equal(t, "Alfa", rows[0].TeamName)
	assert.Equal(t, "Beta", rows[1].TeamName)
}

func TestLeaderboardValuesUnpricedBondsAtZero(t *testing.T) {
	s := rankedSnapshot(t)
	var err error
	s, _, err = ExecuteOrder(s, "T1", domain.OrderSideBuy, "B1", 10, publishAt())
	require.NoError(t, err)

	// Ask for a round with no quotes at all: position value collapses to
	// zero but ranking still works.
	rows := Leaderboard(s, 2)
	require.Len(t, rows, 2)
	assert.Zero(t, rows[0].PositionValue)
	assert.Zero(t, rows[1].PositionValue)
	// Alfa paid cash for a now-unpriced position, so Beta leads.
	assert.Equal(t, "Beta", rows[0].TeamName)
}

func TestFinalRankingUsesLastQuotedRound(t *testing.T) {
	s := rankedSnapshot(t)
	var err error
	s, _, err = ExecuteOrder(s, "T1", domain.OrderSideBuy, "B1", 10, publishAt())
	require.NoError(t, err)

	// Publish a richer mid in round 2; the final ranking must value
	// against round 2 even though round 3 never traded.
	s.Quotes = append(s.Quotes, domain.Quote{
		Round: 2, BondID: "B1", Mid: 1500, Bid: 1470, Ask: 1530, PublishedAt: publishAt().Add(time.Hour),
	})

	rows := FinalRanking(s)
	require.Len(t, rows, 2)
	assert.Equal(t, "Alfa", rows[0].TeamName)
	wantValue := 989_489.5 + 10*1500
	assert.InDelta(t, wantValue, rows[0].FinalValue, 1e-6)
	assert.InDelta(t, (wantValue/1_000_000-1)*100, rows[0].ReturnPct, 1e-9)
	assert.InDelta(t, 0.0, rows[1].ReturnPct, 1e-9)
}

func TestFinalRankingEmptyWithoutQuotes(t *testing.T) {
	s := rankedSnapshot(t)
	s.Quotes = nil

	rows := FinalRanking(s)
	assert.Empty(t, rows)
}
