package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/misionbonos/bondgame/internal/domain"
)

// quoteTTL bounds how long cached round quotes live. Rounds in a classroom
// session last minutes, so a few hours is generous.
const quoteTTL = 6 * time.Hour

// QuoteCache implements domain.QuoteCache using Redis hashes. Published mid
// prices for one (game code, round) pair live in a hash at key
// "bondgame:quotes:{code}:{round}" with one field per bond ID.
type QuoteCache struct {
	rdb *redis.Client
}

// NewQuoteCache creates a QuoteCache backed by the given Client.
func NewQuoteCache(c *Client) *QuoteCache {
	return &QuoteCache{rdb: c.Underlying()}
}

func quoteKey(code string, round int) string {
	return fmt.Sprintf("%squotes:%s:%d", keyPrefix, code, round)
}

// SetMids stores the mid prices published for a round. A re-publish of the
// same round overwrites the whole hash so stale bond entries never linger.
func (qc *QuoteCache) SetMids(ctx context.Context, code string, round int, mids map[string]float64) error {
	key := quoteKey(code, round)

	fields := make(map[string]interface{}, len(mids))
	for bondID, mid := range mids {
		fields[bondID] = strconv.FormatFloat(mid, 'f', -1, 64)
	}

	pipe := qc.rdb.TxPipeline()
	pipe.Del(ctx, key)
	if len(fields) > 0 {
		pipe.HSet(ctx, key, fields)
		pipe.Expire(ctx, key, quoteTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set mids %s round %d: %w", code, round, err)
	}
	return nil
}

// GetMids retrieves the mid prices for a round. It returns
// domain.ErrNotFound when the round has no cached quotes.
func (qc *QuoteCache) GetMids(ctx context.Context, code string, round int) (map[string]float64, error) {
	key := quoteKey(code, round)

	vals, err := qc.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: get mids %s round %d: %w", code, round, err)
	}
	if len(vals) == 0 {
		return nil, domain.ErrNotFound
	}

	mids := make(map[string]float64, len(vals))
	for bondID, s := range vals {
		mid, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("redis: parse mid %s/%s: %w", code, bondID, err)
		}
		mids[bondID] = mid
	}
	return mids, nil
}

// Compile-time interface check.
var _ domain.QuoteCache = (*QuoteCache)(nil)
