// Package tokens tracks safe-bet token balances in Redis. Balances are
// granted by the platform (purchases, promotions) and spent at parlay
// submission when insurance is granted.
package tokens

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ErrInsufficientTokens is returned when a spend would drive a balance
// negative. Callers treat it like a declined upsell, not a failure.
var ErrInsufficientTokens = errors.New("insufficient safe-bet tokens")

// spendScript checks and decrements atomically so concurrent spends for
// the same user cannot overdraw.
var spendScript = redis.NewScript(`
local bal = tonumber(redis.call("GET", KEYS[1]) or "0")
local cost = tonumber(ARGV[1])
if bal < cost then
	return -1
end
return redis.call("DECRBY", KEYS[1], cost)
`)

// Store reads and mutates token balances.
type Store struct {
	client *redis.Client
}

// NewStore creates a token store on an existing Redis client.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func balanceKey(userID string) string {
	return "tokens:safe_bet:" + userID
}

// Balance returns the user's current token balance. A user with no
// recorded balance has zero tokens.
func (s *Store) Balance(ctx context.Context, userID string) (int, error) {
	bal, err := s.client.Get(ctx, balanceKey(userID)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading token balance for %s: %w", userID, err)
	}
	return bal, nil
}

// Spend atomically deducts cost tokens and returns the remaining
// balance. ErrInsufficientTokens leaves the balance untouched.
func (s *Store) Spend(ctx context.Context, userID string, cost int) (int, error) {
	if cost <= 0 {
		return s.Balance(ctx, userID)
	}

	remaining, err := spendScript.Run(ctx, s.client, []string{balanceKey(userID)}, cost).Int()
	if err != nil {
		return 0, fmt.Errorf("spending %d tokens for %s: %w", cost, userID, err)
	}
	if remaining < 0 {
		return 0, fmt.Errorf("%w: user %s needs %d", ErrInsufficientTokens, userID, cost)
	}
	return remaining, nil
}

// Grant adds tokens to the user's balance and returns the new total.
func (s *Store) Grant(ctx context.Context, userID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("grant amount must be positive, got %d", amount)
	}
	total, err := s.client.IncrBy(ctx, balanceKey(userID), int64(amount)).Result()
	if err != nil {
		return 0, fmt.Errorf("granting %d tokens to %s: %w", amount, userID, err)
	}
	return int(total), nil
}
