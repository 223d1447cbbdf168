package service

import (
	crand "crypto/rand"
	"fmt"
	"math/big"

	"giveawaybot/internal/storage"
)

var drawRandomInt = secureRandomInt

// DrawWinners picks up to places distinct winners uniformly at random from eligible.
// Places are assigned in draw order starting at 1. The input slice is not modified.
func DrawWinners(eligible []int64, places int) ([]storage.Winner, error) {
	if places > len(eligible) {
		places = len(eligible)
	}
	if places <= 0 {
		return nil, nil
	}

	pool := make([]int64, len(eligible))
	copy(pool, eligible)

	// Partial Fisher-Yates: the first `places` slots end up holding the draw
	winners := make([]storage.Winner, 0, places)
	for i := 0; i < places; i++ {
		j, err := drawRandomInt(len(pool) - i)
		if err != nil {
			return nil, fmt.Errorf("failed to pick random participant: %w", err)
		}
		j += i
		pool[i], pool[j] = pool[j], pool[i]
		winners = append(winners, storage.Winner{
			TelegramID: pool[i],
			Place:      i + 1,
		})
	}
	return winners, nil
}

// secureRandomInt returns a uniform int in [0, n)
func secureRandomInt(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("invalid range: %d", n)
	}
	v, err := crand.Int(crand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}
