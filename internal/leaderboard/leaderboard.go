// Package leaderboard keeps an all-time score ranking in a redis sorted set.
// Points accumulate across games; ranks are 1-indexed.
package leaderboard

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const scoreKey = "leaderboard:score"

type Entry struct {
	Username string `json:"username"`
	Score    int64  `json:"score"`
	Rank     int64  `json:"rank"`
}

// Repository handles the redis ZSet operations for the leaderboard.
type Repository struct {
	client *redis.Client
	ctx    context.Context
}

func NewRepository(client *redis.Client) *Repository {
	return &Repository{
		client: client,
		ctx:    context.Background(),
	}
}

// AddPoints adds a game's points to the player's all-time total.
func (r *Repository) AddPoints(username string, points int) error {
	if err := r.client.ZIncrBy(r.ctx, scoreKey, float64(points), username).Err(); err != nil {
		return fmt.Errorf("incrementing leaderboard score: %w", err)
	}
	return nil
}

// Top returns the best limit players, highest total first.
func (r *Repository) Top(limit int64) ([]Entry, error) {
	results, err := r.client.ZRevRangeWithScores(r.ctx, scoreKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading leaderboard: %w", err)
	}

	entries := make([]Entry, len(results))
	for i, result := range results {
		entries[i] = Entry{
			Username: result.Member.(string),
			Score:    int64(result.Score),
			Rank:     int64(i) + 1,
		}
	}
	return entries, nil
}

// UserRank returns the player's 1-indexed rank, or 0 if they have no score.
func (r *Repository) UserRank(username string) (int64, error) {
	rank, err := r.client.ZRevRank(r.ctx, scoreKey, username).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading leaderboard rank: %w", err)
	}
	return rank + 1, nil
}
