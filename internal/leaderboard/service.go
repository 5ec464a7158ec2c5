// Package leaderboard keeps the fastest recorded solve per player in a
// redis sorted set, quickest first. It trails the game engine through the
// event bus the same way the stats store does.
package leaderboard

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/victornm/duel24/internal/domain"
	"github.com/victornm/duel24/internal/errors"
	"github.com/victornm/duel24/internal/event"
)

type Config struct {
	EventBus *event.Bus
	Redis    redis.UniversalClient
	Prefix   string
}

type Service struct {
	redis  redis.UniversalClient
	prefix string
}

func NewService(c Config) *Service {
	s := &Service{
		redis:  c.Redis,
		prefix: c.Prefix,
	}

	c.EventBus.Subscribe(domain.EventNameGameWon, func(ctx context.Context, e event.Event) error {
		return s.RecordSolve(ctx, e.(domain.EventGameWon))
	})

	return s
}

// RecordSolve stores the winner's solve time if it beats their current best.
func (s *Service) RecordSolve(ctx context.Context, e domain.EventGameWon) error {
	if s.redis == nil {
		return nil
	}

	var (
		key    = s.boardKey()
		member = e.Winner.Name
		ms     = float64(e.Elapsed.Milliseconds())
	)

	current, err := s.redis.ZScore(ctx, key, member).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("read best time: %w", err)
	}
	if err == nil && current <= ms {
		return nil
	}

	if err := s.redis.ZAdd(ctx, key, redis.Z{
		Score:  ms,
		Member: member,
	}).Err(); err != nil {
		return fmt.Errorf("record solve: %w", err)
	}

	return nil
}

type GetLeaderboardRequest struct {
	Limit int64
}

// GetLeaderboard lists the fastest solvers in ascending solve time.
func (s *Service) GetLeaderboard(ctx context.Context, req GetLeaderboardRequest) (*domain.Leaderboard, error) {
	if s.redis == nil {
		return nil, errors.New(errors.CodeFailedPrecond,
			errors.WithMessagef("leaderboard store is not configured"))
	}

	stop := int64(-1)
	if req.Limit > 0 {
		stop = req.Limit - 1
	}

	res, err := s.redis.ZRangeWithScores(ctx, s.boardKey(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("get leaderboard: %w", err)
	}

	l := &domain.Leaderboard{
		Entries: make([]domain.LeaderboardEntry, 0, len(res)),
	}
	for _, z := range res {
		l.Entries = append(l.Entries, domain.LeaderboardEntry{
			Username: z.Member.(string),
			BestMs:   z.Score,
		})
	}

	return l, nil
}

func (s *Service) boardKey() string {
	return fmt.Sprintf("%s:besttimes", s.prefix)
}
