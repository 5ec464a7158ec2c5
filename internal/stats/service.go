// Package stats persists per-player outcomes: wins, losses and the best
// solve time. The game engine never depends on it; it trails the engine by
// subscribing to game.won on the event bus.
package stats

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/victornm/duel24/internal/domain"
	"github.com/victornm/duel24/internal/errors"
	"github.com/victornm/duel24/internal/event"
)

type Config struct {
	EventBus *event.Bus
	DB       *pgxpool.Pool
}

type Service struct {
	db *pgxpool.Pool
}

// NewService wires the outcome recorder to the event bus. With a nil DB the
// service stays registered but records nothing, so the server runs fine
// without postgres configured.
func NewService(c Config) *Service {
	s := &Service{db: c.DB}

	c.EventBus.Subscribe(domain.EventNameGameWon, func(ctx context.Context, e event.Event) error {
		return s.RecordOutcome(ctx, e.(domain.EventGameWon))
	})

	return s
}

// RecordOutcome bumps the winner's and loser's records for a finished round.
// The winner's best time only ever shrinks.
func (s *Service) RecordOutcome(ctx context.Context, e domain.EventGameWon) error {
	if s.db == nil {
		return nil
	}

	const stmt = `
INSERT INTO player_stats (username, wins, losses, best_ms, update_time)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (username) DO UPDATE SET
	wins        = player_stats.wins + EXCLUDED.wins,
	losses      = player_stats.losses + EXCLUDED.losses,
	best_ms     = LEAST(player_stats.best_ms, EXCLUDED.best_ms),
	update_time = EXCLUDED.update_time;`

	now := time.Now()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = stderrors.Join(err, tx.Rollback(ctx))
		}
	}()

	_, err = tx.Exec(ctx, stmt, e.Winner.Name, 1, 0, e.Elapsed.Milliseconds(), now)
	if err != nil {
		return fmt.Errorf("record win: %w", err)
	}

	_, err = tx.Exec(ctx, stmt, e.Loser.Name, 0, 1, nil, now)
	if err != nil {
		return fmt.Errorf("record loss: %w", err)
	}

	return tx.Commit(ctx)
}

type GetProfileRequest struct {
	Username string
}

type GetProfileResponse struct {
	Profile domain.Profile
	WinRate decimal.Decimal
}

// GetProfile returns a player's record and win rate.
func (s *Service) GetProfile(ctx context.Context, req GetProfileRequest) (*GetProfileResponse, error) {
	if s.db == nil {
		return nil, errors.New(errors.CodeFailedPrecond,
			errors.WithMessagef("stats store is not configured"))
	}

	const stmt = `
SELECT username, wins, losses, COALESCE(best_ms, 0), update_time
FROM player_stats
WHERE username = $1;`

	var (
		p      domain.Profile
		bestMs int64
	)
	err := s.db.QueryRow(ctx, stmt, req.Username).Scan(&p.Username, &p.Wins, &p.Losses, &bestMs, &p.UpdateTime)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("no stats for player %q", req.Username))
	}
	if err != nil {
		return nil, err
	}

	p.BestTime = time.Duration(bestMs) * time.Millisecond

	resp := &GetProfileResponse{Profile: p}
	if total := p.Wins + p.Losses; total > 0 {
		resp.WinRate = decimal.NewFromInt(p.Wins).Div(decimal.NewFromInt(total))
	}

	return resp, nil
}
