package leaderboard_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/victornm/duel24/internal/domain"
	"github.com/victornm/duel24/internal/event"
	"github.com/victornm/duel24/internal/leaderboard"
)

func TestService_RecordSolve(t *testing.T) {
	s := makeService(t)

	record := func(winner string, elapsed time.Duration) {
		err := s.RecordSolve(context.Background(), domain.EventGameWon{
			Winner:  domain.Participant{ID: "c1", Name: winner},
			Loser:   domain.Participant{ID: "c2", Name: "other"},
			Elapsed: elapsed,
		})
		require.NoError(t, err)
	}

	record("u1", 42*time.Second)
	record("u2", 13*time.Second)

	resp, err := s.GetLeaderboard(context.Background(), leaderboard.GetLeaderboardRequest{})
	require.NoError(t, err)

	want := &domain.Leaderboard{
		Entries: []domain.LeaderboardEntry{
			{Username: "u2", BestMs: 13000},
			{Username: "u1", BestMs: 42000},
		},
	}
	require.Equal(t, want, resp, "fastest solver first")
}

func TestService_RecordSolve_keepsTheBestTime(t *testing.T) {
	s := makeService(t)

	for _, elapsed := range []time.Duration{
		30 * time.Second,
		10 * time.Second, // improvement, must stick
		50 * time.Second, // regression, must be ignored
	} {
		err := s.RecordSolve(context.Background(), domain.EventGameWon{
			Winner:  domain.Participant{ID: "c1", Name: "u1"},
			Elapsed: elapsed,
		})
		require.NoError(t, err)
	}

	resp, err := s.GetLeaderboard(context.Background(), leaderboard.GetLeaderboardRequest{})
	require.NoError(t, err)

	require.Len(t, resp.Entries, 1)
	require.Equal(t, float64(10000), resp.Entries[0].BestMs)
}

func TestService_GetLeaderboard_limit(t *testing.T) {
	s := makeService(t)

	for i, u := range []string{"u1", "u2", "u3", "u4"} {
		err := s.RecordSolve(context.Background(), domain.EventGameWon{
			Winner:  domain.Participant{ID: "c1", Name: u},
			Elapsed: time.Duration(i+1) * time.Second,
		})
		require.NoError(t, err)
	}

	resp, err := s.GetLeaderboard(context.Background(), leaderboard.GetLeaderboardRequest{Limit: 2})
	require.NoError(t, err)

	require.Len(t, resp.Entries, 2)
	require.Equal(t, "u1", resp.Entries[0].Username)
	require.Equal(t, "u2", resp.Entries[1].Username)
}

func makeService(t *testing.T) *leaderboard.Service {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	rs := miniredis.RunT(t)
	rc := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{rs.Addr()},
	})
	require.NoError(t, rc.Ping(ctx).Err(), "should be able to ping redis")

	return leaderboard.NewService(leaderboard.Config{
		EventBus: event.NewBus(),
		Redis:    rc,
		Prefix:   "test",
	})
}
