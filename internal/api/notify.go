package api

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/victornm/duel24/internal/domain"
	"github.com/victornm/duel24/internal/event"
)

const maxConcurrentSends = 16

// Outgoing payloads. Field names are part of the wire contract with the
// client.
type (
	ParticipantInfo struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	GameFound struct {
		SessionID    string            `json:"session_id"`
		Participants []ParticipantInfo `json:"participants"`
		Numbers      []int             `json:"numbers"`
	}

	GameWon struct {
		WinnerName string `json:"winner_name"`
		Expression string `json:"expression"`
		ElapsedMs  int64  `json:"elapsed_ms"`
	}

	InvalidSolution struct {
		Expression string `json:"expression"`
	}

	NewGame struct {
		Numbers []int `json:"numbers"`
	}

	PlayerDisconnected struct {
		Name string `json:"name"`
	}

	MatchFailed struct {
		Message string `json:"message"`
	}
)

func (a *API) subscribe(eb *event.Bus) {
	eb.Subscribe(domain.EventNameMatchWaiting, func(ctx context.Context, e event.Event) error {
		ev := e.(domain.EventMatchWaiting)
		return a.notify(ctx, EventWaiting, struct{}{}, ev.Participant.ID)
	})

	eb.Subscribe(domain.EventNameGameFound, func(ctx context.Context, e event.Event) error {
		g := e.(domain.EventGameFound).Game
		data := GameFound{
			SessionID: g.GameID,
			Participants: []ParticipantInfo{
				{ID: g.Players[0].ID, Name: g.Players[0].Name},
				{ID: g.Players[1].ID, Name: g.Players[1].Name},
			},
			Numbers: g.Numbers[:],
		}
		return a.notify(ctx, EventGameFound, data, g.Players[0].ID, g.Players[1].ID)
	})

	eb.Subscribe(domain.EventNameGameWon, func(ctx context.Context, e event.Event) error {
		ev := e.(domain.EventGameWon)
		data := GameWon{
			WinnerName: ev.Winner.Name,
			Expression: ev.Expression,
			ElapsedMs:  ev.Elapsed.Milliseconds(),
		}
		return a.notify(ctx, EventGameWon, data, ev.Winner.ID, ev.Loser.ID)
	})

	eb.Subscribe(domain.EventNameSolutionRejected, func(ctx context.Context, e event.Event) error {
		ev := e.(domain.EventSolutionRejected)
		return a.notify(ctx, EventInvalidSolution, InvalidSolution{
			Expression: ev.Expression,
		}, ev.Participant.ID)
	})

	eb.Subscribe(domain.EventNameGameNewRound, func(ctx context.Context, e event.Event) error {
		g := e.(domain.EventGameNewRound).Game
		return a.notify(ctx, EventNewGame, NewGame{
			Numbers: g.Numbers[:],
		}, g.Players[0].ID, g.Players[1].ID)
	})

	eb.Subscribe(domain.EventNamePlayerDisconnected, func(ctx context.Context, e event.Event) error {
		ev := e.(domain.EventPlayerDisconnected)
		return a.notify(ctx, EventPlayerDisconnected, PlayerDisconnected{
			Name: ev.LeftName,
		}, ev.Remaining.ID)
	})

	eb.Subscribe(domain.EventNameMatchFailed, func(ctx context.Context, e event.Event) error {
		ev := e.(domain.EventMatchFailed)
		ids := make([]string, 0, len(ev.Participants))
		for _, p := range ev.Participants {
			ids = append(ids, p.ID)
		}
		return a.notify(ctx, EventMatchFailed, MatchFailed{
			Message: "could not set up the game, please try again",
		}, ids...)
	})
}

// notify marshals one notification and offers it to each addressed client.
// Participants that already dropped their connection are skipped.
func (a *API) notify(_ context.Context, eventName string, data any, connIDs ...string) error {
	b, err := json.Marshal(Notification{
		Event: eventName,
		Data:  data,
	})
	if err != nil {
		return fmt.Errorf("marshal %s: %v", eventName, err)
	}

	var eg errgroup.Group
	eg.SetLimit(maxConcurrentSends)

	for _, id := range connIDs {
		id := id
		eg.Go(func() error {
			// enqueue under the read lock so deregistration cannot
			// close the channel mid-send.
			a.mu.RLock()
			defer a.mu.RUnlock()

			if cl, ok := a.clients[id]; ok {
				cl.enqueue(b)
			}
			return nil
		})
	}

	return eg.Wait()
}
