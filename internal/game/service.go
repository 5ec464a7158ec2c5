// Package game owns the authoritative matchmaking and session state: the
// FIFO queue of waiting participants and the registry of live games. A
// single mutex serializes every mutating operation, so match, submit,
// new-round and disconnect never interleave. Notifications leave through
// the event bus, which dispatches asynchronously and never blocks a
// mutation.
package game

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/victornm/duel24/internal/domain"
	"github.com/victornm/duel24/internal/event"
	"github.com/victornm/duel24/internal/expr"
)

const fallbackName = "anonymous"

// Generator produces the numbers for a round. Satisfied by
// *puzzle.Generator.
type Generator interface {
	Generate() (domain.Puzzle, error)
}

type Config struct {
	EventBus  *event.Bus
	Generator Generator

	// Clock overrides time.Now, for elapsed-time tests.
	Clock func() time.Time
}

type Service struct {
	eb  *event.Bus
	gen Generator
	now func() time.Time

	mu      sync.Mutex
	waiting []domain.Participant
	games   map[string]*domain.Game
}

func NewService(c Config) *Service {
	s := &Service{
		eb:    c.EventBus,
		gen:   c.Generator,
		now:   c.Clock,
		games: make(map[string]*domain.Game),
	}

	if s.now == nil {
		s.now = time.Now
	}

	return s
}

// FindGameRequest asks to pair the participant with an opponent.
type FindGameRequest struct {
	ParticipantID string
	Name          string
}

// FindGame pairs the participant with the longest-waiting queued participant,
// or queues it when nobody is waiting. A repeated request from a queued
// participant replaces its entry (refreshing the name); a request from a
// participant already in a live game is ignored.
func (s *Service) FindGame(ctx context.Context, req FindGameRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := domain.Participant{ID: req.ParticipantID, Name: req.Name}
	if p.Name == "" {
		p.Name = fallbackName
	}

	if _, ok := s.findGameOf(p.ID); ok {
		return
	}

	s.dequeue(p.ID)

	opponent, ok := s.pop()
	if !ok {
		s.waiting = append(s.waiting, p)
		s.eb.Publish(ctx, domain.EventMatchWaiting{Participant: p})
		return
	}

	g, err := s.createGame(opponent, p)
	if err != nil {
		slog.ErrorContext(ctx, "game: create game failed",
			"participants", []string{opponent.ID, p.ID},
			"error", err,
		)
		s.eb.Publish(ctx, domain.EventMatchFailed{
			Participants: []domain.Participant{opponent, p},
		})
		return
	}

	s.games[g.GameID] = g
	s.eb.Publish(ctx, domain.EventGameFound{Game: *g})
}

func (s *Service) createGame(p1, p2 domain.Participant) (*domain.Game, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate game ID: %w", err)
	}

	numbers, err := s.gen.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate puzzle: %w", err)
	}

	return &domain.Game{
		GameID:    id.String(),
		Players:   [2]domain.Participant{p1, p2},
		Numbers:   numbers,
		Status:    domain.StatusPlaying,
		StartTime: s.now(),
	}, nil
}

// SubmitSolutionRequest carries one player's attempt at the current round.
type SubmitSolutionRequest struct {
	ParticipantID string
	GameID        string
	Expression    string
}

// SubmitSolution validates the expression against the game's numbers. A
// valid submission finishes the round and is broadcast; an invalid one is
// reported to the submitter only. Unknown games, non-members and games
// already finished are ignored without an error: those are races between
// client actions and server-side cleanup, not faults.
func (s *Service) SubmitSolution(ctx context.Context, req SubmitSolutionRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.games[req.GameID]
	if !ok || !g.Member(req.ParticipantID) || g.Status != domain.StatusPlaying {
		return
	}

	submitter := mustMember(g, req.ParticipantID)
	opponent, _ := g.Opponent(req.ParticipantID)

	if err := expr.Validate(g.Numbers, req.Expression); err != nil {
		s.eb.Publish(ctx, domain.EventSolutionRejected{
			Participant: submitter,
			Expression:  req.Expression,
		})
		return
	}

	now := s.now()
	g.Status = domain.StatusFinished
	g.Winner = &submitter
	g.Solutions = append(g.Solutions, domain.Solution{
		Player:     submitter.Name,
		Expression: req.Expression,
		Time:       now,
	})

	s.eb.Publish(ctx, domain.EventGameWon{
		Game:       *g,
		Winner:     submitter,
		Loser:      opponent,
		Expression: req.Expression,
		Elapsed:    now.Sub(g.StartTime),
	})
}

// NewRoundRequest asks for fresh numbers in an existing game.
type NewRoundRequest struct {
	ParticipantID string
	GameID        string
}

// RequestNewRound resets the game to a fresh round: new numbers, winner and
// solution log cleared, round timer restarted. Either participant may ask,
// from either state. If regeneration trips the generator's cap the game is
// torn down and both players are told the match failed.
func (s *Service) RequestNewRound(ctx context.Context, req NewRoundRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.games[req.GameID]
	if !ok || !g.Member(req.ParticipantID) {
		return
	}

	numbers, err := s.gen.Generate()
	if err != nil {
		slog.ErrorContext(ctx, "game: regenerate puzzle failed",
			"game_id", g.GameID,
			"error", err,
		)
		delete(s.games, g.GameID)
		s.eb.Publish(ctx, domain.EventMatchFailed{
			Participants: g.Players[:],
		})
		return
	}

	g.Numbers = numbers
	g.Status = domain.StatusPlaying
	g.Winner = nil
	g.Solutions = nil
	g.StartTime = s.now()

	s.eb.Publish(ctx, domain.EventGameNewRound{Game: *g})
}

// Disconnect removes the participant from whichever structure holds it. A
// queued participant is dropped silently; a participant in a game tears the
// whole game down and the remaining player is notified. Disconnecting an
// unknown participant is a no-op, so the transport may call this as often
// as it likes.
func (s *Service) Disconnect(ctx context.Context, participantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dequeue(participantID) {
		return
	}

	g, ok := s.findGameOf(participantID)
	if !ok {
		return
	}

	left := mustMember(g, participantID)
	remaining, _ := g.Opponent(participantID)

	delete(s.games, g.GameID)

	s.eb.Publish(ctx, domain.EventPlayerDisconnected{
		Remaining: remaining,
		LeftName:  left.Name,
	})
}

// Snapshot returns a copy of the game's current state.
func (s *Service) Snapshot(gameID string) (domain.Game, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.games[gameID]
	if !ok {
		return domain.Game{}, false
	}

	return *g, true
}

// WaitingCount reports how many participants sit in the queue.
func (s *Service) WaitingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.waiting)
}

func (s *Service) pop() (domain.Participant, bool) {
	if len(s.waiting) == 0 {
		return domain.Participant{}, false
	}

	p := s.waiting[0]
	s.waiting = s.waiting[1:]
	return p, true
}

func (s *Service) dequeue(participantID string) bool {
	for i, w := range s.waiting {
		if w.ID == participantID {
			s.waiting = append(s.waiting[:i:i], s.waiting[i+1:]...)
			return true
		}
	}

	return false
}

func (s *Service) findGameOf(participantID string) (*domain.Game, bool) {
	for _, g := range s.games {
		if g.Member(participantID) {
			return g, true
		}
	}

	return nil, false
}

func mustMember(g *domain.Game, participantID string) domain.Participant {
	if g.Players[0].ID == participantID {
		return g.Players[0]
	}
	return g.Players[1]
}
