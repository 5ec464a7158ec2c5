package domain

import "time"

const (
	EventNameMatchWaiting       = "match.waiting"
	EventNameMatchFailed        = "match.failed"
	EventNameGameFound          = "game.found"
	EventNameGameWon            = "game.won"
	EventNameGameNewRound       = "game.new_round"
	EventNameSolutionRejected   = "solution.rejected"
	EventNamePlayerDisconnected = "player.disconnected"
)

// EventMatchWaiting is published when a participant enters the waiting queue
// with no opponent available yet.
type EventMatchWaiting struct {
	Participant Participant
}

func (EventMatchWaiting) Name() string { return EventNameMatchWaiting }

// EventMatchFailed is published when a match could not be set up, e.g. the
// puzzle generator tripped its retry cap. The listed participants are back
// in the menu and must request a game again.
type EventMatchFailed struct {
	Participants []Participant
}

func (EventMatchFailed) Name() string { return EventNameMatchFailed }

// EventGameFound is published when two participants are paired into a game.
type EventGameFound struct {
	Game Game
}

func (EventGameFound) Name() string { return EventNameGameFound }

// EventGameWon is published when a submission is accepted and ends the round.
type EventGameWon struct {
	Game       Game
	Winner     Participant
	Loser      Participant
	Expression string
	Elapsed    time.Duration
}

func (EventGameWon) Name() string { return EventNameGameWon }

// EventGameNewRound is published when a game is reset with fresh numbers.
type EventGameNewRound struct {
	Game Game
}

func (EventGameNewRound) Name() string { return EventNameGameNewRound }

// EventSolutionRejected is published when a submission fails validation.
// Only the submitter is told.
type EventSolutionRejected struct {
	Participant Participant
	Expression  string
}

func (EventSolutionRejected) Name() string { return EventNameSolutionRejected }

// EventPlayerDisconnected is published when a game is torn down because one
// of its participants dropped. Remaining is the participant still connected.
type EventPlayerDisconnected struct {
	Remaining Participant
	LeftName  string
}

func (EventPlayerDisconnected) Name() string { return EventNamePlayerDisconnected }
