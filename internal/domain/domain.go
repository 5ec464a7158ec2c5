package domain

import (
	"time"
)

// PuzzleSize is the number of values every round is played with.
const PuzzleSize = 4

// Puzzle is the set of numbers a round must be combined from. It is
// replaced wholesale when a new round starts, never mutated in place.
type Puzzle [PuzzleSize]int

// Participant is one of the two players of a game. ID is the opaque
// connection identifier assigned by the transport layer.
type Participant struct {
	ID   string
	Name string
}

// Status of a game.
type Status string

const (
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// Game is a paired round (or sequence of rounds) between exactly two
// participants. A participant belongs to at most one game at a time.
type Game struct {
	GameID  string
	Players [2]Participant

	Numbers   Puzzle
	Status    Status
	Winner    *Participant
	Solutions []Solution
	StartTime time.Time
}

// Solution is an accepted submission, kept for the current round's audit log.
type Solution struct {
	Player     string
	Expression string
	Time       time.Time
}

// Member reports whether the participant with the given ID plays in g.
func (g *Game) Member(participantID string) bool {
	return g.Players[0].ID == participantID || g.Players[1].ID == participantID
}

// Opponent returns the other participant of the game.
func (g *Game) Opponent(participantID string) (Participant, bool) {
	switch participantID {
	case g.Players[0].ID:
		return g.Players[1], true
	case g.Players[1].ID:
		return g.Players[0], true
	}
	return Participant{}, false
}

// Profile is a player's persisted record, maintained across games by the
// stats service.
type Profile struct {
	Username   string
	Wins       int64
	Losses     int64
	BestTime   time.Duration
	UpdateTime time.Time
}

// Leaderboard lists the fastest recorded solves, quickest first.
type Leaderboard struct {
	Entries []LeaderboardEntry
}

type LeaderboardEntry struct {
	Username string
	BestMs   float64
}
