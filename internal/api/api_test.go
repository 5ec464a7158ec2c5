package api_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/duel24/internal/api"
	"github.com/victornm/duel24/internal/event"
	"github.com/victornm/duel24/internal/game"
)

func TestAPI_Dispatch(t *testing.T) {
	tests := map[string]struct {
		env    api.Envelope
		assert func(t *testing.T, eng *engineSpy, err error)
	}{
		"findGame reaches the engine with the connection identity": {
			env: envelope(api.EventFindGame, `{"name": "alice"}`),
			assert: func(t *testing.T, eng *engineSpy, err error) {
				require.NoError(t, err)
				require.Len(t, eng.finds, 1)
				assert.Equal(t, "c1", eng.finds[0].ParticipantID)
				assert.Equal(t, "alice", eng.finds[0].Name)
			},
		},

		"submitSolution carries session and expression": {
			env: envelope(api.EventSubmitSolution, `{"session_id": "g1", "expression": "4*6*1*1"}`),
			assert: func(t *testing.T, eng *engineSpy, err error) {
				require.NoError(t, err)
				require.Len(t, eng.submits, 1)
				assert.Equal(t, game.SubmitSolutionRequest{
					ParticipantID: "c1",
					GameID:        "g1",
					Expression:    "4*6*1*1",
				}, eng.submits[0])
			},
		},

		"requestNewGame resets the named session": {
			env: envelope(api.EventRequestNewGame, `{"session_id": "g1"}`),
			assert: func(t *testing.T, eng *engineSpy, err error) {
				require.NoError(t, err)
				require.Len(t, eng.newRounds, 1)
				assert.Equal(t, "g1", eng.newRounds[0].GameID)
			},
		},

		"unknown events never reach the engine": {
			env: envelope("becomeAdmin", `{}`),
			assert: func(t *testing.T, eng *engineSpy, err error) {
				require.Error(t, err)
				assert.True(t, eng.untouched())
			},
		},

		"malformed payloads never reach the engine": {
			env: envelope(api.EventSubmitSolution, `{"session_id": 12`),
			assert: func(t *testing.T, eng *engineSpy, err error) {
				require.Error(t, err)
				assert.True(t, eng.untouched())
			},
		},

		"missing payloads never reach the engine": {
			env: api.Envelope{Event: api.EventFindGame},
			assert: func(t *testing.T, eng *engineSpy, err error) {
				require.Error(t, err)
				assert.True(t, eng.untouched())
			},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			eng := &engineSpy{}
			a := api.New(api.Config{
				EventBus: event.NewBus(),
				Game:     eng,
			})

			err := a.Dispatch(context.Background(), "c1", tt.env)
			tt.assert(t, eng, err)
		})
	}
}

func envelope(event, data string) api.Envelope {
	return api.Envelope{
		Event: event,
		Data:  json.RawMessage(data),
	}
}

type engineSpy struct {
	finds       []game.FindGameRequest
	submits     []game.SubmitSolutionRequest
	newRounds   []game.NewRoundRequest
	disconnects []string
}

func (s *engineSpy) FindGame(_ context.Context, req game.FindGameRequest) {
	s.finds = append(s.finds, req)
}

func (s *engineSpy) SubmitSolution(_ context.Context, req game.SubmitSolutionRequest) {
	s.submits = append(s.submits, req)
}

func (s *engineSpy) RequestNewRound(_ context.Context, req game.NewRoundRequest) {
	s.newRounds = append(s.newRounds, req)
}

func (s *engineSpy) Disconnect(_ context.Context, participantID string) {
	s.disconnects = append(s.disconnects, participantID)
}

func (s *engineSpy) untouched() bool {
	return len(s.finds) == 0 && len(s.submits) == 0 && len(s.newRounds) == 0 && len(s.disconnects) == 0
}
