// Package api is the websocket gateway: it upgrades connections, decodes
// the incoming event envelopes, dispatches them to the game engine and
// routes the engine's notifications back to the right participants.
//
// Wire format in both directions is {"event": <name>, "data": <object>}.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/victornm/duel24/internal/errors"
	"github.com/victornm/duel24/internal/event"
	"github.com/victornm/duel24/internal/game"
	"github.com/victornm/duel24/internal/leaderboard"
	"github.com/victornm/duel24/internal/stats"
)

// Incoming event names, the closed set a client may send.
const (
	EventFindGame       = "findGame"
	EventSubmitSolution = "submitSolution"
	EventRequestNewGame = "requestNewGame"
)

// Outgoing event names.
const (
	EventWaiting            = "waiting"
	EventGameFound          = "gameFound"
	EventGameWon            = "gameWon"
	EventInvalidSolution    = "invalidSolution"
	EventNewGame            = "newGame"
	EventPlayerDisconnected = "playerDisconnected"
	EventMatchFailed        = "matchFailed"
)

// Envelope frames every message on the wire.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Notification is an outgoing envelope before marshalling.
type Notification struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// GameEngine is the part of the game service the gateway drives. Narrowed to
// an interface so dispatch is unit-testable without a live transport.
type GameEngine interface {
	FindGame(ctx context.Context, req game.FindGameRequest)
	SubmitSolution(ctx context.Context, req game.SubmitSolutionRequest)
	RequestNewRound(ctx context.Context, req game.NewRoundRequest)
	Disconnect(ctx context.Context, participantID string)
}

type Config struct {
	Router      *gin.Engine
	EventBus    *event.Bus
	Game        GameEngine
	Leaderboard *leaderboard.Service
	Stats       *stats.Service
}

type API struct {
	game GameEngine
	ls   *leaderboard.Service
	ss   *stats.Service

	mu      sync.RWMutex
	clients map[string]*client
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func New(c Config) *API {
	a := &API{
		game:    c.Game,
		ls:      c.Leaderboard,
		ss:      c.Stats,
		clients: make(map[string]*client),
	}

	if c.Router != nil {
		c.Router.GET("/ws", a.handleWS)
		c.Router.GET("/healthz", a.handleHealth)
		c.Router.GET("/leaderboard", a.handleLeaderboard)
		c.Router.GET("/players/:name", a.handleProfile)
	}

	a.subscribe(c.EventBus)

	return a
}

func (a *API) handleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "api: websocket upgrade failed", "error", err)
		return
	}

	connID := uuid.New().String()
	cl := newClient(connID, conn)

	a.register(cl)
	go cl.writePump()

	slog.InfoContext(c.Request.Context(), "api: participant connected", "conn_id", connID)

	a.readLoop(c.Request.Context(), cl)

	a.deregister(connID)
	a.game.Disconnect(context.WithoutCancel(c.Request.Context()), connID)

	slog.InfoContext(c.Request.Context(), "api: participant disconnected", "conn_id", connID)
}

func (a *API) readLoop(ctx context.Context, cl *client) {
	for {
		var env Envelope
		if err := cl.conn.ReadJSON(&env); err != nil {
			return
		}

		if err := a.Dispatch(ctx, cl.id, env); err != nil {
			slog.InfoContext(ctx, "api: dropping message",
				"conn_id", cl.id,
				"event", env.Event,
				"error", err,
			)
		}
	}
}

// Dispatch routes one incoming envelope to the engine operation it names.
// Unknown events and undecodable payloads are reported to the caller, which
// logs and drops them; they never reach the engine.
func (a *API) Dispatch(ctx context.Context, connID string, env Envelope) error {
	switch env.Event {
	case EventFindGame:
		var data struct {
			Name string `json:"name"`
		}
		if err := unmarshal(env.Data, &data); err != nil {
			return err
		}

		a.game.FindGame(ctx, game.FindGameRequest{
			ParticipantID: connID,
			Name:          data.Name,
		})
		return nil

	case EventSubmitSolution:
		var data struct {
			SessionID  string `json:"session_id"`
			Expression string `json:"expression"`
		}
		if err := unmarshal(env.Data, &data); err != nil {
			return err
		}

		a.game.SubmitSolution(ctx, game.SubmitSolutionRequest{
			ParticipantID: connID,
			GameID:        data.SessionID,
			Expression:    data.Expression,
		})
		return nil

	case EventRequestNewGame:
		var data struct {
			SessionID string `json:"session_id"`
		}
		if err := unmarshal(env.Data, &data); err != nil {
			return err
		}

		a.game.RequestNewRound(ctx, game.NewRoundRequest{
			ParticipantID: connID,
			GameID:        data.SessionID,
		})
		return nil
	}

	return errors.New(errors.CodeInvalidArgument,
		errors.WithMessagef("unknown event %q", env.Event))
}

func unmarshal(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("missing event payload"))
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("malformed event payload"),
			errors.WithCause(err))
	}

	return nil
}

func (a *API) register(cl *client) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.clients[cl.id] = cl
}

func (a *API) deregister(connID string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if cl, ok := a.clients[connID]; ok {
		delete(a.clients, connID)
		close(cl.send)
	}
}

func (a *API) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (a *API) handleLeaderboard(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "10"), 10, 64)

	l, err := a.ls.GetLeaderboard(c.Request.Context(), leaderboard.GetLeaderboardRequest{
		Limit: limit,
	})
	if err != nil {
		e := errors.Convert(err)
		c.JSON(e.HTTPStatusCode(), gin.H{"error": e.Message})
		return
	}

	entries := make([]gin.H, 0, len(l.Entries))
	for _, en := range l.Entries {
		entries = append(entries, gin.H{
			"username": en.Username,
			"best_ms":  en.BestMs,
		})
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (a *API) handleProfile(c *gin.Context) {
	resp, err := a.ss.GetProfile(c.Request.Context(), stats.GetProfileRequest{
		Username: c.Param("name"),
	})
	if err != nil {
		e := errors.Convert(err)
		c.JSON(e.HTTPStatusCode(), gin.H{"error": e.Message})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"username": resp.Profile.Username,
		"wins":     resp.Profile.Wins,
		"losses":   resp.Profile.Losses,
		"best_ms":  resp.Profile.BestTime.Milliseconds(),
		"win_rate": resp.WinRate.InexactFloat64(),
	})
}
