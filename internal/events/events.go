// Package events carries game outcome notifications from the engine to
// out-of-process consumers (JetStream) and the win ledger.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type names a game event. It is also the last token of the NATS subject.
type Type string

const (
	GameStarted      Type = "game.started"
	GameCancelled    Type = "game.cancelled"
	PlayerEliminated Type = "player.eliminated"
	GameWon          Type = "game.won"
	GameAbandoned    Type = "game.abandoned"
	SoloStarted      Type = "solo.started"
	SoloWon          Type = "solo.won"
	SoloLost         Type = "solo.lost"
)

// Event is a single game outcome notification.
type Event struct {
	ID       uuid.UUID `json:"id"`
	Type     Type      `json:"type"`
	Room     string    `json:"room"`
	PlayerID string    `json:"playerId,omitempty"`
	Name     string    `json:"name,omitempty"`
	Word     string    `json:"word,omitempty"`
	Round    int       `json:"round,omitempty"`
	Players  int       `json:"players,omitempty"`
	At       time.Time `json:"at"`
}

// New returns an event of type t for room, stamped with at.
func New(t Type, room string, at time.Time) Event {
	return Event{ID: uuid.New(), Type: t, Room: room, At: at.UTC()}
}

// IsWin reports whether the event records a win.
func (e Event) IsWin() bool { return e.Type == GameWon || e.Type == SoloWon }

// Sink receives events from the Dispatcher worker.
type Sink interface {
	Publish(ctx context.Context, ev Event) error
}
