// internal/game/types.go
//
// Core type definitions for the session engine.
// Defines:
//   - Multiplayer and Solo: per-room and per-room+player session state.
//   - Attempt: one scored guess in a trail.
//   - The collaborator interfaces the engine consumes (catalog, transport,
//     scoreboard, definitions, events).

package game

import (
	"context"
	"time"

	"github.com/robalobadob/wordseek/internal/events"
	"github.com/robalobadob/wordseek/internal/feedback"
	"github.com/robalobadob/wordseek/internal/scoreboard"
)

// PlayerID identifies a player across rooms.
type PlayerID string

// State is the lifecycle phase of a multiplayer session.
type State string

const (
	StateJoining  State = "joining"
	StateActive   State = "active"
	StateFinished State = "finished"
)

// Attempt is one accepted guess and its feedback.
type Attempt struct {
	Word  string          `json:"word"`
	Marks []feedback.Mark `json:"marks"`
}

// Multiplayer holds the state of one room's competitive game.
// All fields are guarded by the session store's per-entry lock.
type Multiplayer struct {
	Room      string
	State     State
	Epoch     uint64              // bumped on every transition; stale clocks compare against it
	Players   []PlayerID          // turn order, shuffled once at start
	Names     map[PlayerID]string // display names
	TurnIndex int
	Round     int
	Target    string
	Trail     []Attempt
	Deadline  time.Time

	stopClock context.CancelFunc
}

// SoloKey identifies a solo session.
type SoloKey struct {
	Room   string
	Player PlayerID
}

// Solo holds one player's single-participant game in a room.
type Solo struct {
	Room     string
	Player   PlayerID
	Name     string
	Active   bool
	Epoch    uint64
	Round    int
	Target   string
	Trail    []Attempt
	Deadline time.Time

	stopClock context.CancelFunc
}

// Options carries transport hints alongside outbound text.
type Options struct {
	HTML    bool     `json:"html,omitempty"`
	Mention PlayerID `json:"mention,omitempty"` // player addressed by the message
}

// Message is one outbound chat message.
type Message struct {
	Room    string  `json:"room"`
	Text    string  `json:"text"`
	Options Options `json:"options"`
}

// Catalog supplies the fixed-length vocabulary.
type Catalog interface {
	Contains(word string) bool
	PickRandom() (string, error)
}

// Transport delivers outbound messages. Send must not block for long:
// the engine calls it while holding a session lock.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// Scoreboard is the process-wide win tally.
type Scoreboard interface {
	RecordWin(playerID, name string) int
	Top(n int) []scoreboard.Entry
}

// Definer looks up a word's meaning for post-win enrichment.
type Definer interface {
	Lookup(ctx context.Context, word string) (string, error)
}

// Publisher receives game events. Publish must not block.
type Publisher interface {
	Publish(ev events.Event)
}
