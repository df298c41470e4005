// internal/game/engine.go
//
// Session engine for multiplayer word-guessing games.
// Responsibilities:
//   - Own the session stores (multiplayer by room, solo by room+player).
//   - Run the Joining → Active → Finished state machine.
//   - Rotate turns under a decaying time budget and eliminate on timeout.
//   - Validate and score guesses, award wins on the scoreboard.
//
// Concurrency:
//   - Every mutation of a session runs inside store.WithLock for that
//     session; locks are per session, never global.
//   - Each transition bumps Epoch. Clock callbacks capture the epoch they
//     were armed under and do nothing if it no longer matches.
//   - Outbound sends and event publishing made under a lock must not block.

package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordseek/internal/events"
	"github.com/robalobadob/wordseek/internal/feedback"
	"github.com/robalobadob/wordseek/internal/scoreboard"
	"github.com/robalobadob/wordseek/internal/store"
)

// Engine runs all game sessions of the process.
type Engine struct {
	cfg     Config
	catalog Catalog
	out     Transport
	board   Scoreboard
	clock   clockwork.Clock
	definer Definer
	pub     Publisher
	shuffle func([]PlayerID)

	rooms  *store.Store[string, Multiplayer]
	solos  *store.Store[SoloKey, Solo]
	epochs atomic.Uint64 // source of session epochs, unique across sessions

	ctx    context.Context
	cancel context.CancelFunc
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock replaces the real clock (tests use clockwork.NewFakeClock).
func WithClock(c clockwork.Clock) Option { return func(e *Engine) { e.clock = c } }

// WithDefiner enables post-win definition lookups.
func WithDefiner(d Definer) Option { return func(e *Engine) { e.definer = d } }

// WithPublisher sends game events to p.
func WithPublisher(p Publisher) Option { return func(e *Engine) { e.pub = p } }

// WithShuffle replaces the turn-order shuffle applied when a game starts.
func WithShuffle(fn func([]PlayerID)) Option { return func(e *Engine) { e.shuffle = fn } }

// NewEngine wires an engine. Zero-valued Config fields take defaults.
func NewEngine(cfg Config, catalog Catalog, out Transport, board Scoreboard, opts ...Option) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		cfg:     cfg.withDefaults(),
		catalog: catalog,
		out:     out,
		board:   board,
		clock:   clockwork.NewRealClock(),
		shuffle: func(p []PlayerID) {
			rand.Shuffle(len(p), func(i, j int) { p[i], p[j] = p[j], p[i] })
		},
		rooms:  store.New[string, Multiplayer](),
		solos:  store.New[SoloKey, Solo](),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Close stops every armed clock. Sessions are left as they are.
func (e *Engine) Close() { e.cancel() }

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// ActiveGames returns the number of live multiplayer and solo sessions.
func (e *Engine) ActiveGames() (multiplayer, solo int) {
	return e.rooms.Len(), e.solos.Len()
}

// Leaderboard returns the top n players by wins.
func (e *Engine) Leaderboard(n int) []scoreboard.Entry {
	return e.board.Top(n)
}

// ----------------------------- multiplayer ---------------------------------

// NewGame opens a join window in room.
func (e *Engine) NewGame(ctx context.Context, room string) error {
	s := &Multiplayer{Room: room, State: StateJoining, Names: make(map[PlayerID]string)}
	if err := e.rooms.Create(room, s); err != nil {
		if errors.Is(err, store.ErrExists) {
			return ErrGameRunning
		}
		return err
	}

	return e.rooms.WithLock(room, func(s *Multiplayer) error {
		s.Epoch = e.nextEpoch()
		epoch := s.Epoch
		s.Deadline = e.clock.Now().Add(e.cfg.JoinWindow)
		s.stopClock = e.armClock(e.cfg.JoinWindow, 0, nil, func() { e.closeJoin(room, epoch) })

		log.Info().Str("room", room).Dur("window", e.cfg.JoinWindow).Msg("join window opened")
		e.send(ctx, room, fmt.Sprintf(msgCompetition, window(e.cfg.JoinWindow), e.cfg.MinPlayers), Options{})
		return nil
	})
}

// Join adds player to room's joining game.
func (e *Engine) Join(ctx context.Context, room string, player PlayerID, name string) error {
	err := e.rooms.WithLock(room, func(s *Multiplayer) error {
		if s.State != StateJoining {
			return ErrNoJoinableGame
		}
		if slices.Contains(s.Players, player) {
			return ErrAlreadyJoined
		}
		s.Players = append(s.Players, player)
		s.Names[player] = name

		log.Debug().Str("room", room).Str("player", string(player)).Int("players", len(s.Players)).Msg("player joined")
		e.send(ctx, room, fmt.Sprintf(msgJoined, bold(name)), Options{HTML: true, Mention: player})
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return ErrNoJoinableGame
	}
	return err
}

// closeJoin ends the join window armed under epoch.
func (e *Engine) closeJoin(room string, epoch uint64) {
	ctx := e.ctx
	_ = e.rooms.WithLock(room, func(s *Multiplayer) error {
		if s.Epoch != epoch || s.State != StateJoining {
			return nil
		}
		s.Epoch = e.nextEpoch()

		if len(s.Players) < e.cfg.MinPlayers {
			log.Info().Str("room", room).Int("players", len(s.Players)).Msg("join window closed without enough players")
			e.send(ctx, room, fmt.Sprintf(msgJoinCancelled, e.cfg.MinPlayers), Options{})
			ev := e.event(events.GameCancelled, room)
			ev.Players = len(s.Players)
			e.publish(ev)
			e.finish(s)
			return nil
		}

		e.shuffle(s.Players)
		s.State = StateActive
		s.TurnIndex = 0
		s.Round = 1

		log.Info().Str("room", room).Int("players", len(s.Players)).Msg("game started")
		e.send(ctx, room, fmt.Sprintf(msgGameStarted, len(s.Players), renderRoster(s.Players, s.Names)), Options{HTML: true})
		ev := e.event(events.GameStarted, room)
		ev.Players = len(s.Players)
		e.publish(ev)

		_ = e.enterTurn(ctx, s)
		return nil
	})
}

// enterTurn picks a fresh word for the current player and arms the clock.
// A session with one player left is won by that player; with none it is
// discarded. Must be called under the session lock.
func (e *Engine) enterTurn(ctx context.Context, s *Multiplayer) error {
	switch len(s.Players) {
	case 0:
		e.abandon(ctx, s)
		return nil
	case 1:
		e.declareWinner(ctx, s, s.Players[0], true)
		return nil
	}

	word, err := e.catalog.PickRandom()
	if err != nil {
		log.Error().Err(err).Str("room", s.Room).Int("round", s.Round).Msg("pick word for turn")
		e.send(ctx, s.Room, msgCatalog, Options{})
		ev := e.event(events.GameAbandoned, s.Room)
		ev.Round = s.Round
		e.publish(ev)
		e.finish(s)
		return fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}

	stop(s.stopClock)
	s.Target = strings.ToUpper(word)
	s.Trail = nil
	s.Epoch = e.nextEpoch()

	room, epoch := s.Room, s.Epoch
	budget := e.cfg.TimeForRound(s.Round)
	s.Deadline = e.clock.Now().Add(budget)
	s.stopClock = e.armClock(budget, e.cfg.WarnAt,
		func() { e.warnTurn(room, epoch) },
		func() { e.expireTurn(room, epoch) },
	)

	current := s.Players[s.TurnIndex]
	log.Debug().
		Str("room", room).
		Str("player", string(current)).
		Int("round", s.Round).
		Uint64("epoch", epoch).
		Dur("budget", budget).
		Msg("turn started")
	e.send(ctx, room, fmt.Sprintf(msgYourTurn, bold(s.Names[current]), e.cfg.WordLength, seconds(budget)),
		Options{HTML: true, Mention: current})
	return nil
}

func (e *Engine) warnTurn(room string, epoch uint64) {
	_ = e.rooms.WithLock(room, func(s *Multiplayer) error {
		if s.State == StateActive && s.Epoch == epoch {
			e.send(e.ctx, room, fmt.Sprintf(msgWarning, seconds(e.cfg.WarnAt)), Options{Mention: s.Players[s.TurnIndex]})
		}
		return nil
	})
}

// expireTurn eliminates the turn-holder whose clock ran out under epoch.
func (e *Engine) expireTurn(room string, epoch uint64) {
	ctx := e.ctx
	_ = e.rooms.WithLock(room, func(s *Multiplayer) error {
		if s.State != StateActive || s.Epoch != epoch {
			log.Debug().Str("room", room).Uint64("epoch", epoch).Msg("stale turn clock ignored")
			return nil
		}

		out := s.Players[s.TurnIndex]
		log.Info().Str("room", room).Str("player", string(out)).Int("round", s.Round).Msg("player timed out")
		e.send(ctx, room, fmt.Sprintf(msgTimeout, bold(s.Names[out])), Options{HTML: true, Mention: out})
		ev := e.event(events.PlayerEliminated, room)
		ev.PlayerID, ev.Name, ev.Round = string(out), s.Names[out], s.Round
		e.publish(ev)

		s.Players = slices.Delete(s.Players, s.TurnIndex, s.TurnIndex+1)
		if s.TurnIndex >= len(s.Players) {
			s.TurnIndex = 0
		}
		s.Round++
		s.Epoch = e.nextEpoch()

		_ = e.enterTurn(ctx, s)
		return nil
	})
}

// GuessResult describes an accepted guess.
type GuessResult struct {
	Solo  bool            `json:"solo"`
	Word  string          `json:"word"`
	Marks []feedback.Mark `json:"marks"`
	Trail []Attempt       `json:"trail"`
	Round int             `json:"round"`
	Won   bool            `json:"won"`
}

// Guess routes player's text to the multiplayer game of room when it is
// their turn, otherwise to their solo game in room.
//
// Returns ErrNotYourTurn when a multiplayer game is running and the player
// is not the turn-holder (and has no solo game), ErrNoSession when no game
// accepts the guess, or a user-input error for rejected words.
func (e *Engine) Guess(ctx context.Context, room string, player PlayerID, text string) (*GuessResult, error) {
	var (
		res     *GuessResult
		routed  bool
		offTurn bool
	)
	err := e.rooms.WithLock(room, func(s *Multiplayer) error {
		if s.State != StateActive || len(s.Players) == 0 {
			return nil
		}
		if s.Players[s.TurnIndex] != player {
			offTurn = true
			return nil
		}
		routed = true
		var err error
		res, err = e.resolveGuess(ctx, s, player, text)
		return err
	})
	if routed {
		return res, err
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	res, err = e.guessSolo(ctx, SoloKey{Room: room, Player: player}, text)
	if errors.Is(err, ErrNoSession) && offTurn {
		return nil, ErrNotYourTurn
	}
	return res, err
}

// resolveGuess applies the turn-holder's guess. Must be called under lock.
func (e *Engine) resolveGuess(ctx context.Context, s *Multiplayer, player PlayerID, text string) (*GuessResult, error) {
	word, err := e.validate(text, s.Trail)
	if err != nil {
		return nil, err
	}

	marks := feedback.Score(word, s.Target)
	s.Trail = append(s.Trail, Attempt{Word: word, Marks: marks})
	s.Epoch = e.nextEpoch()
	stop(s.stopClock)
	e.send(ctx, s.Room, RenderTrail(s.Trail), Options{HTML: true})

	res := &GuessResult{Word: word, Marks: marks, Trail: slices.Clone(s.Trail), Round: s.Round}
	if word == s.Target {
		res.Won = true
		e.declareWinner(ctx, s, player, false)
		return res, nil
	}

	s.Round++
	s.TurnIndex = (s.TurnIndex + 1) % len(s.Players)
	return res, e.enterTurn(ctx, s)
}

// declareWinner awards player and ends the session. survivor marks a win by
// elimination of every other player. Must be called under lock.
func (e *Engine) declareWinner(ctx context.Context, s *Multiplayer, player PlayerID, survivor bool) {
	name := s.Names[player]
	total := e.board.RecordWin(string(player), name)

	log.Info().
		Str("room", s.Room).
		Str("player", string(player)).
		Bool("survivor", survivor).
		Int("round", s.Round).
		Int("wins", total).
		Msg("game won")
	if survivor {
		e.send(ctx, s.Room, fmt.Sprintf(msgSurvivorWins, bold(name)), Options{HTML: true, Mention: player})
	} else {
		e.send(ctx, s.Room, fmt.Sprintf(msgCongrats, bold(name), total), Options{HTML: true, Mention: player})
		e.enrich(s.Room, s.Target)
	}

	ev := e.event(events.GameWon, s.Room)
	ev.PlayerID, ev.Name, ev.Round = string(player), name, s.Round
	if !survivor {
		ev.Word = s.Target
	}
	e.publish(ev)
	e.finish(s)
}

// abandon discards a session left without players.
func (e *Engine) abandon(ctx context.Context, s *Multiplayer) {
	log.Warn().Str("room", s.Room).Int("round", s.Round).Msg("game abandoned without a winner")
	e.send(ctx, s.Room, msgAbandoned, Options{})
	ev := e.event(events.GameAbandoned, s.Room)
	ev.Round = s.Round
	e.publish(ev)
	e.finish(s)
}

// finish marks s finished and unregisters it. Must be called under lock.
func (e *Engine) finish(s *Multiplayer) {
	s.State = StateFinished
	s.Epoch = e.nextEpoch()
	stop(s.stopClock)
	s.stopClock = nil
	e.rooms.Remove(s.Room)
}

// View is a read-only copy of a multiplayer session.
type View struct {
	Room      string              `json:"room"`
	State     State               `json:"state"`
	Epoch     uint64              `json:"epoch"`
	Players   []PlayerID          `json:"players"`
	Names     map[PlayerID]string `json:"names"`
	Current   PlayerID            `json:"current,omitempty"`
	Round     int                 `json:"round"`
	Trail     []Attempt           `json:"trail"`
	Deadline  time.Time           `json:"deadline"`
	Remaining time.Duration       `json:"remaining"`
}

// Snapshot returns a copy of room's multiplayer session. The target word
// is never exposed.
func (e *Engine) Snapshot(room string) (View, bool) {
	var v View
	err := e.rooms.WithLock(room, func(s *Multiplayer) error {
		v = View{
			Room:     s.Room,
			State:    s.State,
			Epoch:    s.Epoch,
			Players:  slices.Clone(s.Players),
			Names:    make(map[PlayerID]string, len(s.Names)),
			Round:    s.Round,
			Trail:    slices.Clone(s.Trail),
			Deadline: s.Deadline,
		}
		for k, n := range s.Names {
			v.Names[k] = n
		}
		if s.State == StateActive && len(s.Players) > 0 {
			v.Current = s.Players[s.TurnIndex]
		}
		if rem := s.Deadline.Sub(e.clock.Now()); rem > 0 {
			v.Remaining = rem
		}
		return nil
	})
	return v, err == nil
}

// -------------------------------- helpers ----------------------------------

// validate normalizes text and checks it against the catalog and trail.
func (e *Engine) validate(text string, trail []Attempt) (string, error) {
	word := strings.ToUpper(strings.TrimSpace(text))
	if len(word) != e.cfg.WordLength {
		return "", ErrWrongLength
	}
	for i := 0; i < len(word); i++ {
		if word[i] < 'A' || word[i] > 'Z' {
			return "", ErrNotAlphabetic
		}
	}
	if !e.catalog.Contains(word) {
		return "", ErrNotInCatalog
	}
	for _, a := range trail {
		if a.Word == word {
			return "", ErrAlreadyGuessed
		}
	}
	return word, nil
}

func (e *Engine) send(ctx context.Context, room, text string, opts Options) {
	if err := e.out.Send(ctx, Message{Room: room, Text: text, Options: opts}); err != nil {
		log.Warn().Err(err).Str("room", room).Msg("send message")
	}
}

// nextEpoch returns a fresh epoch. Epochs are drawn from one counter so a
// clock armed for a destroyed session can never match a newer session in
// the same room.
func (e *Engine) nextEpoch() uint64 { return e.epochs.Add(1) }

func (e *Engine) event(t events.Type, room string) events.Event {
	return events.New(t, room, e.clock.Now())
}

func (e *Engine) publish(ev events.Event) {
	if e.pub != nil {
		e.pub.Publish(ev)
	}
}

// enrich looks up word's definition in the background and posts it if found.
// It never touches session state.
func (e *Engine) enrich(room, word string) {
	if e.definer == nil || word == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(e.ctx, 10*time.Second)
		defer cancel()
		text, err := e.definer.Lookup(ctx, word)
		if err != nil {
			log.Debug().Err(err).Str("word", word).Msg("definition lookup failed")
			return
		}
		if text != "" {
			e.send(ctx, room, text, Options{HTML: true})
		}
	}()
}
