package game

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordseek/internal/events"
	"github.com/robalobadob/wordseek/internal/feedback"
	"github.com/robalobadob/wordseek/internal/store"
)

// Solo starts a single-player game for player in room.
func (e *Engine) Solo(ctx context.Context, room string, player PlayerID, name string) error {
	key := SoloKey{Room: room, Player: player}
	s := &Solo{Room: room, Player: player, Name: name, Active: true, Round: 1}
	if err := e.solos.Create(key, s); err != nil {
		if errors.Is(err, store.ErrExists) {
			return ErrSoloRunning
		}
		return err
	}

	return e.solos.WithLock(key, func(s *Solo) error {
		if err := e.enterSoloRound(ctx, s); err != nil {
			return err
		}
		log.Info().Str("room", room).Str("player", string(player)).Msg("solo game started")
		e.send(ctx, room, fmt.Sprintf(msgSoloStarted, e.cfg.WordLength, seconds(e.cfg.TimeForRound(1))),
			Options{Mention: player})
		ev := e.event(events.SoloStarted, room)
		ev.PlayerID, ev.Name = string(player), name
		e.publish(ev)
		return nil
	})
}

// enterSoloRound picks a new word, clears the trail and re-arms the clock.
// Must be called under the solo session lock.
func (e *Engine) enterSoloRound(ctx context.Context, s *Solo) error {
	word, err := e.catalog.PickRandom()
	if err != nil {
		log.Error().Err(err).Str("room", s.Room).Str("player", string(s.Player)).Msg("pick word for solo round")
		e.send(ctx, s.Room, msgCatalog, Options{Mention: s.Player})
		e.finishSolo(s)
		return fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}

	stop(s.stopClock)
	s.Target = strings.ToUpper(word)
	s.Trail = nil
	s.Epoch = e.nextEpoch()

	key, epoch := SoloKey{Room: s.Room, Player: s.Player}, s.Epoch
	budget := e.cfg.TimeForRound(s.Round)
	s.Deadline = e.clock.Now().Add(budget)
	s.stopClock = e.armClock(budget, e.cfg.WarnAt,
		func() { e.warnSolo(key, epoch) },
		func() { e.expireSolo(key, epoch) },
	)
	return nil
}

func (e *Engine) warnSolo(key SoloKey, epoch uint64) {
	_ = e.solos.WithLock(key, func(s *Solo) error {
		if s.Active && s.Epoch == epoch {
			e.send(e.ctx, s.Room, fmt.Sprintf(msgWarning, seconds(e.cfg.WarnAt)), Options{Mention: s.Player})
		}
		return nil
	})
}

// expireSolo ends a solo game whose clock ran out under epoch.
func (e *Engine) expireSolo(key SoloKey, epoch uint64) {
	_ = e.solos.WithLock(key, func(s *Solo) error {
		if !s.Active || s.Epoch != epoch {
			return nil
		}
		log.Info().Str("room", s.Room).Str("player", string(s.Player)).Int("round", s.Round).Msg("solo game lost on time")
		e.send(e.ctx, s.Room, fmt.Sprintf(msgSoloLost, bold(s.Name), bold(s.Target)), Options{HTML: true, Mention: s.Player})
		ev := e.event(events.SoloLost, s.Room)
		ev.PlayerID, ev.Name, ev.Word, ev.Round = string(s.Player), s.Name, s.Target, s.Round
		e.publish(ev)
		e.finishSolo(s)
		return nil
	})
}

// guessSolo applies a guess to key's solo game.
func (e *Engine) guessSolo(ctx context.Context, key SoloKey, text string) (*GuessResult, error) {
	var res *GuessResult
	err := e.solos.WithLock(key, func(s *Solo) error {
		if !s.Active || s.Target == "" {
			return ErrNoSession
		}
		word, err := e.validate(text, s.Trail)
		if err != nil {
			return err
		}

		marks := feedback.Score(word, s.Target)
		s.Trail = append(s.Trail, Attempt{Word: word, Marks: marks})
		s.Epoch = e.nextEpoch()
		stop(s.stopClock)
		e.send(ctx, s.Room, RenderTrail(s.Trail), Options{HTML: true, Mention: s.Player})

		res = &GuessResult{Solo: true, Word: word, Marks: marks, Trail: slices.Clone(s.Trail), Round: s.Round}
		if word == s.Target {
			res.Won = true
			total := e.board.RecordWin(string(s.Player), s.Name)
			log.Info().Str("room", s.Room).Str("player", string(s.Player)).Int("round", s.Round).Int("wins", total).Msg("solo game won")
			e.send(ctx, s.Room, fmt.Sprintf(msgCongrats, bold(s.Name), total), Options{HTML: true, Mention: s.Player})
			e.enrich(s.Room, s.Target)
			ev := e.event(events.SoloWon, s.Room)
			ev.PlayerID, ev.Name, ev.Word, ev.Round = string(s.Player), s.Name, s.Target, s.Round
			e.publish(ev)
			e.finishSolo(s)
			return nil
		}

		s.Round++
		if err := e.enterSoloRound(ctx, s); err != nil {
			return err
		}
		e.send(ctx, s.Room, fmt.Sprintf(msgSoloNextRound, s.Round, seconds(e.cfg.TimeForRound(s.Round))), Options{Mention: s.Player})
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoSession
	}
	return res, err
}

func (e *Engine) finishSolo(s *Solo) {
	s.Active = false
	s.Epoch = e.nextEpoch()
	stop(s.stopClock)
	s.stopClock = nil
	e.solos.Remove(SoloKey{Room: s.Room, Player: s.Player})
}

// SoloView is a read-only copy of a solo session.
type SoloView struct {
	Room      string        `json:"room"`
	Player    PlayerID      `json:"player"`
	Round     int           `json:"round"`
	Trail     []Attempt     `json:"trail"`
	Deadline  time.Time     `json:"deadline"`
	Remaining time.Duration `json:"remaining"`
}

// SoloSnapshot returns a copy of player's solo session in room.
func (e *Engine) SoloSnapshot(room string, player PlayerID) (SoloView, bool) {
	var v SoloView
	err := e.solos.WithLock(SoloKey{Room: room, Player: player}, func(s *Solo) error {
		v = SoloView{
			Room:     s.Room,
			Player:   s.Player,
			Round:    s.Round,
			Trail:    slices.Clone(s.Trail),
			Deadline: s.Deadline,
		}
		if rem := s.Deadline.Sub(e.clock.Now()); rem > 0 {
			v.Remaining = rem
		}
		return nil
	})
	return v, err == nil
}
