// internal/bot/bot.go
//
// Command dispatcher between chat text and the game engine.
// Responsibilities:
//   - Parse inbound text into commands (/new, /join, /solo, ...) or guesses.
//   - Call the matching engine operation.
//   - Turn engine errors into chat replies; some are deliberately silent.
//
// Replies go out through the same Transport the engine writes to, so a room
// sees one ordered stream of messages.

package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordseek/internal/game"
	"github.com/robalobadob/wordseek/internal/scoreboard"
)

// DefaultLeaderboardSize is used by /leaderboard without an argument.
const DefaultLeaderboardSize = 10

// Engine is the subset of *game.Engine the dispatcher drives.
type Engine interface {
	NewGame(ctx context.Context, room string) error
	Join(ctx context.Context, room string, player game.PlayerID, name string) error
	Solo(ctx context.Context, room string, player game.PlayerID, name string) error
	Guess(ctx context.Context, room string, player game.PlayerID, text string) (*game.GuessResult, error)
	Leaderboard(n int) []scoreboard.Entry
	Snapshot(room string) (game.View, bool)
	SoloSnapshot(room string, player game.PlayerID) (game.SoloView, bool)
}

// Inbound is one chat message from a player.
type Inbound struct {
	Room     string
	PlayerID string
	Name     string
	Text     string
}

// Bot dispatches inbound text.
type Bot struct {
	eng        Engine
	out        game.Transport
	username   string // commands addressed to another @username are ignored
	wordLength int
}

// Option customizes a Bot.
type Option func(*Bot)

// WithUsername sets the name used in "/cmd@username" addressing.
func WithUsername(name string) Option {
	return func(b *Bot) { b.username = strings.TrimPrefix(name, "@") }
}

// WithWordLength sets the length quoted in validation replies.
func WithWordLength(n int) Option {
	return func(b *Bot) { b.wordLength = n }
}

// New creates a dispatcher over eng that replies through out.
func New(eng Engine, out game.Transport, opts ...Option) *Bot {
	b := &Bot{eng: eng, out: out, wordLength: 5}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Handle processes one inbound message. Returned errors are unexpected
// failures; everything a player caused is answered in the room instead.
func (b *Bot) Handle(ctx context.Context, in Inbound) error {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil
	}
	player := game.PlayerID(in.PlayerID)

	cmd, args, ok := b.parse(text)
	if !ok {
		return b.guess(ctx, in, player, text, false)
	}

	log.Debug().Str("room", in.Room).Str("player", in.PlayerID).Str("command", cmd).Msg("command received")
	switch cmd {
	case "start", "dev":
		return b.reply(ctx, in.Room, welcomeMsg, true)
	case "help":
		return b.reply(ctx, in.Room, helpMsg, true)
	case "new":
		return b.handle(ctx, in, b.eng.NewGame(ctx, in.Room))
	case "join":
		return b.handle(ctx, in, b.eng.Join(ctx, in.Room, player, in.Name))
	case "solo":
		return b.handle(ctx, in, b.eng.Solo(ctx, in.Room, player, in.Name))
	case "leaderboard":
		n := DefaultLeaderboardSize
		if len(args) > 0 {
			if v, err := strconv.Atoi(args[0]); err == nil && v > 0 {
				n = v
			}
		}
		return b.reply(ctx, in.Room, renderLeaderboard(b.eng.Leaderboard(n)), true)
	case "status":
		return b.reply(ctx, in.Room, b.status(in.Room, player), true)
	case "guess":
		if len(args) == 0 {
			return b.reply(ctx, in.Room, "Usage: /guess WORD", false)
		}
		return b.guess(ctx, in, player, args[0], true)
	default:
		return nil
	}
}

// parse splits "/cmd@user arg..." into its parts. ok is false for plain
// text and for commands addressed to another bot.
func (b *Bot) parse(text string) (cmd string, args []string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", nil, false
	}
	fields := strings.Fields(text)
	cmd = strings.ToLower(strings.TrimPrefix(fields[0], "/"))
	if at := strings.IndexByte(cmd, '@'); at >= 0 {
		if b.username != "" && !strings.EqualFold(cmd[at+1:], b.username) {
			return "", nil, false
		}
		cmd = cmd[:at]
	}
	if cmd == "" {
		return "", nil, false
	}
	return cmd, fields[1:], true
}

func (b *Bot) guess(ctx context.Context, in Inbound, player game.PlayerID, text string, explicit bool) error {
	if !explicit && strings.HasPrefix(text, "/") {
		return nil
	}
	_, err := b.eng.Guess(ctx, in.Room, player, text)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, game.ErrNoSession), errors.Is(err, game.ErrNotYourTurn):
		if !explicit {
			return nil
		}
	}
	if game.IsUserInput(err) {
		return b.reply(ctx, in.Room, b.inputReply(err, text), true)
	}
	return b.handle(ctx, in, err)
}

// handle answers the outcome of a session command.
func (b *Bot) handle(ctx context.Context, in Inbound, err error) error {
	if err == nil {
		return nil
	}
	var msg string
	switch {
	case errors.Is(err, game.ErrGameRunning):
		msg = "A game is already running here!"
	case errors.Is(err, game.ErrNoJoinableGame):
		msg = "No joinable game! Use /new"
	case errors.Is(err, game.ErrAlreadyJoined):
		msg = "Already joined!"
	case errors.Is(err, game.ErrSoloRunning):
		msg = "Solo game already running here!"
	case errors.Is(err, game.ErrNoSession):
		msg = "No game in progress. Use /new or /solo"
	case errors.Is(err, game.ErrNotYourTurn):
		msg = "It's not your turn!"
	case errors.Is(err, game.ErrCatalogUnavailable):
		// The engine has already told the room.
		return nil
	default:
		log.Error().Err(err).Str("room", in.Room).Str("player", in.PlayerID).Msg("command failed")
		return err
	}
	return b.reply(ctx, in.Room, msg, false)
}

func (b *Bot) inputReply(err error, text string) string {
	word := strings.ToUpper(strings.TrimSpace(text))
	switch {
	case errors.Is(err, game.ErrNotInCatalog):
		return fmt.Sprintf("❌ <b>%s</b> is not a valid word", html.EscapeString(word))
	case errors.Is(err, game.ErrAlreadyGuessed):
		return "Someone has already guessed your word. Please try another one!"
	default:
		return fmt.Sprintf("❌ Word must be exactly %d letters", b.wordLength)
	}
}

func (b *Bot) status(room string, player game.PlayerID) string {
	var lines []string
	if v, ok := b.eng.Snapshot(room); ok {
		switch v.State {
		case game.StateJoining:
			lines = append(lines, fmt.Sprintf("🟢 Joining: %d player(s), %d sec left to /join",
				len(v.Players), int(v.Remaining.Seconds())))
		case game.StateActive:
			lines = append(lines, fmt.Sprintf("🎯 Round %d: %s to guess, %d sec left (%d players)",
				v.Round, bold(v.Names[v.Current]), int(v.Remaining.Seconds()), len(v.Players)))
		}
	}
	if v, ok := b.eng.SoloSnapshot(room, player); ok {
		lines = append(lines, fmt.Sprintf("🧩 Solo round %d, %d sec left", v.Round, int(v.Remaining.Seconds())))
		if len(v.Trail) > 0 {
			lines = append(lines, game.RenderTrail(v.Trail))
		}
	}
	if len(lines) == 0 {
		return "No game in progress. Use /new or /solo"
	}
	return strings.Join(lines, "\n")
}

func (b *Bot) reply(ctx context.Context, room, text string, htmlMode bool) error {
	err := b.out.Send(ctx, game.Message{Room: room, Text: text, Options: game.Options{HTML: htmlMode}})
	if err != nil {
		log.Warn().Err(err).Str("room", room).Msg("send reply")
	}
	return nil
}
