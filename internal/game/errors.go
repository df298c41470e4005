package game

import "errors"

// ErrUserInput is wrapped by every guess validation error. Rejected input
// never mutates state or consumes a turn.
var ErrUserInput = errors.New("invalid guess")

var (
	ErrWrongLength    = userInput("wrong length")
	ErrNotAlphabetic  = userInput("not alphabetic")
	ErrNotInCatalog   = userInput("not in word list")
	ErrAlreadyGuessed = userInput("already guessed this round")
)

// Session conflicts and absences.
var (
	ErrGameRunning    = errors.New("a game is already running in this room")
	ErrSoloRunning    = errors.New("a solo game is already running for this player")
	ErrNoJoinableGame = errors.New("no joinable game")
	ErrAlreadyJoined  = errors.New("already joined")
	ErrNoSession      = errors.New("no game in progress")
	ErrNotYourTurn    = errors.New("not your turn")
)

// ErrCatalogUnavailable aborts session creation or a turn advance.
var ErrCatalogUnavailable = errors.New("word catalog unavailable")

type inputError struct{ msg string }

func userInput(msg string) error { return &inputError{msg: msg} }

func (e *inputError) Error() string        { return e.msg }
func (e *inputError) Is(target error) bool { return target == ErrUserInput }

// IsUserInput reports whether err is a guess validation failure.
func IsUserInput(err error) bool { return errors.Is(err, ErrUserInput) }
