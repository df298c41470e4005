// internal/game/engine_test.go
package game

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/wordseek/internal/events"
	"github.com/robalobadob/wordseek/internal/scoreboard"
)

// fakeCatalog accepts a fixed vocabulary and hands out picks in order.
type fakeCatalog struct {
	mu    sync.Mutex
	words map[string]bool
	picks []string
	next  int
	err   error
}

func newFakeCatalog(picks ...string) *fakeCatalog {
	c := &fakeCatalog{words: map[string]bool{}, picks: picks}
	for _, w := range []string{"CRANE", "ALLOT", "LOTTO", "EERIE", "TRACE", "APPLE", "HELLO", "WORLD"} {
		c.words[w] = true
	}
	return c
}

func (c *fakeCatalog) Contains(w string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.words[strings.ToUpper(w)]
}

func (c *fakeCatalog) PickRandom() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return "", c.err
	}
	w := c.picks[c.next%len(c.picks)]
	c.next++
	return w, nil
}

func (c *fakeCatalog) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// mockTransport captures outbound messages for testing assertions.
type mockTransport struct {
	mu   sync.Mutex
	msgs []Message
}

func (m *mockTransport) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msg)
	return nil
}

func (m *mockTransport) saw(substr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.msgs {
		if strings.Contains(msg.Text, substr) {
			return true
		}
	}
	return false
}

func (m *mockTransport) count(substr string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, msg := range m.msgs {
		if strings.Contains(msg.Text, substr) {
			n++
		}
	}
	return n
}

// mockPublisher captures published events.
type mockPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *mockPublisher) Publish(ev events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *mockPublisher) find(t events.Type) *events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.events) - 1; i >= 0; i-- {
		if p.events[i].Type == t {
			ev := p.events[i]
			return &ev
		}
	}
	return nil
}

type testRig struct {
	eng     *Engine
	clock   *clockwork.FakeClock
	catalog *fakeCatalog
	out     *mockTransport
	pub     *mockPublisher
	board   *scoreboard.Board
}

// setupEngine wires an engine with a fake clock and a turn order that is
// never shuffled. picks are served in order by the catalog.
func setupEngine(t *testing.T, picks ...string) *testRig {
	t.Helper()
	if len(picks) == 0 {
		picks = []string{"CRANE"}
	}
	r := &testRig{
		clock:   clockwork.NewFakeClock(),
		catalog: newFakeCatalog(picks...),
		out:     &mockTransport{},
		pub:     &mockPublisher{},
		board:   scoreboard.New(),
	}
	r.eng = NewEngine(DefaultConfig(), r.catalog, r.out, r.board,
		WithClock(r.clock),
		WithPublisher(r.pub),
		WithShuffle(func([]PlayerID) {}),
	)
	t.Cleanup(r.eng.Close)
	return r
}

// startGame opens a game in room, joins players in order and closes the
// join window without waiting for the clock.
func (r *testRig) startGame(t *testing.T, room string, players ...PlayerID) View {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, r.eng.NewGame(ctx, room))
	for _, p := range players {
		require.NoError(t, r.eng.Join(ctx, room, p, strings.ToUpper(string(p))))
	}
	v, ok := r.eng.Snapshot(room)
	require.True(t, ok)
	r.eng.closeJoin(room, v.Epoch)

	v, ok = r.eng.Snapshot(room)
	require.True(t, ok)
	require.Equal(t, StateActive, v.State)
	return v
}

func (r *testRig) gone(room string) func() bool {
	return func() bool {
		_, ok := r.eng.Snapshot(room)
		return !ok
	}
}

func TestNewGameRejectsSecondGame(t *testing.T) {
	r := setupEngine(t)
	ctx := context.Background()

	require.NoError(t, r.eng.NewGame(ctx, "room"))
	assert.ErrorIs(t, r.eng.NewGame(ctx, "room"), ErrGameRunning)
	assert.True(t, r.out.saw("Competition starting"))

	// Other rooms are independent.
	require.NoError(t, r.eng.NewGame(ctx, "other"))
	mp, _ := r.eng.ActiveGames()
	assert.Equal(t, 2, mp)
}

func TestJoinIsIdempotent(t *testing.T) {
	r := setupEngine(t)
	ctx := context.Background()
	require.NoError(t, r.eng.NewGame(ctx, "room"))

	require.NoError(t, r.eng.Join(ctx, "room", "a", "Alice"))
	assert.ErrorIs(t, r.eng.Join(ctx, "room", "a", "Alice"), ErrAlreadyJoined)

	v, ok := r.eng.Snapshot("room")
	require.True(t, ok)
	assert.Equal(t, []PlayerID{"a"}, v.Players)
	assert.Equal(t, 1, r.out.count("joined"))
}

func TestJoinWithoutJoinableGame(t *testing.T) {
	r := setupEngine(t)
	ctx := context.Background()

	assert.ErrorIs(t, r.eng.Join(ctx, "room", "a", "A"), ErrNoJoinableGame)

	r.startGame(t, "room", "a", "b")
	assert.ErrorIs(t, r.eng.Join(ctx, "room", "c", "C"), ErrNoJoinableGame)
}

func TestJoinWindowCancelsWithTooFewPlayers(t *testing.T) {
	r := setupEngine(t)
	ctx := context.Background()
	require.NoError(t, r.eng.NewGame(ctx, "room"))
	require.NoError(t, r.eng.Join(ctx, "room", "a", "A"))

	r.clock.Advance(r.eng.Config().JoinWindow)

	require.Eventually(t, r.gone("room"), time.Second, 5*time.Millisecond)
	assert.True(t, r.out.saw("Cancelled"))
	ev := r.pub.find(events.GameCancelled)
	require.NotNil(t, ev)
	assert.Equal(t, 1, ev.Players)

	// The room is free again.
	require.NoError(t, r.eng.NewGame(ctx, "room"))
}

func TestJoinWindowStartsGame(t *testing.T) {
	r := setupEngine(t)
	ctx := context.Background()
	require.NoError(t, r.eng.NewGame(ctx, "room"))
	require.NoError(t, r.eng.Join(ctx, "room", "a", "A"))
	require.NoError(t, r.eng.Join(ctx, "room", "b", "B"))

	r.clock.Advance(r.eng.Config().JoinWindow)

	require.Eventually(t, func() bool {
		v, ok := r.eng.Snapshot("room")
		return ok && v.State == StateActive
	}, time.Second, 5*time.Millisecond)

	v, _ := r.eng.Snapshot("room")
	assert.Equal(t, PlayerID("a"), v.Current)
	assert.Equal(t, 1, v.Round)
	assert.Equal(t, 120*time.Second, v.Remaining)
	assert.True(t, r.out.saw("Game started (2 players)"))
	assert.True(t, r.out.saw("Your turn"))
	assert.NotNil(t, r.pub.find(events.GameStarted))
}

func TestTurnRotationWithTimeoutAndWin(t *testing.T) {
	r := setupEngine(t, "CRANE", "ALLOT", "HELLO")
	ctx := context.Background()
	v := r.startGame(t, "room", "a", "b", "c")
	assert.Equal(t, PlayerID("a"), v.Current)

	// a runs out of time.
	r.eng.expireTurn("room", v.Epoch)

	v, ok := r.eng.Snapshot("room")
	require.True(t, ok)
	assert.Equal(t, []PlayerID{"b", "c"}, v.Players)
	assert.Equal(t, PlayerID("b"), v.Current)
	assert.Equal(t, 2, v.Round)
	assert.Equal(t, 110*time.Second, v.Remaining)
	assert.True(t, r.out.saw("OUT (timeout)"))

	// Only the turn-holder may guess.
	_, err := r.eng.Guess(ctx, "room", "c", "ALLOT")
	assert.ErrorIs(t, err, ErrNotYourTurn)
	_, err = r.eng.Guess(ctx, "room", "a", "ALLOT")
	assert.ErrorIs(t, err, ErrNotYourTurn)

	res, err := r.eng.Guess(ctx, "room", "b", "allot")
	require.NoError(t, err)
	assert.True(t, res.Won)
	assert.Equal(t, "ALLOT", res.Word)

	assert.True(t, r.gone("room")())
	assert.Equal(t, 1, r.board.Wins("b"))
	assert.Equal(t, 0, r.board.Wins("a"))
	assert.Equal(t, 0, r.board.Wins("c"))
	assert.True(t, r.out.saw("now has 1 win(s)"))

	won := r.pub.find(events.GameWon)
	require.NotNil(t, won)
	assert.Equal(t, "b", won.PlayerID)
	assert.Equal(t, "ALLOT", won.Word)
	assert.NotNil(t, r.pub.find(events.PlayerEliminated))
}

func TestIncorrectGuessPassesTurn(t *testing.T) {
	r := setupEngine(t, "CRANE", "ALLOT")
	ctx := context.Background()
	v := r.startGame(t, "room", "a", "b")

	res, err := r.eng.Guess(ctx, "room", "a", "TRACE")
	require.NoError(t, err)
	assert.False(t, res.Won)
	assert.Len(t, res.Trail, 1)

	next, ok := r.eng.Snapshot("room")
	require.True(t, ok)
	assert.Equal(t, PlayerID("b"), next.Current)
	assert.Equal(t, 2, next.Round)
	assert.Empty(t, next.Trail)
	assert.Greater(t, next.Epoch, v.Epoch)
	assert.Equal(t, []PlayerID{"a", "b"}, next.Players)
}

func TestEliminationLeavesSurvivorAsWinner(t *testing.T) {
	r := setupEngine(t, "CRANE")
	v := r.startGame(t, "room", "a", "b")

	r.eng.expireTurn("room", v.Epoch)

	assert.True(t, r.gone("room")())
	assert.Equal(t, 1, r.board.Wins("b"))
	assert.True(t, r.out.saw("B</b> wins this game"))
	won := r.pub.find(events.GameWon)
	require.NotNil(t, won)
	assert.Empty(t, won.Word)
}

func TestStaleTimerAfterCorrectGuessIsIgnored(t *testing.T) {
	r := setupEngine(t, "CRANE")
	ctx := context.Background()
	v := r.startGame(t, "room", "a", "b")

	res, err := r.eng.Guess(ctx, "room", "a", "CRANE")
	require.NoError(t, err)
	require.True(t, res.Won)

	// The clock armed for a's turn fires late.
	r.eng.expireTurn("room", v.Epoch)
	r.eng.warnTurn("room", v.Epoch)

	assert.Equal(t, 1, r.board.Wins("a"))
	assert.Equal(t, 0, r.board.Wins("b"))
	assert.False(t, r.out.saw("OUT"))
	assert.False(t, r.out.saw("seconds left"))

	// Nor does it touch a newer session in the same room.
	nv := r.startGame(t, "room", "c", "d")
	r.eng.expireTurn("room", v.Epoch)
	after, ok := r.eng.Snapshot("room")
	require.True(t, ok)
	assert.Equal(t, nv.Players, after.Players)
	assert.Equal(t, nv.Epoch, after.Epoch)
}

func TestStaleTimerAfterIncorrectGuessIsIgnored(t *testing.T) {
	r := setupEngine(t, "CRANE", "ALLOT")
	ctx := context.Background()
	v := r.startGame(t, "room", "a", "b")

	_, err := r.eng.Guess(ctx, "room", "a", "TRACE")
	require.NoError(t, err)
	before, _ := r.eng.Snapshot("room")

	r.eng.expireTurn("room", v.Epoch)

	after, ok := r.eng.Snapshot("room")
	require.True(t, ok)
	assert.Equal(t, before.Players, after.Players)
	assert.Equal(t, before.Round, after.Round)
	assert.Equal(t, PlayerID("b"), after.Current)
}

func TestRejectedGuessesKeepTurn(t *testing.T) {
	r := setupEngine(t, "CRANE")
	ctx := context.Background()
	v := r.startGame(t, "room", "a", "b")

	for text, want := range map[string]error{
		"CRAN":   ErrWrongLength,
		"CRANES": ErrWrongLength,
		"CR4NE":  ErrNotAlphabetic,
		"ZZZZZ":  ErrNotInCatalog,
	} {
		_, err := r.eng.Guess(ctx, "room", "a", text)
		assert.ErrorIs(t, err, want, text)
		assert.True(t, IsUserInput(err), text)
	}

	after, _ := r.eng.Snapshot("room")
	assert.Equal(t, v.Epoch, after.Epoch)
	assert.Equal(t, v.Round, after.Round)
	assert.Equal(t, PlayerID("a"), after.Current)
}

func TestDuplicateGuessRejected(t *testing.T) {
	r := setupEngine(t, "CRANE")
	ctx := context.Background()
	r.startGame(t, "room", "a", "b")

	require.NoError(t, r.eng.rooms.WithLock("room", func(s *Multiplayer) error {
		s.Trail = []Attempt{{Word: "TRACE"}}
		return nil
	}))
	before, _ := r.eng.Snapshot("room")

	for i := 0; i < 2; i++ {
		_, err := r.eng.Guess(ctx, "room", "a", "trace")
		assert.ErrorIs(t, err, ErrAlreadyGuessed)
	}

	after, _ := r.eng.Snapshot("room")
	assert.Equal(t, before.Epoch, after.Epoch)
	assert.Equal(t, before.Round, after.Round)
	assert.Equal(t, PlayerID("a"), after.Current)
	assert.Len(t, after.Trail, 1)
}

func TestGuessWithoutSession(t *testing.T) {
	r := setupEngine(t)
	_, err := r.eng.Guess(context.Background(), "room", "a", "CRANE")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestTimeoutThroughClock(t *testing.T) {
	r := setupEngine(t, "CRANE")
	ctx := context.Background()
	require.NoError(t, r.eng.NewGame(ctx, "room"))
	require.NoError(t, r.eng.Join(ctx, "room", "a", "A"))
	require.NoError(t, r.eng.Join(ctx, "room", "b", "B"))

	r.clock.Advance(r.eng.Config().JoinWindow)
	require.Eventually(t, func() bool {
		v, ok := r.eng.Snapshot("room")
		return ok && v.State == StateActive
	}, time.Second, 5*time.Millisecond)

	// Crossing into the warning window only warns.
	r.clock.Advance(91 * time.Second)
	require.Eventually(t, func() bool { return r.out.saw("30 seconds left") }, time.Second, 5*time.Millisecond)
	v, ok := r.eng.Snapshot("room")
	require.True(t, ok)
	assert.Equal(t, PlayerID("a"), v.Current)

	r.clock.Advance(30 * time.Second)
	require.Eventually(t, r.gone("room"), time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, r.board.Wins("b"))
	assert.Equal(t, 1, r.out.count("seconds left"))
}

func TestCatalogFailureAbandonsGame(t *testing.T) {
	r := setupEngine(t, "CRANE")
	ctx := context.Background()
	require.NoError(t, r.eng.NewGame(ctx, "room"))
	require.NoError(t, r.eng.Join(ctx, "room", "a", "A"))
	require.NoError(t, r.eng.Join(ctx, "room", "b", "B"))
	v, _ := r.eng.Snapshot("room")

	r.catalog.fail(errors.New("no words"))
	r.eng.closeJoin("room", v.Epoch)

	assert.True(t, r.gone("room")())
	assert.True(t, r.out.saw("Could not pick a word"))
	assert.NotNil(t, r.pub.find(events.GameAbandoned))
}

func TestCatalogFailureMidGameReturnsError(t *testing.T) {
	r := setupEngine(t, "CRANE")
	ctx := context.Background()
	r.startGame(t, "room", "a", "b")

	r.catalog.fail(errors.New("no words"))
	_, err := r.eng.Guess(ctx, "room", "a", "TRACE")
	assert.ErrorIs(t, err, ErrCatalogUnavailable)
	assert.True(t, r.gone("room")())
}

func TestEmptySessionIsAbandoned(t *testing.T) {
	r := setupEngine(t, "CRANE")
	r.startGame(t, "room", "a", "b")

	require.NoError(t, r.eng.rooms.WithLock("room", func(s *Multiplayer) error {
		s.Players = nil
		return r.eng.enterTurn(context.Background(), s)
	}))

	assert.True(t, r.gone("room")())
	assert.True(t, r.out.saw("No winner"))
	assert.NotNil(t, r.pub.find(events.GameAbandoned))
	assert.Empty(t, r.board.Top(0))
}

type stubDefiner struct{ text string }

func (d stubDefiner) Lookup(_ context.Context, word string) (string, error) {
	if d.text == "" {
		return "", errors.New("not found")
	}
	return word + ": " + d.text, nil
}

func TestWinPostsDefinition(t *testing.T) {
	out := &mockTransport{}
	eng := NewEngine(DefaultConfig(), newFakeCatalog("CRANE"), out, scoreboard.New(),
		WithClock(clockwork.NewFakeClock()),
		WithDefiner(stubDefiner{text: "a wading bird"}),
		WithShuffle(func([]PlayerID) {}),
	)
	t.Cleanup(eng.Close)
	ctx := context.Background()

	require.NoError(t, eng.NewGame(ctx, "room"))
	require.NoError(t, eng.Join(ctx, "room", "a", "A"))
	require.NoError(t, eng.Join(ctx, "room", "b", "B"))
	v, _ := eng.Snapshot("room")
	eng.closeJoin("room", v.Epoch)

	_, err := eng.Guess(ctx, "room", "a", "CRANE")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return out.saw("CRANE: a wading bird") }, time.Second, 5*time.Millisecond)
}

func TestSnapshotHidesTarget(t *testing.T) {
	r := setupEngine(t, "CRANE")
	v := r.startGame(t, "room", "a", "b")
	assert.Equal(t, "room", v.Room)
	assert.Equal(t, map[PlayerID]string{"a": "A", "b": "B"}, v.Names)
	assert.Empty(t, v.Trail)
}
