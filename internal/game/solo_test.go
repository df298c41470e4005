package game

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/wordseek/internal/events"
)

func TestSoloRoundsAndWin(t *testing.T) {
	r := setupEngine(t, "CRANE", "ALLOT")
	ctx := context.Background()

	require.NoError(t, r.eng.Solo(ctx, "room", "a", "Alice"))
	assert.ErrorIs(t, r.eng.Solo(ctx, "room", "a", "Alice"), ErrSoloRunning)
	assert.True(t, r.out.saw("Solo game started"))

	res, err := r.eng.Guess(ctx, "room", "a", "LOTTO")
	require.NoError(t, err)
	assert.True(t, res.Solo)
	assert.False(t, res.Won)

	v, ok := r.eng.SoloSnapshot("room", "a")
	require.True(t, ok)
	assert.Equal(t, 2, v.Round)
	assert.Empty(t, v.Trail)
	assert.Equal(t, 110*time.Second, v.Remaining)
	assert.True(t, r.out.saw("Round 2"))

	res, err = r.eng.Guess(ctx, "room", "a", "ALLOT")
	require.NoError(t, err)
	assert.True(t, res.Won)
	assert.Equal(t, 2, res.Round)

	_, ok = r.eng.SoloSnapshot("room", "a")
	assert.False(t, ok)
	assert.Equal(t, 1, r.board.Wins("a"))
	assert.NotNil(t, r.pub.find(events.SoloWon))

	// A finished player may start again.
	require.NoError(t, r.eng.Solo(ctx, "room", "a", "Alice"))
}

func TestSoloSessionsArePerPlayer(t *testing.T) {
	r := setupEngine(t, "CRANE")
	ctx := context.Background()

	require.NoError(t, r.eng.Solo(ctx, "room", "a", "A"))
	require.NoError(t, r.eng.Solo(ctx, "room", "b", "B"))
	require.NoError(t, r.eng.Solo(ctx, "other", "a", "A"))
	_, solo := r.eng.ActiveGames()
	assert.Equal(t, 3, solo)

	res, err := r.eng.Guess(ctx, "room", "b", "CRANE")
	require.NoError(t, err)
	assert.True(t, res.Won)

	_, ok := r.eng.SoloSnapshot("room", "a")
	assert.True(t, ok)
	_, ok = r.eng.SoloSnapshot("room", "b")
	assert.False(t, ok)
}

func TestSoloTimeout(t *testing.T) {
	r := setupEngine(t, "CRANE")
	ctx := context.Background()
	require.NoError(t, r.eng.Solo(ctx, "room", "a", "A"))

	r.clock.Advance(90 * time.Second)
	require.Eventually(t, func() bool { return r.out.saw("30 seconds left") }, time.Second, 5*time.Millisecond)
	_, ok := r.eng.SoloSnapshot("room", "a")
	assert.True(t, ok)

	r.clock.Advance(30 * time.Second)
	require.Eventually(t, func() bool {
		_, ok := r.eng.SoloSnapshot("room", "a")
		return !ok
	}, time.Second, 5*time.Millisecond)
	assert.True(t, r.out.saw("The word was <b>CRANE</b>"))
	assert.Equal(t, 0, r.board.Wins("a"))

	lost := r.pub.find(events.SoloLost)
	require.NotNil(t, lost)
	assert.Equal(t, "CRANE", lost.Word)
}

func TestSoloStaleTimerIgnored(t *testing.T) {
	r := setupEngine(t, "CRANE", "ALLOT")
	ctx := context.Background()
	require.NoError(t, r.eng.Solo(ctx, "room", "a", "A"))

	var epoch uint64
	require.NoError(t, r.eng.solos.WithLock(SoloKey{Room: "room", Player: "a"}, func(s *Solo) error {
		epoch = s.Epoch
		return nil
	}))

	_, err := r.eng.Guess(ctx, "room", "a", "TRACE")
	require.NoError(t, err)

	r.eng.expireSolo(SoloKey{Room: "room", Player: "a"}, epoch)
	v, ok := r.eng.SoloSnapshot("room", "a")
	require.True(t, ok)
	assert.Equal(t, 2, v.Round)
}

func TestSoloCatalogUnavailable(t *testing.T) {
	r := setupEngine(t, "CRANE")
	r.catalog.fail(errors.New("no words"))

	err := r.eng.Solo(context.Background(), "room", "a", "A")
	assert.ErrorIs(t, err, ErrCatalogUnavailable)
	_, ok := r.eng.SoloSnapshot("room", "a")
	assert.False(t, ok)
	assert.True(t, r.out.saw("Could not pick a word"))
}

func TestSoloGuessRejectsInvalidInput(t *testing.T) {
	r := setupEngine(t, "CRANE")
	ctx := context.Background()
	require.NoError(t, r.eng.Solo(ctx, "room", "a", "A"))

	_, err := r.eng.Guess(ctx, "room", "a", "ZZZZZ")
	assert.ErrorIs(t, err, ErrNotInCatalog)
	v, _ := r.eng.SoloSnapshot("room", "a")
	assert.Equal(t, 1, v.Round)
}

func TestOffTurnPlayerReachesSoloGame(t *testing.T) {
	r := setupEngine(t, "CRANE")
	ctx := context.Background()
	r.startGame(t, "room", "a", "b")
	require.NoError(t, r.eng.Solo(ctx, "room", "b", "B"))

	res, err := r.eng.Guess(ctx, "room", "b", "CRANE")
	require.NoError(t, err)
	assert.True(t, res.Solo)

	// The multiplayer turn is untouched.
	v, ok := r.eng.Snapshot("room")
	require.True(t, ok)
	assert.Equal(t, PlayerID("a"), v.Current)
}
