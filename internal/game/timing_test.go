package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeForRound(t *testing.T) {
	c := DefaultConfig()
	for r, want := range map[int]time.Duration{
		0:  120 * time.Second,
		1:  120 * time.Second,
		2:  110 * time.Second,
		10: 30 * time.Second,
		11: 20 * time.Second,
		12: 15 * time.Second,
		20: 15 * time.Second,
	} {
		assert.Equal(t, want, c.TimeForRound(r), "round %d", r)
	}
}

func TestTimeForRoundNeverIncreases(t *testing.T) {
	c := DefaultConfig()
	prev := c.TimeForRound(1)
	for r := 2; r < 50; r++ {
		got := c.TimeForRound(r)
		assert.LessOrEqual(t, got, prev)
		assert.GreaterOrEqual(t, got, c.MinTime)
		prev = got
	}
}

func TestConfigDefaults(t *testing.T) {
	c := Config{InitTime: 60 * time.Second, Step: -time.Second, MinPlayers: 1}.withDefaults()
	assert.Equal(t, 5, c.WordLength)
	assert.Equal(t, 60*time.Second, c.InitTime)
	assert.Equal(t, time.Duration(0), c.Step)
	assert.Equal(t, 15*time.Second, c.MinTime)
	assert.Equal(t, 2, c.MinPlayers)
	assert.Equal(t, 60*time.Second, c.TimeForRound(9))
}
