package game

import "time"

// Config holds the engine's tunables.
type Config struct {
	WordLength int           // fixed word length
	InitTime   time.Duration // budget for round 1
	Step       time.Duration // decay per round
	MinTime    time.Duration // budget floor
	WarnAt     time.Duration // remaining time that triggers the warning
	JoinWindow time.Duration // how long a new game accepts joins
	MinPlayers int           // joiners needed to start
}

// DefaultConfig returns the classic timings: 120s decaying by 10s per round
// down to 15s, a warning at 30s, and a two-minute join window.
func DefaultConfig() Config {
	return Config{
		WordLength: 5,
		InitTime:   120 * time.Second,
		Step:       10 * time.Second,
		MinTime:    15 * time.Second,
		WarnAt:     30 * time.Second,
		JoinWindow: 120 * time.Second,
		MinPlayers: 2,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.WordLength <= 0 {
		c.WordLength = d.WordLength
	}
	if c.InitTime <= 0 {
		c.InitTime = d.InitTime
	}
	if c.Step < 0 {
		c.Step = 0
	}
	if c.MinTime <= 0 {
		c.MinTime = d.MinTime
	}
	if c.JoinWindow <= 0 {
		c.JoinWindow = d.JoinWindow
	}
	if c.MinPlayers < 2 {
		c.MinPlayers = d.MinPlayers
	}
	return c
}

// TimeForRound returns the guess budget for round r (1-based):
// max(MinTime, InitTime - (r-1)*Step).
func (c Config) TimeForRound(r int) time.Duration {
	if r < 1 {
		r = 1
	}
	t := c.InitTime - time.Duration(r-1)*c.Step
	if t < c.MinTime {
		return c.MinTime
	}
	return t
}
