// Package scoreboard keeps the process-wide win tally read by leaderboards.
package scoreboard

import (
	"sort"
	"sync"
)

// Entry is one player's standing.
type Entry struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Wins     int    `json:"wins"`
}

// Board is a concurrent-safe win counter. Entries keep first-win order,
// which breaks ties in Top.
type Board struct {
	mu    sync.Mutex
	order []*Entry
	byID  map[string]*Entry
}

// New returns an empty Board.
func New() *Board {
	return &Board{byID: make(map[string]*Entry)}
}

// RecordWin adds one win for player and returns the new total.
// A non-empty name replaces the stored display name.
func (b *Board) RecordWin(playerID, name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.byID[playerID]
	if !ok {
		e = &Entry{PlayerID: playerID}
		b.byID[playerID] = e
		b.order = append(b.order, e)
	}
	if name != "" {
		e.Name = name
	}
	e.Wins++
	return e.Wins
}

// Wins returns the current total for player.
func (b *Board) Wins(playerID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e, ok := b.byID[playerID]; ok {
		return e.Wins
	}
	return 0
}

// Top returns up to n entries by descending wins. n <= 0 returns all.
func (b *Board) Top(n int) []Entry {
	b.mu.Lock()
	out := make([]Entry, len(b.order))
	for i, e := range b.order {
		out[i] = *e
	}
	b.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Wins > out[j].Wins })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
