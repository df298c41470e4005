package game

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/robalobadob/wordseek/internal/feedback"
)

// User-facing chat text. HTML messages use <b> only.
const (
	msgCompetition   = "🟢 Competition starting! Use /join to participate (%s window, min %d).\nEach round guess time reduces."
	msgJoined        = "✅ %s joined!"
	msgJoinCancelled = "⏰ Time over, no one joined in time or not enough players (min %d needed). Cancelled."
	msgGameStarted   = "🟢 Game started (%d players):\n%s"
	msgYourTurn      = "🎯 %s - Your turn!\nGuess the %d letter word!\nTime: %d sec."
	msgWarning       = "⚠️ %d seconds left!"
	msgTimeout       = "⏰ %s OUT (timeout)!"
	msgSurvivorWins  = "🏆 %s wins this game!"
	msgCongrats      = "Congrats! You guessed it correctly.\n%s now has %d win(s) on the Leaderboard.\nStart with /new"
	msgAbandoned     = "Everyone timed out. No winner this time. Start with /new"
	msgCatalog       = "❌ Could not pick a word right now. Game cancelled, please try again later."
	msgSoloStarted   = "🟢 Solo game started!\nRound 1\nGuess the %d-letter word.\nTime: %d sec"
	msgSoloNextRound = "Next round!\nRound %d\nGuess the word. Time: %d sec"
	msgSoloLost      = "⏰ Time up! %s lost this solo game. The word was %s."
)

func bold(name string) string {
	return "<b>" + html.EscapeString(name) + "</b>"
}

func seconds(d time.Duration) int {
	return int(d / time.Second)
}

func window(d time.Duration) string {
	if d%time.Minute == 0 {
		return fmt.Sprintf("%d min", int(d/time.Minute))
	}
	return fmt.Sprintf("%d sec", seconds(d))
}

func renderRoster(players []PlayerID, names map[PlayerID]string) string {
	lines := make([]string, len(players))
	for i, p := range players {
		lines[i] = fmt.Sprintf("%d. %s", i+1, bold(names[p]))
	}
	return strings.Join(lines, "\n")
}

// RenderTrail formats a guess trail, one scored word per line.
func RenderTrail(trail []Attempt) string {
	lines := make([]string, len(trail))
	for i, a := range trail {
		lines[i] = feedback.Render(a.Marks) + "  " + bold(a.Word)
	}
	return strings.Join(lines, "\n")
}
