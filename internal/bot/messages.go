package bot

import (
	"fmt"
	"html"
	"strings"

	"github.com/robalobadob/wordseek/internal/scoreboard"
)

const welcomeMsg = "<b>WordSeek 📖</b>\n\n" +
	"• Multi-player or Solo Wordle mode!\n" +
	"• Use /new for competitive group. \n" +
	"• Use /solo to play alone.\n"

const helpMsg = "• /new  : Group game \n" +
	"• /solo : Solo Game \n" +
	"• /join : play with your Friends \n" +
	"• /status : current game \n" +
	"• /leaderboard : top players \n"

func bold(s string) string {
	return "<b>" + html.EscapeString(s) + "</b>"
}

func renderLeaderboard(entries []scoreboard.Entry) string {
	if len(entries) == 0 {
		return "No wins yet."
	}
	var sb strings.Builder
	sb.WriteString("<b>🏆 Leaderboard (Wins):</b>\n")
	for i, e := range entries {
		name := e.Name
		if name == "" {
			name = "User " + e.PlayerID
		}
		fmt.Fprintf(&sb, "%d. %s: %d\n", i+1, html.EscapeString(name), e.Wins)
	}
	return sb.String()
}
