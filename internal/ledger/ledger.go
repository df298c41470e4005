// Package ledger keeps a durable history of won games in SQLite.
//
// The ledger is an events.Sink: the dispatcher hands it every game event and
// it stores the wins. It is history only; live sessions and the in-memory
// scoreboard never read from it.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordseek/internal/events"
)

// DefaultLimit caps Recent when no limit is given.
const DefaultLimit = 20

// Win is one row of the wins table.
type Win struct {
	EventID  string    `json:"eventId"`
	Room     string    `json:"room"`
	PlayerID string    `json:"playerId"`
	Name     string    `json:"name"`
	Word     string    `json:"word,omitempty"`
	Round    int       `json:"round"`
	Solo     bool      `json:"solo"`
	WonAt    time.Time `json:"wonAt"`
}

// Ledger is the SQLite-backed win history.
type Ledger struct {
	db *sql.DB
}

// Open opens the database at path and applies migrations.
func Open(path string) (*Ledger, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open %s: %w", path, err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ledger: migrate: %w", err)
	}
	log.Info().Str("path", path).Msg("win ledger ready")
	return &Ledger{db: db}, nil
}

// Close releases the database.
func (l *Ledger) Close() error { return l.db.Close() }

// Ping checks the database connection.
func (l *Ledger) Ping(ctx context.Context) error { return l.db.PingContext(ctx) }

// Publish records ev if it is a win and ignores every other event type.
// Re-delivery of the same event is a no-op.
func (l *Ledger) Publish(ctx context.Context, ev events.Event) error {
	if !ev.IsWin() {
		return nil
	}
	return l.Record(ctx, Win{
		EventID:  ev.ID.String(),
		Room:     ev.Room,
		PlayerID: ev.PlayerID,
		Name:     ev.Name,
		Word:     ev.Word,
		Round:    ev.Round,
		Solo:     ev.Type == events.SoloWon,
		WonAt:    ev.At,
	})
}

// Record inserts w. A row with the same EventID is left untouched.
func (l *Ledger) Record(ctx context.Context, w Win) error {
	_, err := l.db.ExecContext(ctx, `
        INSERT OR IGNORE INTO wins
            (event_id, room, player_id, name, word, round, solo, won_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		w.EventID, w.Room, w.PlayerID, w.Name, w.Word, w.Round, w.Solo, w.WonAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("ledger: record win %s: %w", w.EventID, err)
	}
	return nil
}

// Recent returns up to limit wins in room, newest first.
func (l *Ledger) Recent(ctx context.Context, room string, limit int) ([]Win, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := l.db.QueryContext(ctx, `
        SELECT event_id, room, player_id, name, word, round, solo, won_at
        FROM wins
        WHERE room=?
        ORDER BY won_at DESC, created_at DESC
        LIMIT ?`, room, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("ledger: query wins: %w", err)
	}
	defer rows.Close()

	out := make([]Win, 0, limit)
	for rows.Next() {
		var w Win
		if err := rows.Scan(&w.EventID, &w.Room, &w.PlayerID, &w.Name, &w.Word, &w.Round, &w.Solo, &w.WonAt); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// CountByPlayer returns the number of recorded wins for player across rooms.
func (l *Ledger) CountByPlayer(ctx context.Context, player string) (int, error) {
	var n int
	if err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM wins WHERE player_id=?`, player,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("ledger: count wins: %w", err)
	}
	return n, nil
}
