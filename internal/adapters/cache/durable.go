package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/somacore/soma/internal/domain/model"
)

const createScoresTable = `
CREATE TABLE IF NOT EXISTS scores (
	day          TEXT NOT NULL,
	kind         TEXT NOT NULL,
	payload      TEXT NOT NULL,
	computed_at  INTEGER NOT NULL,
	published_at INTEGER NOT NULL,
	PRIMARY KEY (day, kind)
)`

// Durable is the SQLite-backed score tier. It keeps the most recent
// score per (day, kind) across restarts so scores render immediately
// before any recomputation finishes.
type Durable struct {
	db *sql.DB
}

// OpenDurable opens (or creates) the score database at path.
func OpenDurable(path string) (*Durable, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDurableOpen, err)
	}

	// SQLite allows one writer; a single connection avoids lock
	// contention errors under concurrent publishes.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createScoresTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", ErrDurableOpen, err)
	}
	return &Durable{db: db}, nil
}

// Put upserts the score for key. publishedAt records when the score
// became visible to readers, not when the write landed.
func (d *Durable) Put(ctx context.Context, key model.Key, score model.Score, publishedAt time.Time) error {
	payload, err := json.Marshal(score)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDurableWrite, err)
	}

	_, err = d.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO scores (day, kind, payload, computed_at, published_at) VALUES (?, ?, ?, ?, ?)`,
		string(key.Day), string(key.Kind), string(payload),
		score.ComputedAt.UnixNano(), publishedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDurableWrite, err)
	}
	return nil
}

// Get returns the stored score for key, reporting presence.
func (d *Durable) Get(ctx context.Context, key model.Key) (model.Score, bool, error) {
	var payload string
	err := d.db.QueryRowContext(ctx,
		`SELECT payload FROM scores WHERE day = ? AND kind = ?`,
		string(key.Day), string(key.Kind),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Score{}, false, nil
	}
	if err != nil {
		return model.Score{}, false, fmt.Errorf("%w: %w", ErrDurableRead, err)
	}

	var score model.Score
	if err := json.Unmarshal([]byte(payload), &score); err != nil {
		return model.Score{}, false, fmt.Errorf("%w: %w", ErrDurableRead, err)
	}
	return score, true, nil
}

// Delete removes the entry for key. Missing entries are not an error.
func (d *Durable) Delete(ctx context.Context, key model.Key) error {
	if _, err := d.db.ExecContext(ctx,
		`DELETE FROM scores WHERE day = ? AND kind = ?`,
		string(key.Day), string(key.Kind),
	); err != nil {
		return fmt.Errorf("%w: %w", ErrDurableWrite, err)
	}
	return nil
}

// ListRecent returns up to limit scores of one kind, most recent day
// first, skipping offset rows.
func (d *Durable) ListRecent(ctx context.Context, kind model.ScoreKind, offset, limit int) ([]model.Score, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT payload FROM scores WHERE kind = ? ORDER BY day DESC LIMIT ? OFFSET ?`,
		string(kind), limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDurableRead, err)
	}
	defer rows.Close()

	var out []model.Score
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDurableRead, err)
		}
		var score model.Score
		if err := json.Unmarshal([]byte(payload), &score); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDurableRead, err)
		}
		out = append(out, score)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDurableRead, err)
	}
	return out, nil
}

// Count returns the number of stored scores.
func (d *Durable) Count(ctx context.Context) (int, error) {
	var n int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scores`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDurableRead, err)
	}
	return n, nil
}

// Close closes the underlying database.
func (d *Durable) Close() error {
	return d.db.Close()
}
