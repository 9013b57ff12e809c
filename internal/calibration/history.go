package calibration

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// Snapshot is one retained calibration observation.
type Snapshot struct {
	ObservedAt   time.Time
	GeneratedAt  string
	Global       string
	GlobalParams string
}

// History retains calibration snapshots in a local SQLite database,
// keyed by the artifact's generated_at so re-reads of the same run
// don't duplicate rows.
type History struct {
	db *sql.DB
}

func OpenHistory(path string) (*History, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	h := &History{db: db}
	if err := h.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return h, nil
}

func (h *History) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = h.db.ExecContext(ctx, string(b))
	return err
}

func (h *History) Close() error {
	if h == nil || h.db == nil {
		return nil
	}
	return h.db.Close()
}

// Append records an observed artifact. A snapshot with the same
// generated_at is kept once.
func (h *History) Append(ctx context.Context, a *Artifact) error {
	if a == nil {
		return errors.New("nil artifact")
	}
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO calibration_history(observed_at, generated_at, global, global_params)
		 VALUES(?,?,?,?)
		 ON CONFLICT(generated_at) DO NOTHING`,
		time.Now().UTC().Format(time.RFC3339Nano),
		a.GeneratedAt,
		rawOrNull(a.Global),
		rawOrNull(a.GlobalParams),
	)
	if err != nil {
		return fmt.Errorf("append calibration snapshot: %w", err)
	}
	return nil
}

// Recent returns up to n snapshots, newest first.
func (h *History) Recent(ctx context.Context, n int) ([]Snapshot, error) {
	if n <= 0 {
		n = 10
	}
	rows, err := h.db.QueryContext(ctx,
		`SELECT observed_at, generated_at, global, global_params
		 FROM calibration_history
		 ORDER BY observed_at DESC, id DESC
		 LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var s Snapshot
		var observed string
		if err := rows.Scan(&observed, &s.GeneratedAt, &s.Global, &s.GlobalParams); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339Nano, observed); err == nil {
			s.ObservedAt = t
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
