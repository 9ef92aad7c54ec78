// Package sqlite is the single-file booking ledger, the default for a
// single-node deployment.
package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/ariefcatur/go-metro-booking/internal/booking"
	"github.com/ariefcatur/go-metro-booking/internal/clock"
)

const schema = `CREATE TABLE IF NOT EXISTS bookings (
	ref         TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	destination TEXT NOT NULL,
	at          TEXT NOT NULL,
	seats       INTEGER NOT NULL,
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS bookings_created_at ON bookings(created_at);`

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA temp_store=MEMORY",
}

// Ledger stores bookings in one table keyed by ref. created_at is unix
// seconds.
type Ledger struct {
	pool  *sqlitex.Pool
	clock clock.Clock
	log   *slog.Logger
	path  string
}

// Open creates the parent directory and the schema if needed.
func Open(path string, clk clock.Clock, log *slog.Logger) (*Ledger, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite ledger: empty path")
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite ledger: %w", err)
		}
	}

	pool, err := sqlitex.NewPool(path, sqlitex.PoolOptions{
		PoolSize:    4,
		PrepareConn: prepare,
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite ledger: opening %s: %w", path, err)
	}
	l := &Ledger{pool: pool, clock: clk, log: log, path: path}
	if err := l.migrate(context.Background()); err != nil {
		_ = pool.Close()
		return nil, err
	}
	log.Info("sqlite ledger opened", "path", path)
	return l, nil
}

func prepare(conn *sqlite.Conn) error {
	for _, p := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, p, nil); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func (l *Ledger) migrate(ctx context.Context) error {
	conn, err := l.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("sqlite ledger: take: %w", err)
	}
	defer l.pool.Put(conn)
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("sqlite ledger: schema: %w", err)
	}
	return nil
}

func (l *Ledger) Put(ctx context.Context, rec booking.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	conn, err := l.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("sqlite ledger: take: %w", err)
	}
	defer l.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`INSERT OR REPLACE INTO bookings(ref, source, destination, at, seats, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{rec.Ref, rec.Source, rec.Destination, rec.At, rec.Seats, rec.CreatedAt.Unix()},
		})
	if err != nil {
		return fmt.Errorf("sqlite ledger: put %s: %w", rec.Ref, err)
	}
	return nil
}

func (l *Ledger) Get(ctx context.Context, ref string) (*booking.Record, error) {
	conn, err := l.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlite ledger: take: %w", err)
	}
	defer l.pool.Put(conn)

	var rec *booking.Record
	err = sqlitex.Execute(conn,
		`SELECT ref, source, destination, at, seats, created_at FROM bookings WHERE ref = ?`,
		&sqlitex.ExecOptions{
			Args: []any{ref},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				rec = &booking.Record{
					Ref:         stmt.ColumnText(0),
					Source:      stmt.ColumnText(1),
					Destination: stmt.ColumnText(2),
					At:          stmt.ColumnText(3),
					Seats:       stmt.ColumnInt(4),
					CreatedAt:   time.Unix(stmt.ColumnInt64(5), 0),
				}
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("sqlite ledger: get %s: %w", ref, err)
	}
	return rec, nil
}

func (l *Ledger) PurgeOlderThan(ctx context.Context, age time.Duration) (int, error) {
	conn, err := l.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("sqlite ledger: take: %w", err)
	}
	defer l.pool.Put(conn)

	err = sqlitex.Execute(conn, `DELETE FROM bookings WHERE created_at < ?`,
		&sqlitex.ExecOptions{Args: []any{cutoffSeconds(l.clock.Now().Add(-age))}})
	if err != nil {
		return 0, fmt.Errorf("sqlite ledger: purge: %w", err)
	}
	return conn.Changes(), nil
}

// cutoffSeconds is the smallest whole second not before cutoff, so that
// "created_at < result" on stored seconds equals "created_at < cutoff".
func cutoffSeconds(cutoff time.Time) int64 {
	sec := cutoff.Unix()
	if cutoff.Nanosecond() > 0 {
		sec++
	}
	return sec
}

func (l *Ledger) Close() error {
	if err := l.pool.Close(); err != nil {
		return fmt.Errorf("sqlite ledger: closing %s: %w", l.path, err)
	}
	l.log.Info("sqlite ledger closed", "path", l.path)
	return nil
}
