// Package sqliteadapter persists ledger snapshots to a local SQLite file so the
// in-memory ledger survives restarts.
package sqliteadapter

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"bazaar/contexts/trading/marketplace-ledger/ports"

	_ "modernc.org/sqlite"
)

const (
	snapshotFormatVersion = 1
	maxBusyTimeoutMs      = 5000
	defaultRetain         = 5
)

type snapshotEnvelope struct {
	Version  int                  `json:"version"`
	Snapshot ports.LedgerSnapshot `json:"snapshot"`
}

// SnapshotStore keeps the most recent ledger snapshots in one SQLite table.
type SnapshotStore struct {
	mu     sync.Mutex
	db     *sql.DB
	retain int
	logger *slog.Logger
}

// NewSnapshotStore opens (or creates) the SQLite file at path.
func NewSnapshotStore(path string, logger *slog.Logger) (*SnapshotStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		return nil, errors.New("snapshot path is required")
	}
	if path != ":memory:" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve snapshot path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
			return nil, fmt.Errorf("create snapshot directory: %w", err)
		}
		path = "file:" + filepath.Clean(absPath)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", maxBusyTimeoutMs)); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &SnapshotStore{db: db, retain: defaultRetain, logger: logger}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SnapshotStore) ensureSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS ledger_snapshots (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	taken_at INTEGER NOT NULL,
	payload TEXT NOT NULL
);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create snapshot schema: %w", err)
	}
	return nil
}

// SaveSnapshot appends snapshot and prunes all but the newest few.
func (s *SnapshotStore) SaveSnapshot(ctx context.Context, snapshot ports.LedgerSnapshot) error {
	payload, err := json.Marshal(snapshotEnvelope{Version: snapshotFormatVersion, Snapshot: snapshot})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	takenAt := snapshot.TakenAt
	if takenAt.IsZero() {
		takenAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO ledger_snapshots (taken_at, payload) VALUES (?, ?)`,
		takenAt.UTC().UnixNano(), string(payload),
	); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM ledger_snapshots WHERE id NOT IN (SELECT id FROM ledger_snapshots ORDER BY id DESC LIMIT ?)`,
		s.retain,
	); err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}

	s.logger.Debug("ledger snapshot saved",
		"event", "sqlite_snapshot_saved",
		"module", "trading/marketplace-ledger",
		"layer", "adapter",
		"assets", len(snapshot.Assets),
		"listings", len(snapshot.Listings),
	)
	return nil
}

// LoadLatestSnapshot returns false when no snapshot has been written yet.
func (s *SnapshotStore) LoadLatestSnapshot(ctx context.Context) (ports.LedgerSnapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM ledger_snapshots ORDER BY id DESC LIMIT 1`,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.LedgerSnapshot{}, false, nil
	}
	if err != nil {
		return ports.LedgerSnapshot{}, false, fmt.Errorf("load snapshot: %w", err)
	}

	var envelope snapshotEnvelope
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		return ports.LedgerSnapshot{}, false, fmt.Errorf("decode snapshot: %w", err)
	}
	if envelope.Version != snapshotFormatVersion {
		return ports.LedgerSnapshot{}, false, fmt.Errorf("unsupported snapshot version %d", envelope.Version)
	}
	if envelope.Snapshot.OwnerIndex == nil {
		envelope.Snapshot.OwnerIndex = make(map[string][]int64)
	}
	return envelope.Snapshot, true, nil
}

// Close releases the underlying database connection.
func (s *SnapshotStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
