// Package sqlite persists client-side state in SQLite: the pending
// key-distribution queue and the staged cut of the command line client.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"arbor/internal/ports"

	_ "modernc.org/sqlite"
)

const schemaVersion = "1"

// Queue implements ports.KeyQueue using SQLite
type Queue struct {
	db     *sql.DB
	dbPath string
}

// Ensure Queue implements KeyQueue
var _ ports.KeyQueue = (*Queue)(nil)

// OpenQueue opens or creates the queue database at dbPath. An empty path
// selects the default location under the XDG data directory.
func OpenQueue(dbPath string) (*Queue, error) {
	if dbPath == "" {
		dbPath = DefaultPath()
	}
	// Expand ~ in path
	if len(dbPath) > 0 && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create queue directory: %w", err)
	}

	// WAL lets the TUI and a `keys watch` process share the file
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec(`
		PRAGMA synchronous = NORMAL;
		PRAGMA busy_timeout = 5000;

		CREATE TABLE IF NOT EXISTS pending_keys (
			node_id TEXT NOT NULL,
			principal_node_id TEXT NOT NULL,
			principal_name TEXT NOT NULL DEFAULT '',
			public_key TEXT NOT NULL DEFAULT '',
			cipher_key TEXT NOT NULL,
			seq INTEGER NOT NULL,
			last_error TEXT NOT NULL DEFAULT '',
			queued_at INTEGER NOT NULL,
			PRIMARY KEY (node_id, principal_node_id)
		);
		CREATE TABLE IF NOT EXISTS cut_nodes (
			node_id TEXT PRIMARY KEY,
			seq INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_pending_order ON pending_keys(queued_at, node_id, seq);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to setup database: %w", err)
	}

	q := &Queue{db: db, dbPath: dbPath}
	if err := q.updateMeta(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to update metadata: %w", err)
	}
	return q, nil
}

// DefaultPath returns the queue location under the XDG data directory
func DefaultPath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "arbor", "pending-keys.db")
}

// Path returns the database file in use
func (q *Queue) Path() string {
	return q.dbPath
}

// Close closes the database connection
func (q *Queue) Close() error {
	if q.db != nil {
		return q.db.Close()
	}
	return nil
}

func (q *Queue) updateMeta() error {
	_, err := q.db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?)`, schemaVersion)
	return err
}

// Enqueue stores entries in one transaction. A node keeps the queue
// position of its first pending entry.
func (q *Queue) Enqueue(ctx context.Context, entries []ports.PendingKey) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := q.beginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin enqueue: %w", err)
	}
	for _, e := range entries {
		if err := tx.upsert(ctx, e); err != nil {
			tx.rollback()
			return fmt.Errorf("failed to enqueue key for %s on %s: %w", e.PrincipalNodeID, e.NodeID, err)
		}
	}
	return tx.commit()
}

// Pending lists queued deliveries grouped by node, oldest node first and
// in delivery order within a node.
func (q *Queue) Pending(ctx context.Context) ([]ports.PendingKey, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT p.node_id, p.principal_node_id, p.principal_name, p.public_key,
		       p.cipher_key, p.seq, p.last_error, p.queued_at
		FROM pending_keys p
		JOIN (SELECT node_id, MIN(queued_at) AS first_at FROM pending_keys GROUP BY node_id) f
		  ON f.node_id = p.node_id
		ORDER BY f.first_at, p.node_id, p.seq
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending keys: %w", err)
	}
	defer rows.Close()

	var out []ports.PendingKey
	for rows.Next() {
		var k ports.PendingKey
		var queuedAt int64
		if err := rows.Scan(&k.NodeID, &k.PrincipalNodeID, &k.PrincipalName, &k.PublicKey,
			&k.CipherKey, &k.Seq, &k.LastError, &queuedAt); err != nil {
			return nil, err
		}
		k.QueuedAt = time.UnixMilli(queuedAt)
		out = append(out, k)
	}
	return out, rows.Err()
}

// Remove drops the delivery of nodeID's key to principalNodeID
func (q *Queue) Remove(ctx context.Context, nodeID, principalNodeID string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM pending_keys WHERE node_id = ? AND principal_node_id = ?`, nodeID, principalNodeID)
	if err != nil {
		return fmt.Errorf("failed to remove pending key: %w", err)
	}
	return nil
}

// Count returns the number of queued deliveries
func (q *Queue) Count(ctx context.Context) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_keys`).Scan(&n)
	return n, err
}
