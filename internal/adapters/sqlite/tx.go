package sqlite

import (
	"context"
	"database/sql"
	"time"

	"arbor/internal/ports"
)

// queueTx groups queue writes
type queueTx struct {
	tx *sql.Tx
}

func (q *Queue) beginTx(ctx context.Context) (*queueTx, error) {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &queueTx{tx: tx}, nil
}

// upsert inserts or replaces one delivery, keeping the original queue time
func (t *queueTx) upsert(ctx context.Context, k ports.PendingKey) error {
	queuedAt := k.QueuedAt
	if queuedAt.IsZero() {
		queuedAt = time.Now()
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO pending_keys (node_id, principal_node_id, principal_name, public_key, cipher_key, seq, last_error, queued_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(node_id, principal_node_id) DO UPDATE SET
			principal_name = excluded.principal_name,
			public_key = excluded.public_key,
			cipher_key = excluded.cipher_key,
			seq = excluded.seq,
			last_error = excluded.last_error
	`, k.NodeID, k.PrincipalNodeID, k.PrincipalName, k.PublicKey, k.CipherKey, k.Seq, k.LastError, queuedAt.UnixMilli())
	return err
}

// commit commits the transaction
func (t *queueTx) commit() error {
	return t.tx.Commit()
}

// rollback aborts the transaction
func (t *queueTx) rollback() error {
	return t.tx.Rollback()
}
