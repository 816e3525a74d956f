package sqlite

import (
	"context"
	"fmt"
)

// SaveCut replaces the staged cut with ids, keeping their order.
func (q *Queue) SaveCut(ctx context.Context, ids []string) error {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cut_nodes`); err != nil {
		return fmt.Errorf("failed to clear cut: %w", err)
	}
	for i, id := range ids {
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO cut_nodes (node_id, seq) VALUES (?, ?)`, id, i); err != nil {
			return fmt.Errorf("failed to stage %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// LoadCut returns the staged cut in the order it was saved.
func (q *Queue) LoadCut(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT node_id FROM cut_nodes ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to load cut: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ClearCut drops the staged cut.
func (q *Queue) ClearCut(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM cut_nodes`)
	return err
}
