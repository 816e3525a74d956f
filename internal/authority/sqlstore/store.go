// Package sqlstore persists the reference authority in SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"arbor/internal/authority"
	"arbor/internal/domain"
)

const defaultSQLiteParams = "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON"

const schema = `
CREATE TABLE IF NOT EXISTS principals (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL UNIQUE,
	public_key   TEXT NOT NULL DEFAULT '',
	home_node_id TEXT NOT NULL DEFAULT '',
	admin        INTEGER NOT NULL DEFAULT 0,
	test         INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS nodes (
	id         TEXT PRIMARY KEY,
	parent_id  TEXT NOT NULL DEFAULT '',
	owner      TEXT NOT NULL DEFAULT '',
	type       TEXT NOT NULL,
	name       TEXT NOT NULL DEFAULT '',
	content    TEXT NOT NULL DEFAULT '',
	properties TEXT NOT NULL DEFAULT '[]',
	ordinal    INTEGER NOT NULL DEFAULT 0,
	deleted    INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_nodes_parent ON nodes(parent_id, ordinal);
CREATE INDEX IF NOT EXISTS idx_nodes_deleted ON nodes(owner, deleted);

CREATE TABLE IF NOT EXISTS acl (
	node_id      TEXT NOT NULL,
	principal_id TEXT NOT NULL,
	privileges   TEXT NOT NULL,
	PRIMARY KEY (node_id, principal_id)
);

CREATE TABLE IF NOT EXISTS cipher_keys (
	node_id      TEXT NOT NULL,
	principal_id TEXT NOT NULL,
	cipher_key   TEXT NOT NULL,
	PRIMARY KEY (node_id, principal_id)
);
`

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements authority.Store on SQLite.
type Store struct {
	db *sql.DB
	q  querier
	tx bool
}

var _ authority.Store = (*Store)(nil)

// Open opens or creates the database at dbPath.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+defaultSQLiteParams)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db, q: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.tx {
		return nil
	}
	return s.db.Close()
}

// Update executes fn within a database transaction. If fn returns an
// error, the transaction is rolled back; otherwise it is committed.
func (s *Store) Update(ctx context.Context, fn func(authority.Store) error) error {
	if s.tx {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&Store{db: s.db, q: tx, tx: true}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

const nodeColumns = `id, parent_id, owner, type, name, content, properties, ordinal, deleted`

func scanNode(row interface{ Scan(...any) error }) (*domain.Node, error) {
	var n domain.Node
	var props string
	if err := row.Scan(&n.ID, &n.ParentID, &n.Owner, &n.Type, &n.Name, &n.Content, &props, &n.Ordinal, &n.Deleted); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(props), &n.Properties); err != nil {
		return nil, fmt.Errorf("decode properties of %s: %w", n.ID, err)
	}
	return &n, nil
}

func (s *Store) queryNodes(ctx context.Context, query string, args ...any) ([]*domain.Node, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) Node(ctx context.Context, id string) (*domain.Node, error) {
	n, err := scanNode(s.q.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, authority.ErrNodeNotFound
	}
	return n, err
}

func (s *Store) Children(ctx context.Context, parentID string) ([]*domain.Node, error) {
	if parentID == "" {
		return nil, nil
	}
	return s.queryNodes(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE parent_id = ? ORDER BY ordinal, id`, parentID)
}

func (s *Store) DeletedNodes(ctx context.Context, owner string) ([]*domain.Node, error) {
	return s.queryNodes(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE owner = ? AND deleted = 1 ORDER BY parent_id, ordinal`, owner)
}

func (s *Store) PutNode(ctx context.Context, n *domain.Node) error {
	props := n.Properties
	if props == nil {
		props = []domain.Property{}
	}
	data, err := json.Marshal(props)
	if err != nil {
		return fmt.Errorf("encode properties of %s: %w", n.ID, err)
	}
	_, err = s.q.ExecContext(ctx, `
		INSERT INTO nodes (`+nodeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			parent_id = excluded.parent_id,
			owner = excluded.owner,
			type = excluded.type,
			name = excluded.name,
			content = excluded.content,
			properties = excluded.properties,
			ordinal = excluded.ordinal,
			deleted = excluded.deleted`,
		n.ID, n.ParentID, n.Owner, n.Type, n.Name, n.Content, string(data), n.Ordinal, n.Deleted)
	if err != nil {
		return fmt.Errorf("put node %s: %w", n.ID, err)
	}
	return nil
}

func (s *Store) DeleteNode(ctx context.Context, id string) error {
	for _, q := range []string{
		`DELETE FROM cipher_keys WHERE node_id = ?`,
		`DELETE FROM acl WHERE node_id = ?`,
		`DELETE FROM nodes WHERE id = ?`,
	} {
		if _, err := s.q.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("delete node %s: %w", id, err)
		}
	}
	return nil
}

const principalColumns = `id, name, public_key, home_node_id, admin, test`

func scanPrincipal(row *sql.Row) (*authority.Principal, error) {
	var p authority.Principal
	err := row.Scan(&p.ID, &p.Name, &p.PublicKey, &p.HomeNodeID, &p.Admin, &p.Test)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, authority.ErrPrincipalNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) Principal(ctx context.Context, name string) (*authority.Principal, error) {
	return scanPrincipal(s.q.QueryRowContext(ctx, `SELECT `+principalColumns+` FROM principals WHERE name = ?`, name))
}

func (s *Store) PrincipalByID(ctx context.Context, id string) (*authority.Principal, error) {
	return scanPrincipal(s.q.QueryRowContext(ctx, `SELECT `+principalColumns+` FROM principals WHERE id = ?`, id))
}

func (s *Store) PutPrincipal(ctx context.Context, p *authority.Principal) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO principals (`+principalColumns+`) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			public_key = excluded.public_key,
			home_node_id = excluded.home_node_id,
			admin = excluded.admin,
			test = excluded.test`,
		p.ID, p.Name, p.PublicKey, p.HomeNodeID, p.Admin, p.Test)
	if err != nil {
		return fmt.Errorf("put principal %s: %w", p.Name, err)
	}
	return nil
}

func (s *Store) Grants(ctx context.Context, nodeID string) ([]authority.Grant, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT principal_id, privileges FROM acl WHERE node_id = ? ORDER BY rowid`, nodeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []authority.Grant
	for rows.Next() {
		var g authority.Grant
		var privs string
		if err := rows.Scan(&g.PrincipalID, &privs); err != nil {
			return nil, err
		}
		for _, p := range strings.Split(privs, ",") {
			if p != "" {
				g.Privileges = append(g.Privileges, domain.Privilege(p))
			}
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) PutGrant(ctx context.Context, nodeID string, g authority.Grant) error {
	privs := make([]string, len(g.Privileges))
	for i, p := range g.Privileges {
		privs[i] = string(p)
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO acl (node_id, principal_id, privileges) VALUES (?, ?, ?)
		ON CONFLICT(node_id, principal_id) DO UPDATE SET privileges = excluded.privileges`,
		nodeID, g.PrincipalID, strings.Join(privs, ","))
	if err != nil {
		return fmt.Errorf("put grant on %s: %w", nodeID, err)
	}
	return nil
}

func (s *Store) DeleteGrant(ctx context.Context, nodeID, principalID string) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM acl WHERE node_id = ? AND principal_id = ?`, nodeID, principalID)
	return err
}

func (s *Store) CipherKey(ctx context.Context, nodeID, principalID string) (string, error) {
	var key string
	err := s.q.QueryRowContext(ctx, `SELECT cipher_key FROM cipher_keys WHERE node_id = ? AND principal_id = ?`,
		nodeID, principalID).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return key, err
}

func (s *Store) PutCipherKey(ctx context.Context, nodeID, principalID, key string) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO cipher_keys (node_id, principal_id, cipher_key) VALUES (?, ?, ?)
		ON CONFLICT(node_id, principal_id) DO UPDATE SET cipher_key = excluded.cipher_key`,
		nodeID, principalID, key)
	if err != nil {
		return fmt.Errorf("put cipher key on %s: %w", nodeID, err)
	}
	return nil
}
