package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/reverie/pkg/reverie/cluster"
	"github.com/cognicore/reverie/pkg/reverie/internalerr"
	"github.com/cognicore/reverie/pkg/reverie/store"
	"github.com/cognicore/reverie/pkg/reverie/thought"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}

	// Enable foreign keys
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS thoughts (
	id TEXT PRIMARY KEY,
	content TEXT NOT NULL,
	category TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS thoughts_created ON thoughts(created_at);

CREATE TABLE IF NOT EXISTS clusters (
	id TEXT PRIMARY KEY,
	position INTEGER NOT NULL,
	name TEXT NOT NULL,
	parent_id TEXT,
	keywords TEXT,
	description TEXT,
	created_at TEXT NOT NULL,
	user_modified INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS cluster_thoughts (
	cluster_id TEXT NOT NULL,
	thought_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	PRIMARY KEY(cluster_id, thought_id),
	FOREIGN KEY(cluster_id) REFERENCES clusters(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS relevance (
	thought1 TEXT NOT NULL,
	thought2 TEXT NOT NULL,
	position INTEGER NOT NULL,
	score REAL NOT NULL,
	reason TEXT,
	PRIMARY KEY(thought1, thought2)
);

CREATE TABLE IF NOT EXISTS adjustments (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT UNIQUE NOT NULL,
	cluster_id TEXT NOT NULL,
	type TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	data TEXT NOT NULL
);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// UpsertThought inserts or updates a thought
func (s *sqliteStore) UpsertThought(ctx context.Context, t thought.Thought) error {
	if t.ID == "" {
		return fmt.Errorf("%w: thought without id", internalerr.ErrInvalidInput)
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO thoughts (id, content, category, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	content=excluded.content,
	category=excluded.category,
	created_at=excluded.created_at,
	updated_at=excluded.updated_at;
`, t.ID, t.Content, string(t.Category), formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
	return err
}

// GetThought retrieves a thought by ID
func (s *sqliteStore) GetThought(ctx context.Context, id string) (thought.Thought, bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, content, category, created_at, updated_at
FROM thoughts
WHERE id = ?;
`, id)
	t, err := scanThought(row)
	if errors.Is(err, sql.ErrNoRows) {
		return thought.Thought{}, false, nil
	}
	if err != nil {
		return thought.Thought{}, false, err
	}
	return t, true, nil
}

// DeleteThought removes a thought, its relevance rows and its memberships
func (s *sqliteStore) DeleteThought(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM thoughts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("%w: thought %s", internalerr.ErrNotFound, id)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM cluster_thoughts WHERE thought_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM relevance WHERE thought1 = ? OR thought2 = ?`, id, id); err != nil {
		return err
	}
	return tx.Commit()
}

// ListThoughts returns all thoughts, newest first
func (s *sqliteStore) ListThoughts(ctx context.Context) ([]thought.Thought, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, content, category, created_at, updated_at
FROM thoughts;
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []thought.Thought
	for rows.Next() {
		t, err := scanThought(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Timestamps are compared as times, not strings, so sort in Go.
	store.SortNewestFirst(out)
	return out, nil
}

// SaveHierarchy replaces the stored clusters and relevance
func (s *sqliteStore) SaveHierarchy(ctx context.Context, h store.Hierarchy) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := replaceHierarchy(ctx, tx, h); err != nil {
		return err
	}
	return tx.Commit()
}

func replaceHierarchy(ctx context.Context, tx *sql.Tx, h store.Hierarchy) error {
	for _, stmt := range []string{`DELETE FROM cluster_thoughts`, `DELETE FROM clusters`, `DELETE FROM relevance`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	clusterStmt, err := tx.PrepareContext(ctx, `
INSERT INTO clusters (id, position, name, parent_id, keywords, description, created_at, user_modified)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer clusterStmt.Close()
	memberStmt, err := tx.PrepareContext(ctx, `
INSERT OR IGNORE INTO cluster_thoughts (cluster_id, thought_id, position) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer memberStmt.Close()

	for pos, c := range h.Clusters {
		keywords, err := json.Marshal(c.Keywords)
		if err != nil {
			return err
		}
		var parent sql.NullString
		if c.ParentID != "" {
			parent = sql.NullString{String: c.ParentID, Valid: true}
		}
		if _, err := clusterStmt.ExecContext(ctx, c.ID, pos, c.Name, parent, string(keywords),
			c.Description, formatTime(c.CreatedAt), c.IsUserModified); err != nil {
			return err
		}
		for i, tid := range c.ThoughtIDs {
			if _, err := memberStmt.ExecContext(ctx, c.ID, tid, i); err != nil {
				return err
			}
		}
	}

	relStmt, err := tx.PrepareContext(ctx, `
INSERT INTO relevance (thought1, thought2, position, score, reason)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(thought1, thought2) DO UPDATE SET
	score=excluded.score,
	reason=excluded.reason`)
	if err != nil {
		return err
	}
	defer relStmt.Close()

	for pos, r := range h.Relevance {
		a, b := r.ThoughtID1, r.ThoughtID2
		if thought.PairKey(a, b) == "" {
			continue
		}
		if a > b {
			a, b = b, a
		}
		if _, err := relStmt.ExecContext(ctx, a, b, pos, r.Score, r.Reason); err != nil {
			return err
		}
	}
	return nil
}

// LoadHierarchy reads clusters in saved order with their members
func (s *sqliteStore) LoadHierarchy(ctx context.Context) (store.Hierarchy, error) {
	var h store.Hierarchy

	rows, err := s.db.QueryContext(ctx, `
SELECT id, name, parent_id, keywords, description, created_at, user_modified
FROM clusters
ORDER BY position;
`)
	if err != nil {
		return h, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			c        cluster.Cluster
			parent   sql.NullString
			keywords sql.NullString
			desc     sql.NullString
			created  string
		)
		if err := rows.Scan(&c.ID, &c.Name, &parent, &keywords, &desc, &created, &c.IsUserModified); err != nil {
			return h, err
		}
		c.ParentID = parent.String
		c.Description = desc.String
		if c.CreatedAt, err = parseTime(created); err != nil {
			return h, fmt.Errorf("cluster %s: %w", c.ID, err)
		}
		if keywords.Valid && keywords.String != "" {
			if err := json.Unmarshal([]byte(keywords.String), &c.Keywords); err != nil {
				return h, err
			}
		}
		h.Clusters = append(h.Clusters, c)
	}
	if err := rows.Err(); err != nil {
		return h, err
	}

	for i := range h.Clusters {
		ids, err := s.loadStringColumn(ctx,
			`SELECT thought_id FROM cluster_thoughts WHERE cluster_id=? ORDER BY position`, h.Clusters[i].ID)
		if err != nil {
			return h, err
		}
		h.Clusters[i].ThoughtIDs = ids
	}

	relRows, err := s.db.QueryContext(ctx, `
SELECT thought1, thought2, score, reason
FROM relevance
ORDER BY position;
`)
	if err != nil {
		return h, err
	}
	defer relRows.Close()

	for relRows.Next() {
		var (
			r      thought.Relevance
			reason sql.NullString
		)
		if err := relRows.Scan(&r.ThoughtID1, &r.ThoughtID2, &r.Score, &reason); err != nil {
			return h, err
		}
		r.Reason = reason.String
		h.Relevance = append(h.Relevance, r)
	}
	return h, relRows.Err()
}

// AppendAdjustment appends to the adjustment log
func (s *sqliteStore) AppendAdjustment(ctx context.Context, a cluster.Adjustment) error {
	return insertAdjustment(ctx, s.db, a)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertAdjustment(ctx context.Context, db execer, a cluster.Adjustment) error {
	data, err := json.Marshal(a.Data)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
INSERT INTO adjustments (id, cluster_id, type, timestamp, data)
VALUES (?, ?, ?, ?, ?);
`, a.ID, a.ClusterID, string(a.Type), formatTime(a.Timestamp), string(data))
	return err
}

// ListAdjustments returns the adjustment log, oldest first
func (s *sqliteStore) ListAdjustments(ctx context.Context) ([]cluster.Adjustment, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, cluster_id, type, timestamp, data
FROM adjustments
ORDER BY seq;
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []cluster.Adjustment
	for rows.Next() {
		var (
			a       cluster.Adjustment
			typ, ts string
			data    string
		)
		if err := rows.Scan(&a.ID, &a.ClusterID, &typ, &ts, &data); err != nil {
			return nil, err
		}
		a.Type = cluster.AdjustmentType(typ)
		var err error
		if a.Timestamp, err = parseTime(ts); err != nil {
			return nil, fmt.Errorf("adjustment %s: %w", a.ID, err)
		}
		if err := json.Unmarshal([]byte(data), &a.Data); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Replace swaps the database content for snap in one transaction
func (s *sqliteStore) Replace(ctx context.Context, snap store.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{`DELETE FROM thoughts`, `DELETE FROM adjustments`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT OR REPLACE INTO thoughts (id, content, category, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, t := range snap.Thoughts {
		if t.ID == "" {
			return fmt.Errorf("%w: thought without id", internalerr.ErrInvalidInput)
		}
		if _, err := stmt.ExecContext(ctx, t.ID, t.Content, string(t.Category),
			formatTime(t.CreatedAt), formatTime(t.UpdatedAt)); err != nil {
			return err
		}
	}

	if err := replaceHierarchy(ctx, tx, store.Hierarchy{Clusters: snap.Clusters, Relevance: snap.Relevance}); err != nil {
		return err
	}
	for _, a := range snap.Adjustments {
		if err := insertAdjustment(ctx, tx, a); err != nil {
			return err
		}
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanThought(row rowScanner) (thought.Thought, error) {
	var (
		t                thought.Thought
		cat              string
		created, updated string
	)
	if err := row.Scan(&t.ID, &t.Content, &cat, &created, &updated); err != nil {
		return thought.Thought{}, err
	}
	t.Category = thought.Category(cat)
	var err error
	if t.CreatedAt, err = parseTime(created); err != nil {
		return thought.Thought{}, fmt.Errorf("thought %s: %w", t.ID, err)
	}
	if t.UpdatedAt, err = parseTime(updated); err != nil {
		return thought.Thought{}, fmt.Errorf("thought %s: %w", t.ID, err)
	}
	return t, nil
}

func (s *sqliteStore) loadStringColumn(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var val string
		if err := rows.Scan(&val); err != nil {
			return nil, err
		}
		result = append(result, val)
	}
	return result, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
