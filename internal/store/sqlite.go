package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/woozymasta/geojsonkit/internal/manifest"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS manifests (
	ref        TEXT PRIMARY KEY,
	position   INTEGER NOT NULL,
	batch_ids  TEXT NOT NULL,
	geojson    TEXT,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_manifests_position ON manifests(position);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ReplaceManifest(ctx context.Context, entries []manifest.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM manifests`); err != nil {
		return eris.Wrap(err, "sqlite: clear manifests")
	}

	now := time.Now().UTC()
	for i, e := range entries {
		batchJSON, err := json.Marshal(e.BatchIDs)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal batch ids")
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO manifests (ref, position, batch_ids, geojson, updated_at) VALUES (?, ?, ?, NULL, ?)
			 ON CONFLICT(ref) DO UPDATE SET batch_ids = excluded.batch_ids, geojson = NULL, updated_at = excluded.updated_at`,
			e.Ref, i, string(batchJSON), now,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: upsert manifest %s", e.Ref)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit manifest")
}

func (s *SQLiteStore) AttachGeoJSON(ctx context.Context, ref string, doc json.RawMessage) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE manifests SET geojson = ?, updated_at = ? WHERE ref = ?`,
		string(doc), time.Now().UTC(), ref,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: attach geojson %s", ref)
	}
	return checkRowsAffected(res, ref)
}

func (s *SQLiteStore) Get(ctx context.Context, ref string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT ref, batch_ids, geojson, updated_at FROM manifests WHERE ref = ?`, ref,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "ref %s", ref)
	}
	return rec, err
}

func (s *SQLiteStore) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ref, batch_ids, geojson, updated_at FROM manifests ORDER BY position`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list manifests")
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: iterate manifests")
}

func (s *SQLiteStore) ListUnmapped(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ref FROM manifests WHERE geojson IS NULL ORDER BY position`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list unmapped")
	}
	defer rows.Close()

	var refs []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan ref")
		}
		refs = append(refs, ref)
	}
	return refs, eris.Wrap(rows.Err(), "sqlite: iterate unmapped")
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM manifests`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count manifests")
}

func (s *SQLiteStore) DeleteAll(ctx context.Context) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	rows, err := tx.QueryContext(ctx, `SELECT ref FROM manifests ORDER BY position`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: select refs")
	}
	var refs []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			rows.Close()
			return nil, eris.Wrap(err, "sqlite: scan ref")
		}
		refs = append(refs, ref)
	}
	rows.Close()

	if _, err := tx.ExecContext(ctx, `DELETE FROM manifests`); err != nil {
		return nil, eris.Wrap(err, "sqlite: delete manifests")
	}

	return refs, eris.Wrap(tx.Commit(), "sqlite: commit delete")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		rec       Record
		batchJSON string
		geojson   sql.NullString
	)
	if err := row.Scan(&rec.Ref, &batchJSON, &geojson, &rec.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "sqlite: scan manifest")
	}
	if err := json.Unmarshal([]byte(batchJSON), &rec.BatchIDs); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal batch ids for %s", rec.Ref)
	}
	if geojson.Valid {
		rec.GeoJSON = json.RawMessage(geojson.String)
	}
	return &rec, nil
}

func checkRowsAffected(res sql.Result, ref string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "ref %s", ref)
	}
	return nil
}
