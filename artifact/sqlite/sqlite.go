// Package sqlite implements core.AssetRepository on top of a local SQLite
// database (pure Go driver, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hupe1980/assetflow/artifact"
	"github.com/hupe1980/assetflow/core"
	_ "modernc.org/sqlite"
)

// Store is a SQLite-backed asset repository.
type Store struct {
	db   *sql.DB
	opts artifact.Options
}

// New opens (or creates) the database at dbPath and initializes the schema.
func New(dbPath string, optFns ...func(o *artifact.Options)) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	// WAL mode for better read concurrency.
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	opts := artifact.DefaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &Store{db: db, opts: opts}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS assets (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		file_type TEXT NOT NULL DEFAULT '',
		data_type TEXT NOT NULL DEFAULT '',
		content_json TEXT,
		status TEXT NOT NULL,
		creator TEXT NOT NULL DEFAULT '',
		tags_json TEXT,
		version INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_assets_data_type ON assets(data_type);

	CREATE TABLE IF NOT EXISTS asset_files (
		asset_id TEXT PRIMARY KEY,
		data BLOB NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create inserts a new asset under a fresh server id.
func (s *Store) Create(ctx context.Context, in core.AssetInput) (core.Asset, error) {
	if err := artifact.ValidateInput(in); err != nil {
		return core.Asset{}, err
	}
	a := artifact.NewRecord(s.opts.IDGenerator(), in, s.opts.Clock())
	if err := s.insert(ctx, s.db, a); err != nil {
		return core.Asset{}, err
	}
	return a, nil
}

// Update replaces the stored fields of id with in.
func (s *Store) Update(ctx context.Context, id string, in core.AssetInput) (core.Asset, error) {
	if err := artifact.ValidateInput(in); err != nil {
		return core.Asset{}, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Asset{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := s.get(ctx, tx, id)
	if err != nil {
		return core.Asset{}, err
	}
	next := artifact.UpdateRecord(cur, in, s.opts.Clock())

	content, tags, err := encode(next)
	if err != nil {
		return core.Asset{}, err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE assets SET name = ?, description = ?, file_type = ?, data_type = ?,
			content_json = ?, creator = ?, tags_json = ?, version = ?, updated_at = ?
		WHERE id = ?`,
		next.Name, next.Description, string(next.FileType), string(next.DataType),
		content, next.Metadata.Creator, tags, next.Metadata.Version,
		next.Metadata.UpdatedAt.UnixMilli(), id,
	)
	if err != nil {
		return core.Asset{}, fmt.Errorf("update asset: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Asset{}, fmt.Errorf("commit: %w", err)
	}
	return next, nil
}

// Delete removes the asset and its file payload.
func (s *Store) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM assets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete asset: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return artifact.NotFound(id)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM asset_files WHERE asset_id = ?`, id); err != nil {
		return fmt.Errorf("delete asset file: %w", err)
	}
	return tx.Commit()
}

// List returns stored assets in insertion order.
func (s *Store) List(ctx context.Context, dataType core.DataType) ([]core.Asset, error) {
	query := selectColumns + ` FROM assets`
	var args []any
	if dataType != "" {
		query += ` WHERE data_type = ?`
		args = append(args, string(dataType))
	}
	query += ` ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []core.Asset{}
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Upload stores file as a FILE asset together with its bytes.
func (s *Store) Upload(ctx context.Context, file core.FileUpload) (core.Asset, error) {
	if strings.TrimSpace(file.Name) == "" {
		file.Name = file.FileName
	}
	a := artifact.FileRecord(s.opts.IDGenerator(), file, s.opts.Clock())
	if err := artifact.ValidateInput(core.InputFromAsset(a)); err != nil {
		return core.Asset{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Asset{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.insert(ctx, tx, a); err != nil {
		return core.Asset{}, err
	}
	data := file.Data
	if data == nil {
		data = []byte{}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO asset_files (asset_id, data) VALUES (?, ?)`, a.ID, data); err != nil {
		return core.Asset{}, fmt.Errorf("insert asset file: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Asset{}, fmt.Errorf("commit: %w", err)
	}
	return a, nil
}

// Download returns the stored file bytes of id.
func (s *Store) Download(ctx context.Context, id string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM asset_files WHERE asset_id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := s.get(ctx, s.db, id); getErr != nil {
			return nil, getErr
		}
		return nil, artifact.ErrNoFile
	}
	if err != nil {
		return nil, fmt.Errorf("read asset file: %w", err)
	}
	return data, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) insert(ctx context.Context, db execer, a core.Asset) error {
	content, tags, err := encode(a)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO assets (id, name, description, file_type, data_type, content_json,
			status, creator, tags_json, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.Description, string(a.FileType), string(a.DataType), content,
		string(a.Status), a.Metadata.Creator, tags, a.Metadata.Version,
		a.Metadata.CreatedAt.UnixMilli(), a.Metadata.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert asset: %w", err)
	}
	return nil
}

const selectColumns = `
	SELECT id, name, description, file_type, data_type, content_json,
	       status, creator, tags_json, version, created_at, updated_at`

func (s *Store) get(ctx context.Context, db querier, id string) (core.Asset, error) {
	row := db.QueryRowContext(ctx, selectColumns+` FROM assets WHERE id = ?`, id)
	a, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Asset{}, artifact.NotFound(id)
	}
	return a, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAsset(row scanner) (core.Asset, error) {
	var (
		a                    core.Asset
		fileType, dataType   string
		status               string
		content, tags        sql.NullString
		createdAt, updatedAt int64
	)
	err := row.Scan(
		&a.ID, &a.Name, &a.Description, &fileType, &dataType, &content,
		&status, &a.Metadata.Creator, &tags, &a.Metadata.Version, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Asset{}, err
		}
		return core.Asset{}, fmt.Errorf("scan asset row: %w", err)
	}

	a.FileType = core.FileType(fileType)
	a.DataType = core.DataType(dataType)
	a.Status = core.AssetStatus(status)
	a.Metadata.CreatedAt = time.UnixMilli(createdAt).UTC()
	a.Metadata.UpdatedAt = time.UnixMilli(updatedAt).UTC()

	if content.Valid {
		c, err := core.DecodeContent(a.DataType, json.RawMessage(content.String))
		if err != nil {
			return core.Asset{}, fmt.Errorf("decode content of %s: %w", a.ID, err)
		}
		a.Content = c
	}
	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &a.Metadata.Tags); err != nil {
			return core.Asset{}, fmt.Errorf("decode tags of %s: %w", a.ID, err)
		}
	}
	return a, nil
}

func encode(a core.Asset) (content, tags sql.NullString, err error) {
	if a.Content != nil {
		b, err := json.Marshal(a.Content)
		if err != nil {
			return content, tags, fmt.Errorf("encode content: %w", err)
		}
		content = sql.NullString{String: string(b), Valid: true}
	}
	if a.Metadata.Tags != nil {
		b, err := json.Marshal(a.Metadata.Tags)
		if err != nil {
			return content, tags, fmt.Errorf("encode tags: %w", err)
		}
		tags = sql.NullString{String: string(b), Valid: true}
	}
	return content, tags, nil
}
