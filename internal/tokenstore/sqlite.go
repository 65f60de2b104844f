package tokenstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS token_documents (
	email      TEXT PRIMARY KEY,
	document   TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
)`

// SQLiteStore is a document store backed by a single SQLite table.
type SQLiteStore struct {
	db    *sql.DB
	path  string
	codec codec
	now   func() time.Time
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(ctx context.Context, path string, sealer *Sealer) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single connection serializes writers and avoids SQLITE_BUSY under WAL.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating token_documents table: %w", err)
	}

	return &SQLiteStore{
		db:    db,
		path:  path,
		codec: newCodec(sealer),
		now:   time.Now,
	}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) Get(ctx context.Context, email string) (*Document, error) {
	key, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}

	var stored string
	err = s.db.QueryRowContext(ctx,
		`SELECT document FROM token_documents WHERE email = ?`, key,
	).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying token document: %w", err)
	}
	return s.codec.decode(stored)
}

func (s *SQLiteStore) Upsert(ctx context.Context, doc *Document) error {
	prepared, err := prepare(doc, s.now())
	if err != nil {
		return err
	}
	encoded, err := s.codec.encode(prepared)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO token_documents (email, document, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET
			document = excluded.document,
			updated_at = excluded.updated_at`,
		prepared.Email, encoded, prepared.CreatedAt, prepared.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting token document: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, email string) error {
	key, err := NormalizeEmail(email)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM token_documents WHERE email = ?`, key); err != nil {
		return fmt.Errorf("deleting token document: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT email FROM token_documents ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("listing token documents: %w", err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("scanning email: %w", err)
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
