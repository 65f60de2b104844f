package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Backend types.
const (
	TypeMemory = "memory"
	TypeSQLite = "sqlite"
	TypeValkey = "valkey"
)

var (
	// ErrNotFound is returned by Get when no document exists for the email.
	ErrNotFound = errors.New("token document not found")

	// ErrInvalidEmail is returned for keys that are not email addresses.
	ErrInvalidEmail = errors.New("invalid email address")
)

// Document is the stored record for one Google account.
type Document struct {
	Email     string        `json:"email"`
	Token     *oauth2.Token `json:"token"`
	Scopes    []string      `json:"scopes,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Store is a document store for token documents.
type Store interface {
	// Get returns the document for email or ErrNotFound.
	Get(ctx context.Context, email string) (*Document, error)

	// Upsert inserts or replaces the document keyed by doc.Email.
	Upsert(ctx context.Context, doc *Document) error

	// Delete removes the document. Deleting a missing document is not an error.
	Delete(ctx context.Context, email string) error

	// List returns all stored emails in ascending order.
	List(ctx context.Context) ([]string, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// NormalizeEmail lower-cases and trims an email and checks its shape.
func NormalizeEmail(email string) (string, error) {
	e := strings.ToLower(strings.TrimSpace(email))
	at := strings.IndexByte(e, '@')
	if at <= 0 || at != strings.LastIndexByte(e, '@') || at == len(e)-1 {
		return "", fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	if strings.ContainsAny(e, " \t\r\n") {
		return "", fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	return e, nil
}

// prepare validates doc, normalizes its key and stamps timestamps on a copy.
func prepare(doc *Document, now time.Time) (*Document, error) {
	if doc == nil {
		return nil, fmt.Errorf("document cannot be nil")
	}
	if doc.Token == nil {
		return nil, fmt.Errorf("document token cannot be nil")
	}
	email, err := NormalizeEmail(doc.Email)
	if err != nil {
		return nil, err
	}

	out := *doc
	out.Email = email
	out.Scopes = append([]string(nil), doc.Scopes...)
	tok := *doc.Token
	out.Token = &tok
	out.UpdatedAt = now.UTC()
	if out.CreatedAt.IsZero() {
		out.CreatedAt = out.UpdatedAt
	}
	return &out, nil
}
