package tokenstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func testDocument(email string) *Document {
	return &Document{
		Email: email,
		Token: &oauth2.Token{
			AccessToken:  "access-" + email,
			RefreshToken: "refresh-" + email,
			TokenType:    "Bearer",
			Expiry:       time.Now().Add(time.Hour).Truncate(time.Second),
		},
		Scopes: []string{"https://www.googleapis.com/auth/drive"},
	}
}

// runStoreSuite exercises the behaviour every backend must share.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("get missing returns ErrNotFound", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("upsert then get normalizes the key", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Upsert(ctx, testDocument("Jane@Example.com")))

		doc, err := s.Get(ctx, "jane@example.com")
		require.NoError(t, err)
		assert.Equal(t, "jane@example.com", doc.Email)
		assert.Equal(t, "access-Jane@Example.com", doc.Token.AccessToken)
		assert.Equal(t, "refresh-Jane@Example.com", doc.Token.RefreshToken)
		assert.Equal(t, []string{"https://www.googleapis.com/auth/drive"}, doc.Scopes)
		assert.False(t, doc.CreatedAt.IsZero())
		assert.False(t, doc.UpdatedAt.IsZero())
	})

	t.Run("upsert replaces an existing document", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Upsert(ctx, testDocument("a@example.com")))

		updated := testDocument("a@example.com")
		updated.Token.AccessToken = "rotated"
		require.NoError(t, s.Upsert(ctx, updated))

		doc, err := s.Get(ctx, "a@example.com")
		require.NoError(t, err)
		assert.Equal(t, "rotated", doc.Token.AccessToken)

		emails, err := s.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a@example.com"}, emails)
	})

	t.Run("list is sorted", func(t *testing.T) {
		s := newStore(t)
		for _, e := range []string{"c@example.com", "a@example.com", "b@example.com"} {
			require.NoError(t, s.Upsert(ctx, testDocument(e)))
		}
		emails, err := s.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a@example.com", "b@example.com", "c@example.com"}, emails)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Upsert(ctx, testDocument("a@example.com")))
		require.NoError(t, s.Delete(ctx, "A@example.com"))
		require.NoError(t, s.Delete(ctx, "a@example.com"))

		_, err := s.Get(ctx, "a@example.com")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("rejects invalid documents", func(t *testing.T) {
		s := newStore(t)
		assert.Error(t, s.Upsert(ctx, nil))
		assert.Error(t, s.Upsert(ctx, &Document{Email: "a@example.com"}))

		err := s.Upsert(ctx, testDocument("not-an-email"))
		assert.True(t, errors.Is(err, ErrInvalidEmail), "got %v", err)
	})

	t.Run("ping", func(t *testing.T) {
		s := newStore(t)
		assert.NoError(t, s.Ping(ctx))
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		return NewMemoryStore(nil)
	})
}

func TestSQLiteStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "tokens.db"), nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestSQLiteStore_SealedAtRest(t *testing.T) {
	ctx := context.Background()
	key, err := GenerateKey()
	require.NoError(t, err)
	sealer, err := NewSealer(key)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "tokens.db")
	s, err := NewSQLiteStore(ctx, path, sealer)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Upsert(ctx, testDocument("a@example.com")))

	var stored string
	require.NoError(t, s.db.QueryRowContext(ctx,
		`SELECT document FROM token_documents WHERE email = ?`, "a@example.com").Scan(&stored))
	assert.NotContains(t, stored, "access-a@example.com")

	doc, err := s.Get(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "access-a@example.com", doc.Token.AccessToken)
}

func TestSQLiteStore_ReopenKeepsDocuments(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "tokens.db")

	s, err := NewSQLiteStore(ctx, path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Upsert(ctx, testDocument("a@example.com")))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(ctx, path, nil)
	require.NoError(t, err)
	defer s.Close()

	doc, err := s.Get(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "refresh-a@example.com", doc.Token.RefreshToken)
}

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "jane@example.com", want: "jane@example.com"},
		{in: "  Jane@Example.COM ", want: "jane@example.com"},
		{in: "", wantErr: true},
		{in: "default", wantErr: true},
		{in: "@example.com", wantErr: true},
		{in: "jane@", wantErr: true},
		{in: "a@b@c", wantErr: true},
		{in: "ja ne@example.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeEmail(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidEmail)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{Type: TypeMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, Config{SQLitePath: filepath.Join(t.TempDir(), "t.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	_ = s.Close()

	_, err = Open(ctx, Config{Type: "mongo"})
	assert.Error(t, err)

	_, err = Open(ctx, Config{Type: TypeMemory, EncryptionKey: []byte("short")})
	assert.Error(t, err)

	_, err = Open(ctx, Config{Type: TypeValkey})
	assert.Error(t, err)
}

func TestValkeyKeys(t *testing.T) {
	s := newValkeyStoreWithClient(nil, "", nil)
	assert.Equal(t, "gwmcp:token:a@example.com", s.documentKey("a@example.com"))
	assert.Equal(t, "gwmcp:tokens", s.indexKey())

	s = newValkeyStoreWithClient(nil, "tenant1:", nil)
	assert.Equal(t, "tenant1:token:a@example.com", s.documentKey("a@example.com"))
}
