package tokenstore

import (
	"context"
	"fmt"
)

// Config selects and configures a backend.
type Config struct {
	// Type is memory, sqlite or valkey (default: sqlite).
	Type string

	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string

	Valkey ValkeyConfig

	// EncryptionKey enables at-rest sealing when set. Must be KeySize bytes.
	EncryptionKey []byte
}

// Open builds the configured backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	sealer, err := NewSealer(cfg.EncryptionKey)
	if err != nil {
		return nil, err
	}

	switch cfg.Type {
	case TypeMemory:
		return NewMemoryStore(sealer), nil
	case "", TypeSQLite:
		return NewSQLiteStore(ctx, cfg.SQLitePath, sealer)
	case TypeValkey:
		return NewValkeyStore(cfg.Valkey, sealer)
	default:
		return nil, fmt.Errorf("unsupported token store type %q (supported: memory, sqlite, valkey)", cfg.Type)
	}
}
