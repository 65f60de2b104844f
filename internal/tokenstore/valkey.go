package tokenstore

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/valkey-io/valkey-go"
)

// DefaultValkeyKeyPrefix namespaces all keys written by ValkeyStore.
const DefaultValkeyKeyPrefix = "gwmcp:"

// ValkeyConfig configures the Valkey backend.
type ValkeyConfig struct {
	// Addr is the server address, e.g. "valkey.namespace.svc:6379".
	Addr string

	Username string
	Password string

	DB int

	// KeyPrefix defaults to DefaultValkeyKeyPrefix.
	KeyPrefix string

	TLSEnabled bool

	// TLSCAFile is an optional PEM bundle for servers signed by a private CA.
	TLSCAFile string
}

// ValkeyStore stores each document under its own key and tracks emails in a set.
type ValkeyStore struct {
	client valkey.Client
	prefix string
	codec  codec
	now    func() time.Time
}

// NewValkeyStore connects to Valkey.
func NewValkeyStore(cfg ValkeyConfig, sealer *Sealer) (*ValkeyStore, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("valkey address is required")
	}

	opt := valkey.ClientOption{
		InitAddress: []string{cfg.Addr},
		Username:    cfg.Username,
		Password:    cfg.Password,
		SelectDB:    cfg.DB,
	}

	if cfg.TLSEnabled {
		tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
		if cfg.TLSCAFile != "" {
			pem, err := os.ReadFile(cfg.TLSCAFile)
			if err != nil {
				return nil, fmt.Errorf("reading valkey CA file: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(pem) {
				return nil, fmt.Errorf("no certificates found in %s", cfg.TLSCAFile)
			}
			tlsConfig.RootCAs = pool
		}
		opt.TLSConfig = tlsConfig
	}

	client, err := valkey.NewClient(opt)
	if err != nil {
		return nil, fmt.Errorf("connecting to valkey: %w", err)
	}

	return newValkeyStoreWithClient(client, cfg.KeyPrefix, sealer), nil
}

func newValkeyStoreWithClient(client valkey.Client, prefix string, sealer *Sealer) *ValkeyStore {
	if prefix == "" {
		prefix = DefaultValkeyKeyPrefix
	}
	return &ValkeyStore{
		client: client,
		prefix: prefix,
		codec:  newCodec(sealer),
		now:    time.Now,
	}
}

func (s *ValkeyStore) documentKey(email string) string {
	return s.prefix + "token:" + email
}

func (s *ValkeyStore) indexKey() string {
	return s.prefix + "tokens"
}

func (s *ValkeyStore) Get(ctx context.Context, email string) (*Document, error) {
	key, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}

	stored, err := s.client.Do(ctx, s.client.B().Get().Key(s.documentKey(key)).Build()).ToString()
	if valkey.IsValkeyNil(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading token document: %w", err)
	}
	return s.codec.decode(stored)
}

func (s *ValkeyStore) Upsert(ctx context.Context, doc *Document) error {
	prepared, err := prepare(doc, s.now())
	if err != nil {
		return err
	}
	encoded, err := s.codec.encode(prepared)
	if err != nil {
		return err
	}

	cmds := valkey.Commands{
		s.client.B().Set().Key(s.documentKey(prepared.Email)).Value(encoded).Build(),
		s.client.B().Sadd().Key(s.indexKey()).Member(prepared.Email).Build(),
	}
	for _, resp := range s.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return fmt.Errorf("writing token document: %w", err)
		}
	}
	return nil
}

func (s *ValkeyStore) Delete(ctx context.Context, email string) error {
	key, err := NormalizeEmail(email)
	if err != nil {
		return err
	}

	cmds := valkey.Commands{
		s.client.B().Del().Key(s.documentKey(key)).Build(),
		s.client.B().Srem().Key(s.indexKey()).Member(key).Build(),
	}
	for _, resp := range s.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return fmt.Errorf("deleting token document: %w", err)
		}
	}
	return nil
}

func (s *ValkeyStore) List(ctx context.Context) ([]string, error) {
	emails, err := s.client.Do(ctx, s.client.B().Smembers().Key(s.indexKey()).Build()).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("listing token documents: %w", err)
	}
	sort.Strings(emails)
	return emails, nil
}

func (s *ValkeyStore) Ping(ctx context.Context) error {
	return s.client.Do(ctx, s.client.B().Ping().Build()).Error()
}

func (s *ValkeyStore) Close() error {
	s.client.Close()
	return nil
}
