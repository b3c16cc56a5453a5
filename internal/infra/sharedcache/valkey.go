package sharedcache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"
)

const defaultPrefix = "lunch"

// ValkeyStore keeps cache payloads in a Valkey-compatible server so that
// several replicas share upstream results.
type ValkeyStore struct {
	client valkey.Client
	prefix string
}

// NewValkeyStore constructs a store backed by Valkey.
func NewValkeyStore(client valkey.Client, prefix string) *ValkeyStore {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &ValkeyStore{client: client, prefix: prefix}
}

// Load returns the payload stored under key, if any.
func (s *ValkeyStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	cmd := s.client.B().Get().Key(s.namespaced(key)).Build()
	payload, err := s.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return payload, true, nil
}

// Store writes payload with an expiry. Sub-second TTLs are rounded up since
// SET EX works in whole seconds.
func (s *ValkeyStore) Store(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if ttl < time.Second {
		ttl = time.Second
	}
	cmd := s.client.B().Set().Key(s.namespaced(key)).Value(valkey.BinaryString(payload)).Ex(ttl).Build()
	return s.client.Do(ctx, cmd).Error()
}

// Ping checks connectivity.
func (s *ValkeyStore) Ping(ctx context.Context) error {
	return s.client.Do(ctx, s.client.B().Ping().Build()).Error()
}

// Close releases the underlying connections.
func (s *ValkeyStore) Close() {
	s.client.Close()
}

func (s *ValkeyStore) namespaced(key string) string {
	return s.prefix + ":" + key
}

// ClientOption turns an address into client options. Addresses with a scheme
// (redis://, rediss://, unix://) are parsed as URLs.
func ClientOption(addr string) (valkey.ClientOption, error) {
	if strings.Contains(addr, "://") {
		return valkey.ParseURL(addr)
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}

// Open connects to addr and verifies the server answers before returning.
func Open(ctx context.Context, addr, prefix string) (*ValkeyStore, error) {
	opt, err := ClientOption(addr)
	if err != nil {
		return nil, fmt.Errorf("parse valkey address: %w", err)
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		return nil, fmt.Errorf("create valkey client: %w", err)
	}
	store := NewValkeyStore(client, prefix)
	if err := store.Ping(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("ping valkey: %w", err)
	}
	return store, nil
}
