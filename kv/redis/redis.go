// Package redis is a kv.Backend on top of go-redis. Values are stored under
// "<prefix>:<key>" with no expiry.
package redis

import (
	"context"
	"errors"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/stowage/kv"
)

var ErrNilClient = errors.New("redis kv: nil client")

type Store struct {
	rdb         goredis.UniversalClient
	prefix      string
	closeClient bool
}

var _ kv.Backend = (*Store)(nil)

type Config struct {
	Client      goredis.UniversalClient
	Prefix      string // "" => "stowage"
	CloseClient bool   // set true only if this store exclusively owns the client
}

func New(cfg Config) (*Store, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "stowage"
	}
	return &Store{rdb: cfg.Client, prefix: prefix, closeClient: cfg.CloseClient}, nil
}

func (s *Store) key(k string) string { return s.prefix + ":" + k }

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if err == goredis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.rdb.Set(ctx, s.key(key), value, 0).Err()
}

// Delete is DEL; removing a missing key is not an error in redis.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.key(key)).Err()
}

// Close releases the client only when this store owns it.
// Safe to call multiple times.
func (s *Store) Close(context.Context) error {
	if s.closeClient {
		if err := s.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
