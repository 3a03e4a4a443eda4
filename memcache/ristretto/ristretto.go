// Package ristretto adapts dgraph-io/ristretto as a bounded memcache.Cache.
// Cost is the payload length, so MaxCost is a byte budget for the whole cache.
package ristretto

import (
	"errors"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/stowage/memcache"
)

type Cache struct {
	c *rc.Cache
}

var _ memcache.Cache = (*Cache)(nil)

type Config struct {
	NumCounters int64 // ~10x expected item count
	MaxCost     int64 // total bytes
	BufferItems int64 // 64 is a good default
	Metrics     bool
}

func New(cfg Config) (*Cache, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c}, nil
}

func (p *Cache) Get(key string) ([]byte, bool) {
	v, ok := p.c.Get(key)
	if !ok {
		return nil, false
	}
	b, _ := v.([]byte)
	if b == nil {
		p.c.Del(key)
		return nil, false
	}
	return b, true
}

// Set is asynchronous in ristretto: a accepted value may become visible
// slightly later, or be dropped by the admission policy.
func (p *Cache) Set(key string, value []byte) bool {
	return p.c.Set(key, value, int64(len(value)))
}

func (p *Cache) Delete(key string) {
	p.c.Del(key)
}

// Wait blocks until buffered writes are applied.
func (p *Cache) Wait() { p.c.Wait() }

func (p *Cache) Close() error {
	p.c.Wait()
	p.c.Close()
	return nil
}

func (p *Cache) Metrics() *rc.Metrics { return p.c.Metrics }
