// Package bigcache adapts allegro/bigcache as a memcache.Cache.
// Entries expire after LifeWindow; there is no per-entry TTL.
package bigcache

import (
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/stowage/memcache"
)

type Cache struct {
	c *bc.BigCache
}

var _ memcache.Cache = (*Cache)(nil)

type Config struct {
	LifeWindow         time.Duration // 0 => 24h
	CleanWindow        time.Duration // 0 => bigcache default
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // 0 = unlimited
}

func New(cfg Config) (*Cache, error) {
	life := cfg.LifeWindow
	if life <= 0 {
		life = 24 * time.Hour
	}
	conf := bc.DefaultConfig(life)
	conf.Verbose = false
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.NewBigCache(conf)
	if err != nil {
		return nil, err
	}
	return &Cache{c: c}, nil
}

func (p *Cache) Get(key string) ([]byte, bool) {
	b, err := p.c.Get(key)
	if err != nil {
		return nil, false
	}
	return b, true
}

// Set copies value into bigcache's shards; it fails when the entry cannot fit.
func (p *Cache) Set(key string, value []byte) bool {
	return p.c.Set(key, value) == nil
}

// Delete ignores bc.ErrEntryNotFound and any other delete failure: a cache
// entry that could not be removed is still bounded by LifeWindow.
func (p *Cache) Delete(key string) {
	_ = p.c.Delete(key)
}

func (p *Cache) Len() int { return p.c.Len() }

func (p *Cache) Close() error {
	return p.c.Close()
}
