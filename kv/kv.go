// Package kv defines the key/value backend behind stowage's KeyValue target:
// a flat, string-keyed byte store with last-write-wins semantics, modeled on
// an application preferences store.
package kv

import (
	"context"
	"slices"
	"sync"
)

// Backend is the key/value persistence contract.
// Get returns (value, true, nil) on hit and (nil, false, nil) when the key is
// absent; absence is never an error. Delete of an absent key succeeds.
// Implementations must be safe for concurrent use.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close(ctx context.Context) error
}

// Memory is a process-local Backend. Nothing survives the process.
type Memory struct {
	mu sync.RWMutex
	m  map[string][]byte
}

var _ Backend = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{m: make(map[string][]byte)}
}

func (s *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	v, ok := s.m[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(v), true, nil
}

func (s *Memory) Set(_ context.Context, key string, value []byte) error {
	v := slices.Clone(value)
	if v == nil {
		v = []byte{}
	}
	s.mu.Lock()
	s.m[key] = v
	s.mu.Unlock()
	return nil
}

func (s *Memory) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.m, key)
	s.mu.Unlock()
	return nil
}

func (s *Memory) Close(context.Context) error { return nil }
