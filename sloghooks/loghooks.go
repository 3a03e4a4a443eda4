// Package sloghooks reports stowage cache and backend events to a *slog.Logger.
package sloghooks

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/stowage"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	HitEvery  uint64
	MissEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	hitCtr  atomic.Uint64
	missCtr atomic.Uint64
}

var _ stowage.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) CacheHit(ns, key string) {
	if h.l == nil || !sample(h.opts.HitEvery, &h.hitCtr) {
		return
	}
	h.l.Debug("stowage.cache_hit",
		"ns", ns,
		"key", h.redact(key))
}

func (h *Hooks) CacheMiss(ns, key string) {
	if h.l == nil || !sample(h.opts.MissEvery, &h.missCtr) {
		return
	}
	h.l.Debug("stowage.cache_miss",
		"ns", ns,
		"key", h.redact(key))
}

// Oversize payloads are expected traffic; other skips are worth a look.
func (h *Hooks) CacheAdmitSkipped(ns, key string, size int, reason string) {
	if h.l == nil {
		return
	}
	level := slog.LevelInfo
	if reason == "oversize" {
		level = slog.LevelDebug
	}
	h.l.Log(context.Background(), level, "stowage.cache_admit_skipped",
		"ns", ns,
		"key", h.redact(key),
		"size", size,
		"reason", reason)
}

func (h *Hooks) BackendError(op, ns, key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("stowage.backend_error",
		"op", op,
		"ns", ns,
		"key", h.redact(key),
		"err", err)
}
