package sloghooks

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func newTestHooks(opts Options) (*Hooks, *bytes.Buffer) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return New(l, opts), &buf
}

func TestKeysAreRedacted(t *testing.T) {
	h, buf := newTestHooks(Options{})
	h.BackendError("store", "fs:cache", "secret-user-42", errors.New("disk full"))

	out := buf.String()
	if strings.Contains(out, "secret-user-42") {
		t.Fatalf("raw key leaked: %s", out)
	}
	for _, want := range []string{"stowage.backend_error", "op=store", "ns=fs:cache", "disk full"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %s", want, out)
		}
	}
}

func TestCustomRedactor(t *testing.T) {
	h, buf := newTestHooks(Options{Redact: func(string) string { return "<k>" }})
	h.CacheAdmitSkipped("kv", "x", 10, "stale")
	if !strings.Contains(buf.String(), "key=<k>") || !strings.Contains(buf.String(), "level=INFO") {
		t.Fatalf("out = %s", buf.String())
	}
}

func TestHitSampling(t *testing.T) {
	h, buf := newTestHooks(Options{HitEvery: 4})
	for i := 0; i < 8; i++ {
		h.CacheHit("kv", "k")
	}
	if n := strings.Count(buf.String(), "stowage.cache_hit"); n != 2 {
		t.Fatalf("sampled hits = %d, want 2", n)
	}
}

func TestNilLoggerIsSilent(t *testing.T) {
	h := New(nil, Options{})
	h.CacheHit("kv", "k")
	h.CacheMiss("kv", "k")
	h.CacheAdmitSkipped("kv", "k", 1, "oversize")
	h.BackendError("remove", "kv", "k", errors.New("x"))
}
