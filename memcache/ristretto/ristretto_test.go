package ristretto

import "testing"

func TestRistrettoCache(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("zero config must be rejected")
	}

	c, err := New(Config{NumCounters: 1000, MaxCost: 1 << 20, BufferItems: 64})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if !c.Set("a", []byte("payload")) {
		t.Skip("ristretto dropped the set under contention")
	}
	c.Wait()
	if v, ok := c.Get("a"); !ok || string(v) != "payload" {
		t.Fatalf("Get = %q, %v", v, ok)
	}
	c.Delete("a")
	c.Wait()
	if _, ok := c.Get("a"); ok {
		t.Fatalf("deleted key still present")
	}
}

func TestRistrettoRejectsOverBudget(t *testing.T) {
	c, err := New(Config{NumCounters: 100, MaxCost: 8, BufferItems: 64})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	c.Set("big", make([]byte, 64))
	c.Wait()
	if _, ok := c.Get("big"); ok {
		t.Fatalf("entry larger than MaxCost should not be retained")
	}
}
