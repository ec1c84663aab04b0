// ABOUTME: Tests for the TTL key-value cache.
// ABOUTME: Covers expiry, eviction, and the atomic GetOrSet path.

package dedupe

import (
	"fmt"
	"testing"
	"time"
)

func TestCache_SetAndGet(t *testing.T) {
	c := New(time.Minute, 10)
	defer c.Close()

	c.Set("key", "value")
	got, ok := c.Get("key")
	if !ok {
		t.Fatal("expected key to be present")
	}
	if got != "value" {
		t.Errorf("value mismatch: got %v", got)
	}

	if _, ok := c.Get("other"); ok {
		t.Error("unexpected hit for unknown key")
	}
}

func TestCache_Expiry(t *testing.T) {
	c := New(20*time.Millisecond, 10)
	defer c.Close()

	c.Set("key", 1)
	if _, ok := c.Get("key"); !ok {
		t.Fatal("expected key before expiry")
	}

	time.Sleep(30 * time.Millisecond)
	if _, ok := c.Get("key"); ok {
		t.Error("expected key to expire")
	}
}

func TestCache_GetOrSet(t *testing.T) {
	c := New(time.Minute, 10)
	defer c.Close()

	got, existed := c.GetOrSet("key", "first")
	if existed {
		t.Error("first GetOrSet should report a new key")
	}
	if got != "first" {
		t.Errorf("value mismatch: got %v", got)
	}

	got, existed = c.GetOrSet("key", "second")
	if !existed {
		t.Error("second GetOrSet should report an existing key")
	}
	if got != "first" {
		t.Errorf("existing value should win: got %v", got)
	}
}

func TestCache_GetOrSetAfterExpiry(t *testing.T) {
	c := New(20*time.Millisecond, 10)
	defer c.Close()

	c.Set("key", "old")
	time.Sleep(30 * time.Millisecond)

	got, existed := c.GetOrSet("key", "new")
	if existed {
		t.Error("expired entry should count as new")
	}
	if got != "new" {
		t.Errorf("value mismatch: got %v", got)
	}
}

func TestCache_EvictsOldestAtCapacity(t *testing.T) {
	c := New(time.Minute, 3)
	defer c.Close()

	for i := 0; i < 4; i++ {
		c.Set(fmt.Sprintf("key-%d", i), i)
	}

	if _, ok := c.Get("key-0"); ok {
		t.Error("oldest key should have been evicted")
	}
	if _, ok := c.Get("key-3"); !ok {
		t.Error("newest key should remain")
	}
}

func TestCache_Delete(t *testing.T) {
	c := New(time.Minute, 10)
	defer c.Close()

	c.Set("key", 1)
	c.Delete("key")
	if _, ok := c.Get("key"); ok {
		t.Error("deleted key should be absent")
	}
}

func TestCache_CloseIsIdempotent(t *testing.T) {
	c := New(time.Minute, 10)
	c.Close()
	c.Close()
}
