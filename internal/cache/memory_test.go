package cache

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryCacheSetGet(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "lookup:1:4006381333931", []byte(`{"name":"Milk"}`), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := c.Get(ctx, "lookup:1:4006381333931")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, []byte(`{"name":"Milk"}`)) {
		t.Errorf("Get = %q", got)
	}

	if _, err := c.Get(ctx, "lookup:2:4006381333931"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss, got %v", err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(30 * time.Millisecond)

	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected expired key to miss, got %v", err)
	}
}

func TestMemoryCacheGetOrSet(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	calls := 0
	fill := func() ([]byte, error) {
		calls++
		return []byte("computed"), nil
	}

	for i := 0; i < 3; i++ {
		got, err := c.GetOrSet(ctx, "k", time.Minute, fill)
		if err != nil {
			t.Fatalf("GetOrSet: %v", err)
		}
		if string(got) != "computed" {
			t.Errorf("GetOrSet = %q", got)
		}
	}
	if calls != 1 {
		t.Errorf("fill called %d times, want 1", calls)
	}

	boom := errors.New("boom")
	if _, err := c.GetOrSet(ctx, "other", time.Minute, func() ([]byte, error) {
		return nil, boom
	}); !errors.Is(err, boom) {
		t.Errorf("expected fill error, got %v", err)
	}
}

func TestMemoryCacheGetReturnsCopy(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("orig"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, _ := c.Get(ctx, "k")
	got[0] = 'X'

	again, _ := c.Get(ctx, "k")
	if string(again) != "orig" {
		t.Errorf("cached value mutated through returned slice: %q", again)
	}
}

func TestMemoryCacheClearAndDelete(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "a", []byte("1"), time.Minute)
	c.Set(ctx, "b", []byte("2"), time.Minute)

	if err := c.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := c.Get(ctx, "a"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("deleted key still present")
	}

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := c.Get(ctx, "b"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("cleared key still present")
	}
}
