package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"auth-service/backend/internal/platform/clock"
)

func TestMemoryCache_PutGet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(clock.NewManual(epoch))

	if err := c.Put(ctx, "h1", "u1", epoch.Add(time.Hour), false); err != nil {
		t.Fatal(err)
	}
	e, err := c.Get(ctx, "h1")
	if err != nil || e == nil {
		t.Fatalf("Get = %v, %v", e, err)
	}
	if e.UserID != "u1" || e.Revoked {
		t.Errorf("entry = %+v", e)
	}
}

func TestMemoryCache_NotStoredWhenExpired(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(clock.NewManual(epoch))
	_ = c.Put(ctx, "h1", "u1", epoch, false)
	_ = c.Put(ctx, "h2", "u1", epoch.Add(-time.Minute), false)
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
}

func TestMemoryCache_ExpiresOnRead(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewManual(epoch)
	c := NewMemoryCache(clk)
	_ = c.Put(ctx, "h1", "u1", epoch.Add(time.Minute), false)

	clk.Advance(time.Minute)
	e, err := c.Get(ctx, "h1")
	if err != nil {
		t.Fatal(err)
	}
	if e != nil {
		t.Errorf("expired entry returned: %+v", e)
	}
	if c.Len() != 0 {
		t.Error("expired entry should be removed on read")
	}
}

func TestMemoryCache_Delete(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(clock.NewManual(epoch))
	_ = c.Put(ctx, "a", "u1", epoch.Add(time.Hour), false)
	_ = c.Put(ctx, "b", "u1", epoch.Add(time.Hour), false)
	if err := c.Delete(ctx, "a", "zzz"); err != nil {
		t.Fatal(err)
	}
	if e, _ := c.Get(ctx, "a"); e != nil {
		t.Error("a should be deleted")
	}
	if e, _ := c.Get(ctx, "b"); e == nil {
		t.Error("b should remain")
	}
}

func TestMemoryCache_Concurrent(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(clock.NewManual(epoch))
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h := string(rune('a' + i%26))
			_ = c.Put(ctx, h, "u1", epoch.Add(time.Hour), i%2 == 0)
			_, _ = c.Get(ctx, h)
			if i%5 == 0 {
				_ = c.Delete(ctx, h)
			}
		}(i)
	}
	wg.Wait()
}

// hookClock runs hook once, on the first Now call after it is set.
type hookClock struct {
	now  time.Time
	hook func()
}

func (c *hookClock) Now() time.Time {
	if h := c.hook; h != nil {
		c.hook = nil
		h()
	}
	return c.now
}

func TestMemoryCache_ExpiredReadKeepsConcurrentPut(t *testing.T) {
	ctx := context.Background()
	clk := &hookClock{now: epoch}
	c := NewMemoryCache(clk)
	if err := c.Put(ctx, "h1", "u1", epoch.Add(time.Second), false); err != nil {
		t.Fatal(err)
	}

	clk.now = epoch.Add(2 * time.Second)
	// The replacement lands between Get's read of the expired entry and its delete.
	clk.hook = func() {
		if err := c.Put(ctx, "h1", "u2", epoch.Add(time.Hour), false); err != nil {
			t.Error(err)
		}
	}
	e, err := c.Get(ctx, "h1")
	if err != nil {
		t.Fatal(err)
	}
	if e == nil || e.UserID != "u2" {
		t.Errorf("Get = %+v, want the replacement entry", e)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}
