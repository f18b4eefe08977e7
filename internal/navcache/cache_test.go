package navcache_test

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rmartins/navengine/internal/apperrors"
	"github.com/rmartins/navengine/internal/navcache"
)

type entry struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

func newCache(t *testing.T) *navcache.Cache {
	t.Helper()

	cache, err := navcache.New(t.TempDir())
	if err != nil {
		t.Fatalf("New() returned unexpected error: %v", err)
	}
	return cache
}

// TestCache_ReadWrite tests the basic entry lifecycle.
//
// WHY: The cache sits between the engine and every recomputation; a read
// returning stale or partial data is worse than a miss.
func TestCache_ReadWrite(t *testing.T) {
	t.Run("round-trips an entry", func(t *testing.T) {
		cache := newCache(t)

		want := entry{Name: "series", Value: 100}
		if err := cache.Write("abc", want); err != nil {
			t.Fatalf("Write() returned unexpected error: %v", err)
		}

		var got entry
		if err := cache.Read("abc", &got); err != nil {
			t.Fatalf("Read() returned unexpected error: %v", err)
		}
		if got != want {
			t.Errorf("Read() = %+v, want %+v", got, want)
		}
	})

	t.Run("missing entry is a cache miss", func(t *testing.T) {
		cache := newCache(t)

		var got entry
		if err := cache.Read("nothing", &got); !errors.Is(err, apperrors.ErrCacheMiss) {
			t.Errorf("Read() error = %v, want ErrCacheMiss", err)
		}
		if _, err := cache.ModTime("nothing"); !errors.Is(err, apperrors.ErrCacheMiss) {
			t.Errorf("ModTime() error = %v, want ErrCacheMiss", err)
		}
	})

	t.Run("corrupt entry is reported and removed", func(t *testing.T) {
		dir := t.TempDir()
		cache, err := navcache.New(dir)
		if err != nil {
			t.Fatalf("New() returned unexpected error: %v", err)
		}

		if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o644); err != nil {
			t.Fatalf("Failed to plant corrupt entry: %v", err)
		}

		var got entry
		if err := cache.Read("bad", &got); !errors.Is(err, apperrors.ErrCacheCorrupt) {
			t.Fatalf("Read() error = %v, want ErrCacheCorrupt", err)
		}

		// The corrupt file is gone, so the next read is a clean miss.
		if err := cache.Read("bad", &got); !errors.Is(err, apperrors.ErrCacheMiss) {
			t.Errorf("Second Read() error = %v, want ErrCacheMiss", err)
		}
	})

	t.Run("invalidate deletes and tolerates missing entries", func(t *testing.T) {
		cache := newCache(t)

		if err := cache.Write("abc", entry{Name: "x"}); err != nil {
			t.Fatalf("Write() returned unexpected error: %v", err)
		}
		if err := cache.Invalidate("abc"); err != nil {
			t.Fatalf("Invalidate() returned unexpected error: %v", err)
		}
		var got entry
		if err := cache.Read("abc", &got); !errors.Is(err, apperrors.ErrCacheMiss) {
			t.Errorf("Read() after invalidate = %v, want ErrCacheMiss", err)
		}

		if err := cache.Invalidate("abc"); err != nil {
			t.Errorf("Invalidate() of a missing entry = %v, want nil", err)
		}
	})
}

// TestCache_Fresh tests the TTL check.
func TestCache_Fresh(t *testing.T) {
	cache := newCache(t)

	if cache.Fresh("abc", time.Minute) {
		t.Error("Missing entry reported fresh")
	}

	if err := cache.Write("abc", entry{}); err != nil {
		t.Fatalf("Write() returned unexpected error: %v", err)
	}
	if !cache.Fresh("abc", time.Minute) {
		t.Error("Just-written entry reported stale")
	}
	if cache.Fresh("abc", -time.Second) {
		t.Error("Entry reported fresh under a negative TTL")
	}
}

// TestGetOrCompute tests the memoized compute path.
//
// WHY: GetOrCompute is the single path both the NAV series and the fallback
// quotes depend on; recompute storms or cached errors would hit the price
// provider directly.
func TestGetOrCompute(t *testing.T) {
	t.Run("computes once within the TTL", func(t *testing.T) {
		cache := newCache(t)

		calls := 0
		compute := func() (entry, error) {
			calls++
			return entry{Name: "computed", Value: 42}, nil
		}

		for i := 0; i < 3; i++ {
			got, err := navcache.GetOrCompute(cache, "k", time.Minute, compute)
			if err != nil {
				t.Fatalf("GetOrCompute() returned unexpected error: %v", err)
			}
			if got.Value != 42 {
				t.Errorf("GetOrCompute() = %+v, want value 42", got)
			}
		}
		if calls != 1 {
			t.Errorf("compute ran %d times, want 1", calls)
		}
	})

	t.Run("errors are returned and never cached", func(t *testing.T) {
		cache := newCache(t)

		boom := errors.New("provider down")
		if _, err := navcache.GetOrCompute(cache, "k", time.Minute, func() (entry, error) {
			return entry{}, boom
		}); !errors.Is(err, boom) {
			t.Fatalf("GetOrCompute() error = %v, want %v", err, boom)
		}

		// A failed compute leaves no entry behind.
		got, err := navcache.GetOrCompute(cache, "k", time.Minute, func() (entry, error) {
			return entry{Value: 7}, nil
		})
		if err != nil {
			t.Fatalf("GetOrCompute() returned unexpected error: %v", err)
		}
		if got.Value != 7 {
			t.Errorf("GetOrCompute() = %+v, want the recomputed value", got)
		}
	})

	t.Run("concurrent callers share one compute", func(t *testing.T) {
		cache := newCache(t)

		var mu sync.Mutex
		calls := 0
		release := make(chan struct{})
		compute := func() (entry, error) {
			mu.Lock()
			calls++
			mu.Unlock()
			<-release
			return entry{Value: 1}, nil
		}

		var wg sync.WaitGroup
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := navcache.GetOrCompute(cache, "k", time.Minute, compute); err != nil {
					t.Errorf("GetOrCompute() returned unexpected error: %v", err)
				}
			}()
		}
		// Give the goroutines time to pile up on the singleflight gate.
		time.Sleep(50 * time.Millisecond)
		close(release)
		wg.Wait()

		if calls != 1 {
			t.Errorf("compute ran %d times under concurrency, want 1", calls)
		}
	})
}
