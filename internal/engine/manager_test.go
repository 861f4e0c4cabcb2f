package engine

import (
	"sync"
	"testing"
	"time"
)

func TestManager_AcquireCreatesHandle(t *testing.T) {
	m := NewManager(10)

	h, err := m.Acquire("user-1")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	if m.Count() != 1 {
		t.Errorf("Expected 1 handle, got %d", m.Count())
	}
	if h.UserID != "user-1" {
		t.Errorf("Expected user-1, got %s", h.UserID)
	}

	m.Release(h)
}

func TestManager_AcquireSameUserReusesHandle(t *testing.T) {
	m := NewManager(10)

	h1, err := m.Acquire("user-1")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	m.Release(h1)

	h2, err := m.Acquire("user-1")
	if err != nil {
		t.Fatalf("Second acquire failed: %v", err)
	}
	defer m.Release(h2)

	if h1 != h2 {
		t.Error("Expected the same handle for the same user")
	}
	if m.Count() != 1 {
		t.Errorf("Expected 1 handle, got %d", m.Count())
	}
}

func TestManager_AcquireMaxHandles(t *testing.T) {
	m := NewManager(2)

	h1, _ := m.Acquire("user-1")
	m.Release(h1)
	h2, _ := m.Acquire("user-2")
	defer m.Release(h2)

	// Third distinct user should fail
	_, err := m.Acquire("user-3")
	if err != ErrMaxHandlesReached {
		t.Errorf("Expected ErrMaxHandlesReached, got %v", err)
	}

	// An existing user is still fine at the bound
	h3, err := m.Acquire("user-1")
	if err != nil {
		t.Errorf("Acquire of resident user failed at the bound: %v", err)
	} else {
		m.Release(h3)
	}
}

func TestManager_SerializesSameUser(t *testing.T) {
	m := NewManager(10)

	var active, maxActive int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			h, err := m.Acquire("user-1")
			if err != nil {
				t.Errorf("Acquire failed: %v", err)
				return
			}
			defer m.Release(h)

			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}

	wg.Wait()

	if maxActive != 1 {
		t.Errorf("Expected at most 1 holder at a time, saw %d", maxActive)
	}
}

func TestManager_EvictIdle(t *testing.T) {
	m := NewManager(10)

	h1, _ := m.Acquire("user-1")
	m.Release(h1)
	h2, _ := m.Acquire("user-2")
	m.Release(h2)

	// Backdate user-1 so only it is eviction-eligible
	m.mu.Lock()
	m.handles["user-1"].lastUsed = time.Now().Add(-time.Hour)
	m.mu.Unlock()

	evicted := m.EvictIdle(30 * time.Minute)
	if len(evicted) != 1 || evicted[0] != "user-1" {
		t.Errorf("Expected [user-1] evicted, got %v", evicted)
	}
	if m.Count() != 1 {
		t.Errorf("Expected 1 handle left, got %d", m.Count())
	}
}

func TestManager_EvictSkipsHeldHandle(t *testing.T) {
	m := NewManager(10)

	h, _ := m.Acquire("user-1")

	// Backdate while it is still held
	m.mu.Lock()
	m.handles["user-1"].lastUsed = time.Now().Add(-time.Hour)
	m.mu.Unlock()

	evicted := m.EvictIdle(time.Minute)
	if len(evicted) != 0 {
		t.Errorf("Expected no evictions for a held handle, got %v", evicted)
	}

	m.Release(h)
}

func TestManager_AcquireAfterEviction(t *testing.T) {
	m := NewManager(10)

	h1, _ := m.Acquire("user-1")
	m.Release(h1)

	m.mu.Lock()
	m.handles["user-1"].lastUsed = time.Now().Add(-time.Hour)
	m.mu.Unlock()
	m.EvictIdle(time.Minute)

	h2, err := m.Acquire("user-1")
	if err != nil {
		t.Fatalf("Acquire after eviction failed: %v", err)
	}
	defer m.Release(h2)

	if h1 == h2 {
		t.Error("Expected a fresh handle after eviction")
	}
}

func TestManager_Stats(t *testing.T) {
	m := NewManager(100)

	h1, _ := m.Acquire("user-1")
	h2, _ := m.Acquire("user-2")
	m.Release(h2)

	stats := m.Stats()
	if stats.ResidentHandles != 2 {
		t.Errorf("Expected 2 resident handles, got %d", stats.ResidentHandles)
	}
	if stats.InFlight != 1 {
		t.Errorf("Expected 1 handle in flight, got %d", stats.InFlight)
	}
	if stats.MaxHandles != 100 {
		t.Errorf("Expected max 100, got %d", stats.MaxHandles)
	}

	m.Release(h1)
}
