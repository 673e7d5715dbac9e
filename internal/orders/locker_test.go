package orders

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/salesorders-backend/pkg/errors"
)

func TestLocalLockerSerializesSameOrder(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(ctx, 1)
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				seen := atomic.LoadInt32(&maxInside)
				if n <= seen || atomic.CompareAndSwapInt32(&maxInside, seen, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Fatalf("expected at most one holder inside, saw %d", maxInside)
	}
	if len(locker.locks) != 0 {
		t.Fatalf("expected lock table to drain, got %d entries", len(locker.locks))
	}
}

func TestLocalLockerIndependentOrders(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	unlockA, err := locker.Lock(ctx, 1)
	if err != nil {
		t.Fatalf("lock order 1: %v", err)
	}
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB, err := locker.Lock(ctx, 2)
		if err == nil {
			unlockB()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different order blocked")
	}
}

func TestLocalLockerHonorsContext(t *testing.T) {
	locker := NewLocalLocker()
	unlock, err := locker.Lock(context.Background(), 9)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, 9)
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected %s on timeout, got %v", pkgerrors.CodeConflict, err)
	}

	unlock()
	unlock()
	if len(locker.locks) != 0 {
		t.Fatalf("double unlock must leave the table empty, got %d entries", len(locker.locks))
	}
}

type fakeLeaseStore struct {
	mu       sync.Mutex
	holders  map[string]string
	released int
}

func newFakeLeaseStore() *fakeLeaseStore {
	return &fakeLeaseStore{holders: map[string]string{}}
}

func (f *fakeLeaseStore) AcquireLease(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, held := f.holders[key]; held {
		return false, nil
	}
	f.holders[key] = token
	return true, nil
}

func (f *fakeLeaseStore) ReleaseLease(ctx context.Context, key, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.holders[key] != token {
		return false, nil
	}
	delete(f.holders, key)
	f.released++
	return true, nil
}

func (f *fakeLeaseStore) LockKey(resource, id string) string {
	return "so:lock:" + resource + ":" + id
}

func TestLeaseLockerWaitsForRelease(t *testing.T) {
	store := newFakeLeaseStore()
	locker := NewLeaseLocker(store, time.Second, time.Second, 2*time.Millisecond, nil)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, 5)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	store.mu.Lock()
	_, held := store.holders["so:lock:order:5"]
	store.mu.Unlock()
	if !held {
		t.Fatalf("expected lease key to be held")
	}

	acquired := make(chan struct{})
	go func() {
		second, err := locker.Lock(ctx, 5)
		if err == nil {
			close(acquired)
			second()
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired a held lease")
	case <-time.After(20 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second holder never acquired the lease")
	}
}

func TestLeaseLockerTimesOut(t *testing.T) {
	store := newFakeLeaseStore()
	store.holders["so:lock:order:3"] = "someone-else"
	locker := NewLeaseLocker(store, time.Second, 15*time.Millisecond, 2*time.Millisecond, nil)

	_, err := locker.Lock(context.Background(), 3)
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected %s after wait, got %v", pkgerrors.CodeConflict, err)
	}
	if got := store.holders["so:lock:order:3"]; got != "someone-else" {
		t.Fatalf("foreign lease must be untouched, got %q", got)
	}
}

func TestLeaseLockerReleaseKeepsForeignLease(t *testing.T) {
	store := newFakeLeaseStore()
	locker := NewLeaseLocker(store, time.Second, time.Second, time.Millisecond, nil)

	unlock, err := locker.Lock(context.Background(), 8)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	// simulate expiry and takeover by another holder
	store.mu.Lock()
	store.holders["so:lock:order:8"] = "new-holder"
	store.mu.Unlock()

	unlock()
	if got := store.holders["so:lock:order:8"]; got != "new-holder" {
		t.Fatalf("release removed a lease it no longer owned, holder=%q", got)
	}
	if store.released != 0 {
		t.Fatalf("expected no releases, got %d", store.released)
	}
}
