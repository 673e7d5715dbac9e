package orders

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/salesorders-backend/pkg/errors"
	"github.com/angelmondragon/salesorders-backend/pkg/instance"
	"github.com/angelmondragon/salesorders-backend/pkg/logger"
)

const lockResource = "order"

// OrderLocker serializes mutations of a single order. The returned unlock
// func must be called exactly once.
type OrderLocker interface {
	Lock(ctx context.Context, orderID uint64) (unlock func(), err error)
}

type keyedLock struct {
	sem  chan struct{}
	refs int
}

// LocalLocker is an in-process keyed mutex. Entries are dropped once no
// caller holds or waits on them.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[uint64]*keyedLock
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[uint64]*keyedLock)}
}

func (l *LocalLocker) Lock(ctx context.Context, orderID uint64) (func(), error) {
	l.mu.Lock()
	entry, ok := l.locks[orderID]
	if !ok {
		entry = &keyedLock{sem: make(chan struct{}, 1)}
		l.locks[orderID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(orderID, entry)
		return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, ctx.Err(), "order is busy")
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.sem
			l.release(orderID, entry)
		})
	}, nil
}

func (l *LocalLocker) release(orderID uint64, entry *keyedLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, orderID)
	}
}

// LeaseStore is the lease surface of the redis client.
type LeaseStore interface {
	AcquireLease(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	ReleaseLease(ctx context.Context, key, token string) (bool, error)
	LockKey(resource, id string) string
}

// LeaseLocker holds a per-order redis lease. A lease outlives a crashed
// holder by at most ttl.
type LeaseLocker struct {
	store LeaseStore
	ttl   time.Duration
	wait  time.Duration
	retry time.Duration
	logg  *logger.Logger
}

func NewLeaseLocker(store LeaseStore, ttl, wait, retry time.Duration, logg *logger.Logger) *LeaseLocker {
	if retry <= 0 {
		retry = 25 * time.Millisecond
	}
	return &LeaseLocker{store: store, ttl: ttl, wait: wait, retry: retry, logg: logg}
}

func (l *LeaseLocker) Lock(ctx context.Context, orderID uint64) (func(), error) {
	key := l.store.LockKey(lockResource, strconv.FormatUint(orderID, 10))
	// the instance prefix tells operators which replica holds a lease
	token := instance.GetID() + ":" + uuid.NewString()

	waitCtx := ctx
	if l.wait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()
	for {
		ok, err := l.store.AcquireLease(waitCtx, key, token, l.ttl)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire order lock")
		}
		if ok {
			break
		}
		select {
		case <-waitCtx.Done():
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, waitCtx.Err(), "order is busy").
				WithDetails(map[string]any{"order_id": orderID})
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(ctx, key, token, orderID) })
	}, nil
}

func (l *LeaseLocker) release(ctx context.Context, key, token string, orderID uint64) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	released, err := l.store.ReleaseLease(releaseCtx, key, token)
	if l.logg == nil {
		return
	}
	logCtx := l.logg.WithOrderID(ctx, orderID)
	switch {
	case err != nil:
		l.logg.Error(logCtx, "order.lock.release_failed", err)
	case !released:
		l.logg.Warn(logCtx, "order.lock.expired_before_release")
	}
}
