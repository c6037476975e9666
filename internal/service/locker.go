package service

import (
	"sort"
	"sync"

	"github.com/samber/lo"
)

// Locker is a keyed mutex. Multi-key locks are always taken in sorted order
// so two callers locking overlapping key sets cannot deadlock.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*keyLock)}
}

// Lock blocks until every key is held and returns the function releasing them
func (l *Locker) Lock(keys ...string) (unlock func()) {
	keys = lo.Uniq(keys)
	sort.Strings(keys)

	held := make([]*keyLock, 0, len(keys))
	for _, key := range keys {
		kl := l.acquire(key)
		kl.mu.Lock()
		held = append(held, kl)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
			l.release(keys[i])
		}
	}
}

func (l *Locker) acquire(key string) *keyLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{}
		l.locks[key] = kl
	}
	kl.refs++
	return kl
}

func (l *Locker) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl, ok := l.locks[key]
	if !ok {
		return
	}
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}

func billingLockKey(id string) string { return "billing:" + id }

func invoiceLockKey(id string) string { return "invoice:" + id }

func sessionLockKey(id string) string { return "session:" + id }

func invoiceNumberLockKey(number string) string { return "invoice_number:" + number }
