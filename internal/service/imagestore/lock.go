package imagestore

import (
	"context"
	"sync"
)

// Locker serialises index updates of one solution. A Redis-backed locker
// extends this across processes sharing a session store.
type Locker interface {
	Lock(ctx context.Context, name string) (unlock func(), err error)
}

// localLocker 进程内按名称加锁
type localLocker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newLocalLocker() *localLocker {
	return &localLocker{locks: make(map[string]*lockEntry)}
}

func (l *localLocker) Lock(ctx context.Context, name string) (func(), error) {
	l.mu.Lock()
	e, ok := l.locks[name]
	if !ok {
		e = &lockEntry{}
		l.locks[name] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, name)
		}
		l.mu.Unlock()
	}, nil
}
