package session

import "sync"

// Locker serializes mutating operations per session id. It never blocks:
// a second caller for a held id is turned away.
type Locker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocker creates an empty Locker
func NewLocker() *Locker {
	return &Locker{held: make(map[string]struct{})}
}

// TryLock acquires id. The returned release func must be called exactly once.
func (l *Locker) TryLock(id string) (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[id]; busy {
		return nil, false
	}
	l.held[id] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, id)
			l.mu.Unlock()
		})
	}, true
}

// Held returns the number of ids currently locked
func (l *Locker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.held)
}
