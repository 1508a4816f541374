package oauth

import "sync"

// Guard ensures an authorization code is exchanged at most once per
// session. A code already in flight or already consumed is refused; a new
// code is never blocked by an earlier one, so a user can retry with a
// fresh login right after a failure.
type Guard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
	consumed map[string]struct{}
}

// NewGuard returns an empty Guard.
func NewGuard() *Guard {
	return &Guard{
		inFlight: map[string]struct{}{},
		consumed: map[string]struct{}{},
	}
}

// Acquire claims code. ok is false when another invocation owns or already
// used it. release must be called on every exit path; it is idempotent.
func (g *Guard) Acquire(code string) (release func(), ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inFlight[code]; busy {
		return func() {}, false
	}
	if _, used := g.consumed[code]; used {
		return func() {}, false
	}
	g.inFlight[code] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			delete(g.inFlight, code)
			g.consumed[code] = struct{}{}
		})
	}, true
}

// InProgress reports whether any exchange is outstanding.
func (g *Guard) InProgress() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.inFlight) > 0
}
