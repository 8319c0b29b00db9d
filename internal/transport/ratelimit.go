package transport

import (
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterEntry holds a rate limiter and the last time it was seen.
type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterStore maps source hosts to token buckets. Stale entries are swept
// on access so spoofed sources cannot grow it without bound.
type limiterStore struct {
	mu         sync.Mutex
	entries    map[string]*limiterEntry
	limit      rate.Limit
	burst      int
	staleAfter time.Duration
	lastSweep  time.Time
	now        func() time.Time
}

func newLimiterStore(limit rate.Limit, burst int, staleAfter time.Duration) *limiterStore {
	return &limiterStore{
		entries:    make(map[string]*limiterEntry),
		limit:      limit,
		burst:      burst,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// allow reports whether one more message from key fits its budget. A
// non-positive limit disables limiting.
func (s *limiterStore) allow(key string) bool {
	if s == nil || s.limit <= 0 {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) > s.staleAfter {
		s.sweep(now)
	}
	e, ok := s.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

func (s *limiterStore) sweep(now time.Time) {
	cutoff := now.Add(-s.staleAfter)
	for k, e := range s.entries {
		if e.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
	s.lastSweep = now
}

func (s *limiterStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// sourceKey drops the port so one host shares a bucket across sockets.
func sourceKey(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
