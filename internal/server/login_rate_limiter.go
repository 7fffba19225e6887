package server

import (
	"sync"
	"time"
)

// loginRateLimiter blocks a key (client IP + username) after repeated
// failed logins inside a sliding window.
type loginRateLimiter struct {
	mu          sync.Mutex
	entries     map[string]loginAttempts
	maxFailures int
	window      time.Duration
	blockedFor  time.Duration
	opCount     int
}

type loginAttempts struct {
	failures     int
	firstFailure time.Time
	blockedUntil time.Time
	lastSeen     time.Time
}

func newLoginRateLimiter(maxFailures int, window, blockedFor time.Duration) *loginRateLimiter {
	if maxFailures <= 0 || window <= 0 || blockedFor <= 0 {
		return nil
	}
	return &loginRateLimiter{
		entries:     make(map[string]loginAttempts),
		maxFailures: maxFailures,
		window:      window,
		blockedFor:  blockedFor,
	}
}

func (l *loginRateLimiter) Allow(key string, now time.Time) bool {
	if l == nil || key == "" {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry := l.entries[key]
	if !entry.blockedUntil.IsZero() && now.Before(entry.blockedUntil) {
		entry.lastSeen = now
		l.entries[key] = entry
		l.maybeCleanupLocked(now)
		return false
	}

	if !entry.firstFailure.IsZero() && now.Sub(entry.firstFailure) > l.window {
		entry.failures = 0
		entry.firstFailure = time.Time{}
	}
	entry.blockedUntil = time.Time{}
	entry.lastSeen = now
	l.entries[key] = entry
	l.maybeCleanupLocked(now)
	return true
}

func (l *loginRateLimiter) RegisterFailure(key string, now time.Time) {
	if l == nil || key == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry := l.entries[key]
	if entry.firstFailure.IsZero() || now.Sub(entry.firstFailure) > l.window {
		entry.failures = 0
		entry.firstFailure = now
	}
	entry.failures++
	if entry.failures >= l.maxFailures {
		entry.blockedUntil = now.Add(l.blockedFor)
		entry.failures = 0
		entry.firstFailure = time.Time{}
	}
	entry.lastSeen = now
	l.entries[key] = entry
	l.maybeCleanupLocked(now)
}

func (l *loginRateLimiter) Reset(key string) {
	if l == nil || key == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

func (l *loginRateLimiter) maybeCleanupLocked(now time.Time) {
	l.opCount++
	if l.opCount%64 != 0 {
		return
	}
	stale := 2 * l.blockedFor
	if 2*l.window > stale {
		stale = 2 * l.window
	}
	if stale < 10*time.Minute {
		stale = 10 * time.Minute
	}
	for key, entry := range l.entries {
		if entry.lastSeen.IsZero() || now.Sub(entry.lastSeen) > stale {
			delete(l.entries, key)
		}
	}
}
