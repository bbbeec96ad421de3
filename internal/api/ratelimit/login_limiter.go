package ratelimit

import (
	"strings"
	"sync"
	"time"
)

const (
	DefaultMaxFailedAttempts = 5
	DefaultLockoutDuration   = 15 * time.Minute
	MaxLockoutDuration       = time.Hour
)

type accountLockout struct {
	failedAttempts int
	lockedUntil    time.Time
	lockoutCount   int
}

// LoginLimiter locks an account out after repeated failed logins. Each
// further lockout lasts longer, up to MaxLockoutDuration.
type LoginLimiter struct {
	mu       sync.Mutex
	lockouts map[string]*accountLockout

	maxFailedAttempts   int
	baseLockoutDuration time.Duration
	now                 func() time.Time
}

func NewLoginLimiter() *LoginLimiter {
	return &LoginLimiter{
		lockouts:            make(map[string]*accountLockout),
		maxFailedAttempts:   DefaultMaxFailedAttempts,
		baseLockoutDuration: DefaultLockoutDuration,
		now:                 time.Now,
	}
}

func (l *LoginLimiter) IsAccountLocked(username string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	lockout, ok := l.lockouts[strings.ToLower(username)]
	return ok && l.now().Before(lockout.lockedUntil)
}

func (l *LoginLimiter) LockoutRemaining(username string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	lockout, ok := l.lockouts[strings.ToLower(username)]
	if !ok {
		return 0
	}
	return max(lockout.lockedUntil.Sub(l.now()), 0)
}

func (l *LoginLimiter) RecordFailedAttempt(username string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := strings.ToLower(username)
	lockout, ok := l.lockouts[key]
	if !ok {
		lockout = &accountLockout{}
		l.lockouts[key] = lockout
	}

	now := l.now()
	if now.After(lockout.lockedUntil) && lockout.failedAttempts >= l.maxFailedAttempts {
		lockout.failedAttempts = 0
	}

	lockout.failedAttempts++
	if lockout.failedAttempts >= l.maxFailedAttempts {
		lockout.lockoutCount++
		lockout.lockedUntil = now.Add(min(l.baseLockoutDuration*time.Duration(lockout.lockoutCount), MaxLockoutDuration))
	}
}

func (l *LoginLimiter) RecordSuccessfulLogin(username string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.lockouts, strings.ToLower(username))
}

// Cleanup drops expired lockouts that are not mid-count.
func (l *LoginLimiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, lockout := range l.lockouts {
		if now.After(lockout.lockedUntil) && lockout.failedAttempts < l.maxFailedAttempts {
			delete(l.lockouts, key)
		}
	}
}
