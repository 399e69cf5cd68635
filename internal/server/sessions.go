package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/teemow/agenda/internal/instrumentation"
	"github.com/teemow/agenda/internal/logging"
)

// DefaultSessionIdleTimeout is how long an unused session lock is kept.
const DefaultSessionIdleTimeout = 30 * time.Minute

// sessionLock tracks one session's turn lock and its last use.
type sessionLock struct {
	mu         sync.Mutex
	holders    int
	lastAccess time.Time
}

// SessionLocks serializes turns per session. Locks of sessions idle for
// longer than the timeout are dropped by a background sweep; the number of
// tracked sessions is reported as active_sessions.
type SessionLocks struct {
	locks         map[string]*sessionLock
	mu            sync.Mutex
	timeout       time.Duration
	cleanupTicker *time.Ticker
	cleanupDone   chan struct{}
	stopOnce      sync.Once
	metrics       *instrumentation.Metrics
	logger        *slog.Logger
}

// NewSessionLocks starts a lock table with the given idle timeout (zero
// means DefaultSessionIdleTimeout). Call Stop to end the sweep.
func NewSessionLocks(timeout time.Duration, metrics *instrumentation.Metrics, logger *slog.Logger) *SessionLocks {
	if timeout <= 0 {
		timeout = DefaultSessionIdleTimeout
	}
	interval := timeout / 3
	if interval < time.Second {
		interval = time.Second
	}

	l := &SessionLocks{
		locks:         make(map[string]*sessionLock),
		timeout:       timeout,
		cleanupTicker: time.NewTicker(interval),
		cleanupDone:   make(chan struct{}),
		metrics:       metrics,
		logger:        logging.WithComponent(logger, "sessions"),
	}
	go l.cleanupLoop()
	return l
}

// Lock blocks until the session's lock is held or ctx is done. The returned
// function releases it.
func (l *SessionLocks) Lock(ctx context.Context, sessionID string) (func(), error) {
	l.mu.Lock()
	sl, ok := l.locks[sessionID]
	if !ok {
		sl = &sessionLock{}
		l.locks[sessionID] = sl
		l.metrics.IncrementActiveSessions(ctx)
	}
	sl.holders++
	sl.lastAccess = time.Now()
	l.mu.Unlock()

	acquired := make(chan struct{})
	go func() {
		sl.mu.Lock()
		close(acquired)
	}()

	select {
	case <-acquired:
		return func() { l.release(sl) }, nil
	case <-ctx.Done():
		// Hand the lock straight back once the waiter gets it.
		go func() {
			<-acquired
			l.release(sl)
		}()
		return nil, ctx.Err()
	}
}

func (l *SessionLocks) release(sl *sessionLock) {
	l.mu.Lock()
	sl.holders--
	sl.lastAccess = time.Now()
	l.mu.Unlock()
	sl.mu.Unlock()
}

// Forget drops the lock entry of a deleted session if nobody holds it.
func (l *SessionLocks) Forget(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if sl, ok := l.locks[sessionID]; ok && sl.holders == 0 {
		delete(l.locks, sessionID)
		l.metrics.DecrementActiveSessions(context.Background())
	}
}

// Len returns the number of tracked sessions.
func (l *SessionLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func (l *SessionLocks) cleanupLoop() {
	for {
		select {
		case <-l.cleanupTicker.C:
			l.sweep(time.Now())
		case <-l.cleanupDone:
			return
		}
	}
}

// sweep drops idle, unheld locks.
func (l *SessionLocks) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for id, sl := range l.locks {
		if sl.holders == 0 && now.Sub(sl.lastAccess) > l.timeout {
			delete(l.locks, id)
			l.metrics.DecrementActiveSessions(context.Background())
			removed++
		}
	}
	if removed > 0 {
		l.logger.Debug("dropped idle session locks",
			slog.Int("removed", removed),
			slog.Int("remaining", len(l.locks)))
	}
}

// Stop ends the background sweep.
func (l *SessionLocks) Stop() {
	l.stopOnce.Do(func() {
		l.cleanupTicker.Stop()
		close(l.cleanupDone)
	})
}
