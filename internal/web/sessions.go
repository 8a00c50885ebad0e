package web

import (
	"context"
	"sync"
	"time"

	"github.com/santiagoirala777/Nano-Banana-Editor/internal/logging"
	"github.com/santiagoirala777/Nano-Banana-Editor/internal/studio"
)

const (
	// SessionInactivityTimeout is how long a session can be inactive before cleanup.
	SessionInactivityTimeout = 24 * time.Hour

	// SessionCleanupInterval is how often to run cleanup.
	SessionCleanupInterval = 1 * time.Hour

	// MaxSessions is the maximum number of sessions before LRU eviction.
	MaxSessions = 100
)

// sessionInfo tracks a session's studio and its last activity time.
type sessionInfo struct {
	studio       *studio.Studio
	lastActivity time.Time
}

// StudioFactory creates the Studio for a new session.
type StudioFactory func() *studio.Studio

// SessionManager maps session IDs to per-session Studio state.
//
// SessionManager is safe for concurrent access from multiple goroutines.
// It uses a read-write mutex to allow concurrent reads while serializing
// writes.
//
// Sessions are automatically cleaned up after 24 hours of inactivity.
// A background goroutine runs every hour to remove stale sessions. If the
// session count exceeds MaxSessions, the least recently used session is
// evicted. Sessions hold full-resolution image history in memory, so the
// cap is deliberately low.
type SessionManager struct {
	mu            sync.RWMutex
	sessions      map[string]*sessionInfo
	factory       StudioFactory
	log           *logging.Logger
	cancelCleanup context.CancelFunc
	cleanupDone   chan struct{}
}

// NewSessionManager creates a session manager that builds studios with
// factory. It starts a background goroutine that periodically cleans up
// inactive sessions.
func NewSessionManager(factory StudioFactory, log *logging.Logger) *SessionManager {
	ctx, cancel := context.WithCancel(context.Background())

	sm := &SessionManager{
		sessions:      make(map[string]*sessionInfo),
		factory:       factory,
		log:           log,
		cancelCleanup: cancel,
		cleanupDone:   make(chan struct{}),
	}

	go sm.cleanupLoop(ctx)

	return sm
}

// GetOrCreate returns the Studio for the given session ID, creating it on
// first use. Updates the last activity time for the session.
func (sm *SessionManager) GetOrCreate(sessionID string) *studio.Studio {
	now := time.Now()

	// Fast path for existing sessions
	sm.mu.RLock()
	if info, ok := sm.sessions[sessionID]; ok {
		sm.mu.RUnlock()
		sm.mu.Lock()
		info.lastActivity = now
		sm.mu.Unlock()
		return info.studio
	}
	sm.mu.RUnlock()

	sm.mu.Lock()
	defer sm.mu.Unlock()

	// Double-check after acquiring write lock (another goroutine may have
	// created the session while we were waiting for the lock)
	if info, ok := sm.sessions[sessionID]; ok {
		info.lastActivity = now
		return info.studio
	}

	if len(sm.sessions) >= MaxSessions {
		sm.evictLRU()
	}

	st := sm.factory()
	sm.sessions[sessionID] = &sessionInfo{
		studio:       st,
		lastActivity: now,
	}
	return st
}

// Get returns the Studio for the given session ID, or nil if it doesn't
// exist. This method does not create a new session.
func (sm *SessionManager) Get(sessionID string) *studio.Studio {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if info, ok := sm.sessions[sessionID]; ok {
		return info.studio
	}
	return nil
}

// Delete removes the session with the given ID.
func (sm *SessionManager) Delete(sessionID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.sessions, sessionID)
}

// Count returns the number of active sessions.
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// Shutdown stops the cleanup goroutine and waits for it to finish.
func (sm *SessionManager) Shutdown() {
	if sm.cancelCleanup != nil {
		sm.cancelCleanup()
		<-sm.cleanupDone
	}
}

// cleanupLoop runs periodically to remove inactive sessions.
func (sm *SessionManager) cleanupLoop(ctx context.Context) {
	defer close(sm.cleanupDone)

	ticker := time.NewTicker(SessionCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sm.cleanupInactiveSessions()
		}
	}
}

// cleanupInactiveSessions removes sessions that have been inactive for too
// long.
func (sm *SessionManager) cleanupInactiveSessions() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := time.Now()
	removed := 0

	for sessionID, info := range sm.sessions {
		if now.Sub(info.lastActivity) > SessionInactivityTimeout {
			delete(sm.sessions, sessionID)
			removed++
		}
	}

	if removed > 0 && sm.log != nil {
		sm.log.Info("cleaned up %d inactive sessions (total: %d)", removed, len(sm.sessions))
	}
}

// evictLRU removes the least recently used session.
// Must be called with sm.mu held for writing.
func (sm *SessionManager) evictLRU() {
	var oldestID string
	var oldestTime time.Time

	for sessionID, info := range sm.sessions {
		if oldestID == "" || info.lastActivity.Before(oldestTime) {
			oldestID = sessionID
			oldestTime = info.lastActivity
		}
	}

	if oldestID != "" {
		delete(sm.sessions, oldestID)
		if sm.log != nil {
			sm.log.Warn("evicted LRU session %s (inactive for %v)", oldestID, time.Since(oldestTime))
		}
	}
}
