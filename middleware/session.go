package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	SessionCookieName = "session_id"
	SessionTimeout    = 24 * time.Hour

	sessionIDKey = "sessionID"
)

// Session identifies one browser across requests.
type Session struct {
	ID        string
	CreatedAt time.Time
	LastSeen  time.Time
}

// SessionManager issues session ids and forgets them after ttl of inactivity.
type SessionManager struct {
	sessions map[string]*Session
	ttl      time.Duration
	mu       sync.Mutex
	now      func() time.Time
}

// NewSessionManager creates an empty manager.
func NewSessionManager(ttl time.Duration) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func generateSessionID() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(b)
}

// GetOrCreateSession returns the live session for sessionID, or a new one
// when the id is unknown or expired. Ids are only ever issued by the server.
func (sm *SessionManager) GetOrCreateSession(sessionID string) *Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := sm.now()
	if session, exists := sm.sessions[sessionID]; exists {
		if now.Sub(session.LastSeen) < sm.ttl {
			session.LastSeen = now
			return session
		}
		delete(sm.sessions, sessionID)
	}

	session := &Session{ID: generateSessionID(), CreatedAt: now, LastSeen: now}
	sm.sessions[session.ID] = session
	return session
}

// Len returns the number of tracked sessions.
func (sm *SessionManager) Len() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return len(sm.sessions)
}

// Sweep drops sessions idle for longer than the ttl.
func (sm *SessionManager) Sweep() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := sm.now()
	for id, session := range sm.sessions {
		if now.Sub(session.LastSeen) >= sm.ttl {
			delete(sm.sessions, id)
		}
	}
}

// Run sweeps expired sessions every interval until ctx is done.
func (sm *SessionManager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sm.Sweep()
		}
	}
}

// SessionMiddleware makes sure every request carries a session cookie.
func SessionMiddleware(sm *SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, _ := c.Cookie(SessionCookieName)
		session := sm.GetOrCreateSession(sessionID)

		if sessionID != session.ID {
			isSecure := c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https"
			c.SetCookie(SessionCookieName, session.ID, int(sm.ttl.Seconds()), "/", "", isSecure, true)
		}

		c.Set(sessionIDKey, session.ID)
		c.Next()
	}
}

// GetSessionID returns the id set by SessionMiddleware, or "".
func GetSessionID(c *gin.Context) string {
	v, exists := c.Get(sessionIDKey)
	if !exists {
		return ""
	}
	if id, ok := v.(string); ok {
		return id
	}
	return ""
}
