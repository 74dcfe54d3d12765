package xero

import (
	"sync"
	"time"
)

// TokenProvider supplies the credentials for report requests.
type TokenProvider interface {
	AccessToken() (string, bool)
	TenantID() (string, bool)
}

// MemoryTokenStore keeps the current connection in process memory. It is
// filled by the OAuth callback and emptied on logout or once the token
// expires. Nothing is persisted and tokens are never refreshed.
type MemoryTokenStore struct {
	mu        sync.RWMutex
	token     string
	tenantID  string
	expiresAt time.Time
	now       func() time.Time
}

var _ TokenProvider = (*MemoryTokenStore)(nil)

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{now: time.Now}
}

// Set stores a connection. A zero expiresAt never expires.
func (s *MemoryTokenStore) Set(token, tenantID string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.tenantID = tenantID
	s.expiresAt = expiresAt
}

func (s *MemoryTokenStore) Clear() {
	s.Set("", "", time.Time{})
}

func (s *MemoryTokenStore) AccessToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" || s.expiredLocked() {
		return "", false
	}
	return s.token, true
}

func (s *MemoryTokenStore) TenantID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tenantID == "" || s.expiredLocked() {
		return "", false
	}
	return s.tenantID, true
}

// Status reports whether a usable connection exists and when it expires.
func (s *MemoryTokenStore) Status() (connected bool, tenantID string, expiresAt time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	connected = s.token != "" && s.tenantID != "" && !s.expiredLocked()
	return connected, s.tenantID, s.expiresAt
}

func (s *MemoryTokenStore) expiredLocked() bool {
	return !s.expiresAt.IsZero() && !s.now().Before(s.expiresAt)
}
