package core

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	DefaultStateTTL = 10 * time.Minute

	stateTokenBytes   = 32
	codeVerifierBytes = 48
)

type OAuthState struct {
	Token        string
	UserID       string
	Provider     string
	CodeVerifier string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

func (s OAuthState) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

type MemoryStateStore struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]OAuthState
}

type MemoryStateStoreOption func(*MemoryStateStore)

func WithMemoryStateClock(now func() time.Time) MemoryStateStoreOption {
	return func(s *MemoryStateStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewMemoryStateStore(opts ...MemoryStateStoreOption) *MemoryStateStore {
	store := &MemoryStateStore{
		now:     time.Now,
		entries: map[string]OAuthState{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store
}

func (s *MemoryStateStore) Issue(_ context.Context, state OAuthState) error {
	if s == nil {
		return fmt.Errorf("core: oauth state store is not configured")
	}
	token := strings.TrimSpace(state.Token)
	if token == "" {
		return fmt.Errorf("core: oauth state is required")
	}
	if state.ExpiresAt.IsZero() {
		return fmt.Errorf("core: oauth state expiry is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for existing, entry := range s.entries {
		if entry.UserID == state.UserID && entry.Provider == state.Provider {
			delete(s.entries, existing)
		}
	}
	s.entries[token] = state
	return nil
}

func (s *MemoryStateStore) Consume(_ context.Context, token string) (OAuthState, error) {
	if s == nil {
		return OAuthState{}, fmt.Errorf("core: oauth state store is not configured")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return OAuthState{}, ErrStateNotFound
	}

	s.mu.Lock()
	record, ok := s.entries[token]
	if ok {
		delete(s.entries, token)
	}
	s.mu.Unlock()

	if !ok || record.Expired(s.now().UTC()) {
		return OAuthState{}, ErrStateNotFound
	}
	return record, nil
}

func (s *MemoryStateStore) PurgeExpired(_ context.Context, now time.Time) (int, error) {
	if s == nil {
		return 0, fmt.Errorf("core: oauth state store is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	purged := 0
	for token, entry := range s.entries {
		if entry.Expired(now) {
			delete(s.entries, token)
			purged++
		}
	}
	return purged, nil
}

func (s *MemoryStateStore) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func generateStateToken() (string, error) {
	return randomURLToken(stateTokenBytes)
}

// generatePKCE returns an RFC 7636 verifier and its S256 challenge.
func generatePKCE() (string, string, error) {
	verifier, err := randomURLToken(codeVerifierBytes)
	if err != nil {
		return "", "", err
	}
	sum := sha256.Sum256([]byte(verifier))
	return verifier, base64.RawURLEncoding.EncodeToString(sum[:]), nil
}

func randomURLToken(size int) (string, error) {
	raw := make([]byte, size)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("core: generate random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
