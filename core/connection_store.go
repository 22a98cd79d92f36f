package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type connectionKey struct {
	userID   string
	provider string
}

// MemoryConnectionStore keeps one row per user and provider, mirroring the
// unique constraint of the SQL schema.
type MemoryConnectionStore struct {
	mu   sync.Mutex
	now  func() time.Time
	rows map[connectionKey]PlatformConnection
}

func NewMemoryConnectionStore() *MemoryConnectionStore {
	return &MemoryConnectionStore{
		now:  time.Now,
		rows: map[connectionKey]PlatformConnection{},
	}
}

func (s *MemoryConnectionStore) Upsert(_ context.Context, in UpsertConnectionInput) (PlatformConnection, error) {
	if s == nil {
		return PlatformConnection{}, fmt.Errorf("core: connection store is not configured")
	}
	if err := ValidateUpsertInput(in); err != nil {
		return PlatformConnection{}, err
	}
	now := s.now().UTC()
	connectedAt := in.ConnectedAt
	if connectedAt.IsZero() {
		connectedAt = now
	}
	key := connectionKey{userID: strings.TrimSpace(in.UserID), provider: NormalizeProviderKey(in.Provider)}

	s.mu.Lock()
	defer s.mu.Unlock()
	row, exists := s.rows[key]
	if !exists {
		row = PlatformConnection{
			ID:        uuid.NewString(),
			UserID:    key.userID,
			Provider:  key.provider,
			CreatedAt: now,
		}
	}
	row.AccessToken = in.Token.AccessToken
	row.RefreshToken = in.Token.RefreshToken
	row.TokenType = in.Token.TokenType
	row.Scope = in.Token.Scope
	row.ExpiresAt = cloneTime(in.Token.ExpiresAt)
	row.ProviderUserID = in.ProviderUserID
	row.DisplayName = in.DisplayName
	row.ProfilePending = in.ProfilePending
	row.Active = true
	row.ConnectedAt = connectedAt
	row.UpdatedAt = now
	s.rows[key] = row
	return cloneConnection(row), nil
}

func (s *MemoryConnectionStore) Get(_ context.Context, userID string, provider string) (PlatformConnection, error) {
	if s == nil {
		return PlatformConnection{}, fmt.Errorf("core: connection store is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[connectionKey{userID: strings.TrimSpace(userID), provider: NormalizeProviderKey(provider)}]
	if !ok || !row.Active {
		return PlatformConnection{}, ErrConnectionNotFound
	}
	return cloneConnection(row), nil
}

func (s *MemoryConnectionStore) List(_ context.Context, userID string) ([]PlatformConnection, error) {
	if s == nil {
		return nil, fmt.Errorf("core: connection store is not configured")
	}
	userID = strings.TrimSpace(userID)
	s.mu.Lock()
	out := make([]PlatformConnection, 0, len(s.rows))
	for key, row := range s.rows {
		if key.userID == userID && row.Active {
			out = append(out, cloneConnection(row))
		}
	}
	s.mu.Unlock()
	SortConnections(out)
	return out, nil
}

// ListAll returns the user's connections, inactive ones included.
func (s *MemoryConnectionStore) ListAll(_ context.Context, userID string) ([]PlatformConnection, error) {
	if s == nil {
		return nil, fmt.Errorf("core: connection store is not configured")
	}
	userID = strings.TrimSpace(userID)
	s.mu.Lock()
	out := make([]PlatformConnection, 0, len(s.rows))
	for key, row := range s.rows {
		if key.userID == userID {
			out = append(out, cloneConnection(row))
		}
	}
	s.mu.Unlock()
	SortConnections(out)
	return out, nil
}

func (s *MemoryConnectionStore) Deactivate(_ context.Context, userID string, provider string) (PlatformConnection, bool, error) {
	if s == nil {
		return PlatformConnection{}, false, fmt.Errorf("core: connection store is not configured")
	}
	key := connectionKey{userID: strings.TrimSpace(userID), provider: NormalizeProviderKey(provider)}
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[key]
	if !ok || !row.Active {
		return PlatformConnection{}, false, nil
	}
	previous := cloneConnection(row)
	row.Active = false
	row.UpdatedAt = s.now().UTC()
	s.rows[key] = row
	return previous, true, nil
}

func (s *MemoryConnectionStore) FindByID(_ context.Context, id string) (PlatformConnection, error) {
	if s == nil {
		return PlatformConnection{}, fmt.Errorf("core: connection store is not configured")
	}
	id = strings.TrimSpace(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.ID == id {
			return cloneConnection(row), nil
		}
	}
	return PlatformConnection{}, ErrConnectionNotFound
}

// SortConnections orders connections by connection time, then provider key.
func SortConnections(connections []PlatformConnection) {
	sort.SliceStable(connections, func(i, j int) bool {
		if !connections[i].ConnectedAt.Equal(connections[j].ConnectedAt) {
			return connections[i].ConnectedAt.Before(connections[j].ConnectedAt)
		}
		return connections[i].Provider < connections[j].Provider
	})
}

func ValidateUpsertInput(in UpsertConnectionInput) error {
	if strings.TrimSpace(in.UserID) == "" {
		return fmt.Errorf("core: user id is required")
	}
	if strings.TrimSpace(in.Provider) == "" {
		return fmt.Errorf("core: provider is required")
	}
	if strings.TrimSpace(in.Token.AccessToken) == "" {
		return fmt.Errorf("core: access token is required")
	}
	return nil
}

func cloneConnection(in PlatformConnection) PlatformConnection {
	out := in
	out.ExpiresAt = cloneTime(in.ExpiresAt)
	return out
}

func cloneTime(in *time.Time) *time.Time {
	if in == nil {
		return nil
	}
	value := *in
	return &value
}
