package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-connections/core"
	"github.com/uptrace/bun"
)

// StateStore keeps pending authorization states. Consume deletes and
// returns the row in one statement so a state can be redeemed only once.
type StateStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewStateStore(db *bun.DB) (*StateStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &StateStore{
		db: db,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}, nil
}

// WithClock overrides the clock used for expiry checks.
func (s *StateStore) WithClock(now func() time.Time) *StateStore {
	if s != nil && now != nil {
		s.now = now
	}
	return s
}

func (s *StateStore) Issue(ctx context.Context, state core.OAuthState) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: state store is not configured")
	}
	if strings.TrimSpace(state.Token) == "" {
		return fmt.Errorf("sqlstore: oauth state is required")
	}
	if state.ExpiresAt.IsZero() {
		return fmt.Errorf("sqlstore: oauth state expiry is required")
	}
	record := newOAuthStateRecord(state, s.now())

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*oauthStateRecord)(nil)).
			Where("user_id = ?", record.UserID).
			Where("provider = ?", record.Provider).
			Exec(ctx); err != nil {
			return fmt.Errorf("sqlstore: discard superseded states: %w", err)
		}
		if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
			return fmt.Errorf("sqlstore: insert oauth state: %w", err)
		}
		return nil
	})
}

func (s *StateStore) Consume(ctx context.Context, token string) (core.OAuthState, error) {
	if s == nil || s.db == nil {
		return core.OAuthState{}, fmt.Errorf("sqlstore: state store is not configured")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return core.OAuthState{}, core.ErrStateNotFound
	}

	var records []oauthStateRecord
	query := `
DELETE FROM connect_oauth_states
WHERE state = ?
RETURNING
	state,
	user_id,
	provider,
	code_verifier,
	created_at,
	expires_at
`
	if err := s.db.NewRaw(query, token).Scan(ctx, &records); err != nil {
		return core.OAuthState{}, fmt.Errorf("sqlstore: consume oauth state: %w", err)
	}
	if len(records) == 0 {
		return core.OAuthState{}, core.ErrStateNotFound
	}
	state := records[0].toDomain()
	if state.Expired(s.now()) {
		return core.OAuthState{}, core.ErrStateNotFound
	}
	return state, nil
}

func (s *StateStore) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: state store is not configured")
	}
	result, err := s.db.NewDelete().
		Model((*oauthStateRecord)(nil)).
		Where("expires_at <= ?", now.UTC()).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("sqlstore: purge oauth states: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(affected), nil
}
