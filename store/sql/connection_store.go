package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-connections/core"
	"github.com/goliatone/go-connections/security"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ConnectionStore persists platform connections. Token columns pass through
// the configured cipher on every write and read.
type ConnectionStore struct {
	db     *bun.DB
	repo   repository.Repository[*connectionRecord]
	cipher security.TokenCipher
	now    func() time.Time
}

func NewConnectionStore(db *bun.DB, cipher security.TokenCipher) (*ConnectionStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	if cipher == nil {
		cipher = security.PlaintextCipher{}
	}
	repo := repository.NewRepository[*connectionRecord](db, connectionHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid connection repository wiring: %w", err)
		}
	}
	return &ConnectionStore{
		db:     db,
		repo:   repo,
		cipher: cipher,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}, nil
}

// Upsert writes the connection in a single INSERT .. ON CONFLICT statement.
// An existing row keeps its id and created_at.
func (s *ConnectionStore) Upsert(ctx context.Context, in core.UpsertConnectionInput) (core.PlatformConnection, error) {
	if s == nil || s.db == nil {
		return core.PlatformConnection{}, fmt.Errorf("sqlstore: connection store is not configured")
	}
	if err := core.ValidateUpsertInput(in); err != nil {
		return core.PlatformConnection{}, err
	}
	in.UserID = strings.TrimSpace(in.UserID)
	in.Provider = core.NormalizeProviderKey(in.Provider)

	record, err := newConnectionRecord(ctx, s.cipher, in, uuid.NewString(), s.now())
	if err != nil {
		return core.PlatformConnection{}, err
	}

	_, err = s.db.NewInsert().
		Model(record).
		On("CONFLICT (user_id, provider) DO UPDATE").
		Set("access_token = EXCLUDED.access_token").
		Set("refresh_token = EXCLUDED.refresh_token").
		Set("token_type = EXCLUDED.token_type").
		Set("scope = EXCLUDED.scope").
		Set("expires_at = EXCLUDED.expires_at").
		Set("provider_user_id = EXCLUDED.provider_user_id").
		Set("display_name = EXCLUDED.display_name").
		Set("active = EXCLUDED.active").
		Set("profile_pending = EXCLUDED.profile_pending").
		Set("connected_at = EXCLUDED.connected_at").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return core.PlatformConnection{}, fmt.Errorf("sqlstore: upsert connection: %w", err)
	}

	stored, err := s.findOne(ctx,
		repository.SelectBy("user_id", "=", in.UserID),
		repository.SelectBy("provider", "=", in.Provider),
	)
	if err != nil {
		return core.PlatformConnection{}, err
	}
	return stored, nil
}

func (s *ConnectionStore) Get(ctx context.Context, userID string, provider string) (core.PlatformConnection, error) {
	if s == nil || s.repo == nil {
		return core.PlatformConnection{}, fmt.Errorf("sqlstore: connection store is not configured")
	}
	return s.findOne(ctx,
		repository.SelectBy("user_id", "=", strings.TrimSpace(userID)),
		repository.SelectBy("provider", "=", core.NormalizeProviderKey(provider)),
		activeOnly(),
	)
}

func (s *ConnectionStore) List(ctx context.Context, userID string) ([]core.PlatformConnection, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: connection store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("user_id", "=", strings.TrimSpace(userID)),
		activeOnly(),
		repository.OrderBy("connected_at ASC"),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list connections: %w", err)
	}
	out := make([]core.PlatformConnection, 0, len(records))
	for _, record := range records {
		connection, err := record.toDomain(ctx, s.cipher)
		if err != nil {
			return nil, err
		}
		out = append(out, connection)
	}
	core.SortConnections(out)
	return out, nil
}

// ListAll returns the user's connections, inactive ones included.
func (s *ConnectionStore) ListAll(ctx context.Context, userID string) ([]core.PlatformConnection, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: connection store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("user_id", "=", strings.TrimSpace(userID)),
		repository.OrderBy("connected_at ASC"),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list all connections: %w", err)
	}
	out := make([]core.PlatformConnection, 0, len(records))
	for _, record := range records {
		connection, err := record.toDomain(ctx, s.cipher)
		if err != nil {
			return nil, err
		}
		out = append(out, connection)
	}
	core.SortConnections(out)
	return out, nil
}

// Deactivate flips the active flag inside a transaction and reports the row
// as it was before the change.
func (s *ConnectionStore) Deactivate(ctx context.Context, userID string, provider string) (core.PlatformConnection, bool, error) {
	if s == nil || s.db == nil {
		return core.PlatformConnection{}, false, fmt.Errorf("sqlstore: connection store is not configured")
	}
	userID = strings.TrimSpace(userID)
	provider = core.NormalizeProviderKey(provider)

	var previous connectionRecord
	changed := false
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var rows []connectionRecord
		if err := tx.NewSelect().
			Model(&rows).
			Where("user_id = ?", userID).
			Where("provider = ?", provider).
			Where("active = ?", true).
			Limit(1).
			Scan(ctx); err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		previous = rows[0]
		result, err := tx.NewUpdate().
			Model((*connectionRecord)(nil)).
			Set("active = ?", false).
			Set("updated_at = ?", s.now()).
			Where("id = ?", previous.ID).
			Where("active = ?", true).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err == nil && affected == 0 {
			return nil
		}
		changed = true
		return nil
	})
	if err != nil {
		return core.PlatformConnection{}, false, fmt.Errorf("sqlstore: deactivate connection: %w", err)
	}
	if !changed {
		return core.PlatformConnection{}, false, nil
	}
	connection, err := previous.toDomain(ctx, s.cipher)
	if err != nil {
		return core.PlatformConnection{}, false, err
	}
	return connection, true, nil
}

func (s *ConnectionStore) FindByID(ctx context.Context, id string) (core.PlatformConnection, error) {
	if s == nil || s.repo == nil {
		return core.PlatformConnection{}, fmt.Errorf("sqlstore: connection store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return core.PlatformConnection{}, core.ErrConnectionNotFound
	}
	return s.findOne(ctx, repository.SelectBy("id", "=", id))
}

func (s *ConnectionStore) findOne(ctx context.Context, criteria ...repository.SelectCriteria) (core.PlatformConnection, error) {
	criteria = append(criteria, repository.SelectPaginate(1, 0))
	records, _, err := s.repo.List(ctx, criteria...)
	if err != nil {
		return core.PlatformConnection{}, fmt.Errorf("sqlstore: load connection: %w", err)
	}
	if len(records) == 0 {
		return core.PlatformConnection{}, core.ErrConnectionNotFound
	}
	return records[0].toDomain(ctx, s.cipher)
}

func activeOnly() repository.SelectCriteria {
	return repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.active = ?", true)
	})
}
