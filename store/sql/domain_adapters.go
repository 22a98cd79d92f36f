package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-connections/core"
	"github.com/goliatone/go-connections/security"
)

func newConnectionRecord(
	ctx context.Context,
	cipher security.TokenCipher,
	in core.UpsertConnectionInput,
	id string,
	now time.Time,
) (*connectionRecord, error) {
	accessToken, err := cipher.Seal(ctx, in.Token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: seal access token: %w", err)
	}
	refreshToken, err := cipher.Seal(ctx, in.Token.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: seal refresh token: %w", err)
	}
	connectedAt := in.ConnectedAt.UTC()
	if in.ConnectedAt.IsZero() {
		connectedAt = now
	}
	return &connectionRecord{
		ID:             id,
		UserID:         in.UserID,
		Provider:       in.Provider,
		AccessToken:    accessToken,
		RefreshToken:   refreshToken,
		TokenType:      in.Token.TokenType,
		Scope:          in.Token.Scope,
		ExpiresAt:      utcTimePointer(in.Token.ExpiresAt),
		ProviderUserID: in.ProviderUserID,
		DisplayName:    in.DisplayName,
		Active:         true,
		ProfilePending: in.ProfilePending,
		ConnectedAt:    connectedAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func (r *connectionRecord) toDomain(ctx context.Context, cipher security.TokenCipher) (core.PlatformConnection, error) {
	if r == nil {
		return core.PlatformConnection{}, nil
	}
	accessToken, err := cipher.Open(ctx, r.AccessToken)
	if err != nil {
		return core.PlatformConnection{}, fmt.Errorf("sqlstore: open access token: %w", err)
	}
	refreshToken, err := cipher.Open(ctx, r.RefreshToken)
	if err != nil {
		return core.PlatformConnection{}, fmt.Errorf("sqlstore: open refresh token: %w", err)
	}
	return core.PlatformConnection{
		ID:             r.ID,
		UserID:         r.UserID,
		Provider:       r.Provider,
		AccessToken:    accessToken,
		RefreshToken:   refreshToken,
		TokenType:      r.TokenType,
		Scope:          r.Scope,
		ExpiresAt:      utcTimePointer(r.ExpiresAt),
		ProviderUserID: r.ProviderUserID,
		DisplayName:    r.DisplayName,
		Active:         r.Active,
		ProfilePending: r.ProfilePending,
		ConnectedAt:    r.ConnectedAt.UTC(),
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}, nil
}

func newOAuthStateRecord(state core.OAuthState, now time.Time) *oauthStateRecord {
	createdAt := state.CreatedAt.UTC()
	if state.CreatedAt.IsZero() {
		createdAt = now
	}
	return &oauthStateRecord{
		State:        state.Token,
		UserID:       state.UserID,
		Provider:     state.Provider,
		CodeVerifier: state.CodeVerifier,
		CreatedAt:    createdAt,
		ExpiresAt:    state.ExpiresAt.UTC(),
	}
}

func (r oauthStateRecord) toDomain() core.OAuthState {
	return core.OAuthState{
		Token:        r.State,
		UserID:       r.UserID,
		Provider:     r.Provider,
		CodeVerifier: r.CodeVerifier,
		CreatedAt:    r.CreatedAt.UTC(),
		ExpiresAt:    r.ExpiresAt.UTC(),
	}
}

func utcTimePointer(input *time.Time) *time.Time {
	if input == nil || input.IsZero() {
		return nil
	}
	value := input.UTC()
	return &value
}
