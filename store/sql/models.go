package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type connectionRecord struct {
	bun.BaseModel `bun:"table:connect_platform_connections,alias:cpc"`

	ID             string     `bun:"id,pk"`
	UserID         string     `bun:"user_id,notnull"`
	Provider       string     `bun:"provider,notnull"`
	AccessToken    string     `bun:"access_token,notnull"`
	RefreshToken   string     `bun:"refresh_token,notnull"`
	TokenType      string     `bun:"token_type,notnull"`
	Scope          string     `bun:"scope,notnull"`
	ExpiresAt      *time.Time `bun:"expires_at,nullzero"`
	ProviderUserID string     `bun:"provider_user_id,notnull"`
	DisplayName    string     `bun:"display_name,notnull"`
	Active         bool       `bun:"active,notnull"`
	ProfilePending bool       `bun:"profile_pending,notnull"`
	ConnectedAt    time.Time  `bun:"connected_at,notnull"`
	CreatedAt      time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt      time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type oauthStateRecord struct {
	bun.BaseModel `bun:"table:connect_oauth_states,alias:cos"`

	State        string    `bun:"state,pk"`
	UserID       string    `bun:"user_id,notnull"`
	Provider     string    `bun:"provider,notnull"`
	CodeVerifier string    `bun:"code_verifier,notnull"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	ExpiresAt    time.Time `bun:"expires_at,notnull"`
}
