package identity

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/goliatone/go-connections/core"
)

// ClaimsFromIDToken decodes the claims of an id_token received directly
// from the provider's token endpoint over TLS. The signature is not checked.
func ClaimsFromIDToken(idToken string) (jwt.MapClaims, error) {
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return nil, fmt.Errorf("identity: id_token is empty")
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return nil, fmt.Errorf("identity: parse id_token: %w", err)
	}
	return claims, nil
}

// ProfileFromIDToken builds a profile from OIDC claims: sub, then given and
// family name, then name.
func ProfileFromIDToken(idToken string) (core.Profile, error) {
	claims, err := ClaimsFromIDToken(idToken)
	if err != nil {
		return core.Profile{}, err
	}
	payload := map[string]any(claims)
	subject := LookupString(payload, "sub")
	if subject == "" {
		return core.Profile{}, fmt.Errorf("identity: id_token has no subject")
	}
	name := joinFields(payload, []string{"given_name", "family_name"})
	if name == "" {
		name = LookupString(payload, "name")
	}
	return core.Profile{ID: subject, DisplayName: name}, nil
}
