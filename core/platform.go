package core

import (
	"fmt"
	"net/url"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Validate checks the invariants a platform must satisfy before it can be
// registered. The redirect URI is compared verbatim by providers, so it is
// validated for shape but never normalized.
func (c PlatformConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Key, validation.Required),
		validation.Field(&c.AuthorizeURL, validation.Required, validation.By(absoluteHTTPURL)),
		validation.Field(&c.TokenURL, validation.Required, validation.By(absoluteHTTPURL)),
		validation.Field(&c.ProfileURL, validation.By(absoluteHTTPURL)),
		validation.Field(&c.RevokeURL, validation.By(absoluteHTTPURL)),
		validation.Field(&c.ClientID, validation.Required),
		validation.Field(&c.ClientSecret, validation.Required),
		validation.Field(&c.RedirectURI, validation.Required, validation.By(absoluteHTTPURL), validation.By(noFragment)),
		validation.Field(&c.SecretMode, validation.Required, validation.In(SecretModeBody, SecretModeHeader)),
	)
}

func absoluteHTTPURL(value any) error {
	raw, _ := value.(string)
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("must be a valid URL")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("must use http or https")
	}
	if parsed.Host == "" {
		return fmt.Errorf("must be absolute")
	}
	return nil
}

func noFragment(value any) error {
	raw, _ := value.(string)
	if strings.Contains(raw, "#") {
		return fmt.Errorf("must not contain a fragment")
	}
	return nil
}
