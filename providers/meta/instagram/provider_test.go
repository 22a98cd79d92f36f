package instagram

import (
	"testing"

	meta "github.com/goliatone/go-connections/providers/meta/common"
)

func TestDefaultPlatform(t *testing.T) {
	platform := DefaultPlatform()
	if platform.Key != ProviderKey || platform.AuthorizeURL != meta.MetaOAuthAuthURL {
		t.Fatalf("unexpected platform %+v", platform)
	}
	if platform.JoinedScopes() != "instagram_basic,instagram_content_publish,pages_show_list" {
		t.Fatalf("unexpected scopes %q", platform.JoinedScopes())
	}

	if _, err := New(Config{ClientID: "app-id"}); err == nil {
		t.Fatalf("expected missing secret and redirect uri to fail")
	}
}
