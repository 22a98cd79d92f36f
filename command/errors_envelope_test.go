package command

import (
	"context"
	"net/http"
	"testing"

	"github.com/goliatone/go-connections/core"
	goerrors "github.com/goliatone/go-errors"
)

func TestCommandDependencyErrorEnvelope(t *testing.T) {
	err := NewConnectCommand(nil).Execute(context.Background(), ConnectMessage{})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal category, got %q", rich.Category)
	}
	if rich.TextCode != core.ErrorInternal {
		t.Fatalf("expected %q, got %q", core.ErrorInternal, rich.TextCode)
	}
	if rich.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rich.Code)
	}
}

func TestCommandValidationErrorEnvelope(t *testing.T) {
	err := ConnectMessage{}.Validate()
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryValidation {
		t.Fatalf("expected validation category, got %q", rich.Category)
	}
	if rich.TextCode != core.ErrorBadInput {
		t.Fatalf("expected %q, got %q", core.ErrorBadInput, rich.TextCode)
	}
	if core.ErrorTextCode(err) != core.ErrorBadInput {
		t.Fatalf("expected mapper to keep bad input code, got %q", core.ErrorTextCode(err))
	}
}
