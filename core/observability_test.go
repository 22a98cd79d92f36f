package core

import (
	"context"
	"testing"
)

func TestObserveOperationLogsAndRecordsMetrics(t *testing.T) {
	fixture := mustFixture(t, "twitter")
	if _, err := fixture.service.Initiate(context.Background(), InitiateRequest{UserID: "u1", Provider: "twitter"}); err != nil {
		t.Fatalf("initiate: %v", err)
	}

	records := fixture.logger.snapshot()
	if len(records) == 0 {
		t.Fatalf("expected logs to be emitted")
	}
	last := records[len(records)-1]
	if last.level != "info" || last.msg != "initiate succeeded" {
		t.Fatalf("unexpected log record %#v", last)
	}
	if last.fields["provider"] != "twitter" {
		t.Fatalf("expected provider field, got %#v", last.fields["provider"])
	}

	fixture.metrics.mu.Lock()
	defer fixture.metrics.mu.Unlock()
	found := false
	for _, counter := range fixture.metrics.counters {
		if counter.name == "connections.initiate.total" && counter.tags["status"] == "success" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected initiate counter, got %#v", fixture.metrics.counters)
	}
}

func TestObserveOperationRedactsErrorMetadata(t *testing.T) {
	fixture := mustFixture(t, "twitter")
	err := NewError(ErrorConfiguration, "providers: token endpoint rejected client", map[string]any{
		"provider":      "twitter",
		"client_secret": "shh",
		"status_code":   401,
	})
	fixture.service.observeOperation(context.Background(), fixture.clock.Now(), "callback", err, map[string]any{
		"provider": "twitter",
		"code":     "auth-code",
	})

	records := fixture.logger.snapshot()
	last := records[len(records)-1]
	if last.level != "error" {
		t.Fatalf("expected error level, got %q", last.level)
	}
	if last.fields["error_text_code"] != ErrorConfiguration {
		t.Fatalf("unexpected text code %#v", last.fields["error_text_code"])
	}
	if last.fields["code"] != RedactedValue {
		t.Fatalf("expected authorization code to be redacted, got %#v", last.fields["code"])
	}
	metadata, ok := last.fields["error_metadata"].(map[string]any)
	if !ok {
		t.Fatalf("expected error metadata map, got %#v", last.fields["error_metadata"])
	}
	if metadata["client_secret"] != RedactedValue {
		t.Fatalf("expected client secret to be redacted, got %#v", metadata["client_secret"])
	}
	if metadata["status_code"] != 401 {
		t.Fatalf("expected status code to survive, got %#v", metadata["status_code"])
	}
}

func TestMalformedCallbackKeepsPresenceFlags(t *testing.T) {
	fixture := mustFixture(t, "twitter")
	_, err := fixture.service.HandleCallback(context.Background(), CallbackRequest{
		Provider: "twitter",
		Params:   CallbackParams{State: "state-1"},
	})
	if ErrorTextCode(err) != ErrorMalformedCallback {
		t.Fatalf("expected malformed callback, got %v", err)
	}

	records := fixture.logger.snapshot()
	last := records[len(records)-1]
	metadata, ok := last.fields["error_metadata"].(map[string]any)
	if !ok {
		t.Fatalf("expected error metadata map, got %#v", last.fields["error_metadata"])
	}
	if metadata["code_present"] != false || metadata["state_present"] != true {
		t.Fatalf("expected presence flags to survive redaction, got %#v", metadata)
	}

	redacted := RedactSensitiveMap(map[string]any{"code_present": true, "code": "auth-code"})
	if redacted["code_present"] != true || redacted["code"] != RedactedValue {
		t.Fatalf("unexpected redaction %#v", redacted)
	}
}

func TestRedactSensitiveMapNested(t *testing.T) {
	redacted := RedactSensitiveMap(map[string]any{
		"provider": "twitter",
		"payload": map[string]any{
			"access_token": "abc",
			"items":        []any{map[string]any{"refresh_token": "def"}},
		},
	})
	payload := redacted["payload"].(map[string]any)
	if payload["access_token"] != RedactedValue {
		t.Fatalf("expected nested token to be redacted")
	}
	item := payload["items"].([]any)[0].(map[string]any)
	if item["refresh_token"] != RedactedValue {
		t.Fatalf("expected token inside slice to be redacted")
	}
	if redacted["provider"] != "twitter" {
		t.Fatalf("expected provider to survive")
	}
}
