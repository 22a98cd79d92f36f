package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func decodeLogLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var record map[string]any
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		out = append(out, record)
	}
	return out
}

func TestProcessLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := newProcessLogger(&buf, "info")

	logger.WithContext(context.Background()).Info("callback succeeded", "provider", "twitter")
	logger.WithFields(map[string]any{"connection_id": "conn-1"}).Warn("provider revocation failed")

	records := decodeLogLines(t, &buf)
	if len(records) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %q", len(records), buf.String())
	}
	if records[0]["msg"] != "callback succeeded" || records[0]["provider"] != "twitter" {
		t.Fatalf("unexpected first record %#v", records[0])
	}
	if records[0]["logger"] != "connectd" {
		t.Fatalf("expected logger name, got %#v", records[0])
	}
	if _, ok := records[0]["ts"]; !ok {
		t.Fatalf("expected ts key, got %#v", records[0])
	}
	if records[1]["level"] != "warn" || records[1]["connection_id"] != "conn-1" {
		t.Fatalf("unexpected second record %#v", records[1])
	}
}

func TestProcessLoggerSharesSinkWithSlog(t *testing.T) {
	var buf bytes.Buffer
	logger, access := newProcessLogger(&buf, "info")

	access.Info("request", "status", 200)
	logger.GetLogger("transport").Info("handled")

	records := decodeLogLines(t, &buf)
	if len(records) != 2 {
		t.Fatalf("expected both loggers to write to the same sink, got %q", buf.String())
	}
	if records[0]["msg"] != "request" || records[0]["level"] != "info" {
		t.Fatalf("unexpected access record %#v", records[0])
	}
	if records[1]["msg"] != "handled" {
		t.Fatalf("unexpected named record %#v", records[1])
	}
}

func TestProcessLoggerHonorsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, access := newProcessLogger(&buf, "info")
	logger.Debug("hidden")
	logger.Trace("hidden")
	access.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected debug and trace to be filtered, got %q", buf.String())
	}

	buf.Reset()
	logger, _ = newProcessLogger(&buf, "debug")
	logger.Debug("shown")
	if !strings.Contains(buf.String(), `"msg":"shown"`) {
		t.Fatalf("expected debug record, got %q", buf.String())
	}
}
