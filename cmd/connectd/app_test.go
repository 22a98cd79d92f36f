package main

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/goliatone/go-connections/config"
	"github.com/goliatone/go-connections/core"
)

func TestOpenPersistenceRejectsUnknownDriver(t *testing.T) {
	if _, err := openPersistence(config.Env{DBDriver: "oracle"}); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
}

func TestOpenPersistenceAndMigrateSQLite(t *testing.T) {
	ctx := context.Background()
	env := config.Env{
		DBDriver:    config.DriverSQLite,
		DatabaseURL: fmt.Sprintf("file:connectd-test-%d?mode=memory&cache=shared", time.Now().UnixNano()),
	}
	client, err := openPersistence(env)
	if err != nil {
		t.Fatalf("open persistence: %v", err)
	}
	defer client.Close()

	if err := migrateSchema(ctx, client, env.DBDriver); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	var count int
	if err := client.DB().NewRaw("SELECT COUNT(*) FROM connect_oauth_states").Scan(ctx, &count); err != nil {
		t.Fatalf("query states table: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty states table, got %d", count)
	}
}

func TestNewAppWiresServiceFromEnvironment(t *testing.T) {
	t.Setenv("CONNECT_DATABASE_URL", fmt.Sprintf("file:connectd-app-%d?mode=memory&cache=shared", time.Now().UnixNano()))
	t.Setenv("CONNECT_TOKEN_KEY", "test-token-key")
	t.Setenv("CONNECT_CACHE_CONNECTIONS", "true")
	t.Setenv("TWITTER_CLIENT_ID", "tw-id")
	t.Setenv("TWITTER_CLIENT_SECRET", "tw-secret")

	a, err := newApp(context.Background(), nil, true)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer a.Close()

	if keys := a.service.Registry().Keys(); len(keys) != 1 || keys[0] != "twitter" {
		t.Fatalf("expected only twitter registered, got %v", keys)
	}
	out, err := a.service.Initiate(context.Background(), core.InitiateRequest{UserID: "user-1", Provider: "twitter"})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if out.State == "" || out.AuthorizationURL == "" {
		t.Fatalf("unexpected initiate result %#v", out)
	}
	purged, err := a.states.PurgeExpired(context.Background(), time.Now().Add(time.Hour))
	if err != nil || purged != 1 {
		t.Fatalf("expected issued state to purge after expiry, got %d (%v)", purged, err)
	}
}

func TestNewAppQueuesRevocations(t *testing.T) {
	ctx := context.Background()
	t.Setenv("CONNECT_DATABASE_URL", fmt.Sprintf("file:connectd-queue-%d?mode=memory&cache=shared", time.Now().UnixNano()))
	t.Setenv("CONNECT_REVOCATION_MODE", "queue")
	t.Setenv("TWITTER_CLIENT_ID", "tw-id")
	t.Setenv("TWITTER_CLIENT_SECRET", "tw-secret")

	a, err := newApp(ctx, nil, true)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer a.Close()
	if a.revocationQueue == nil || a.revocationWorker == nil {
		t.Fatalf("expected queue mode to wire the revocation queue")
	}

	connection, err := a.connections.Upsert(ctx, core.UpsertConnectionInput{
		UserID:   "user-1",
		Provider: "twitter",
		Token:    core.TokenResult{AccessToken: "access-1"},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := a.service.Disconnect(ctx, core.DisconnectRequest{UserID: "user-1", Provider: "twitter"}); err != nil {
		t.Fatalf("disconnect: %v", err)
	}

	delivery, err := a.revocationQueue.Dequeue(ctx)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if delivery == nil {
		t.Fatalf("expected disconnect to enqueue a revocation job")
	}
	msg := delivery.Message()
	if msg.JobID != "connections.revoke" || msg.Parameters["connection_id"] != connection.ID {
		t.Fatalf("unexpected revocation job %#v", msg)
	}
	if _, ok := msg.Parameters["access_token"]; ok {
		t.Fatalf("expected tokens to stay out of the queue, got %#v", msg.Parameters)
	}
	if err := delivery.Ack(ctx); err != nil {
		t.Fatalf("ack: %v", err)
	}
}

func TestNewAppRevokesInlineByDefault(t *testing.T) {
	t.Setenv("CONNECT_DATABASE_URL", fmt.Sprintf("file:connectd-inline-%d?mode=memory&cache=shared", time.Now().UnixNano()))

	a, err := newApp(context.Background(), nil, true)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer a.Close()
	if a.revocationQueue != nil || a.revocationWorker != nil {
		t.Fatalf("expected no revocation queue in inline mode")
	}
}
