package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	connections "github.com/goliatone/go-connections"
	"github.com/goliatone/go-connections/adapters/gojob"
	"github.com/goliatone/go-connections/config"
	"github.com/goliatone/go-connections/core"
	connectmigrations "github.com/goliatone/go-connections/migrations"
	"github.com/goliatone/go-connections/security"
	sqlstore "github.com/goliatone/go-connections/store/sql"
	queuesql "github.com/goliatone/go-job/queue/adapters/postgres"
	glog "github.com/goliatone/go-logger/glog"
	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

const connectionCacheTTL = 30 * time.Second

const (
	revocationQueueTable  = "connect_revocation_queue"
	revocationDLQTable    = "connect_revocation_dlq"
	revocationStatusTable = "connect_revocation_status"
)

type app struct {
	env     config.Env
	slog    *slog.Logger
	logger  *glog.BaseLogger
	client  *persistence.Client
	states  *sqlstore.StateStore
	service *core.Service

	connections core.ConnectionStore

	// set when CONNECT_REVOCATION_MODE=queue
	revocationQueue  *queuesql.Adapter
	revocationWorker *gojob.RevocationWorker
}

func newApp(ctx context.Context, envFiles []string, migrate bool) (*app, error) {
	env, err := config.Load(envFiles...)
	if err != nil {
		return nil, err
	}
	logger, access := newProcessLogger(os.Stdout, env.LogLevel)

	client, err := openPersistence(env)
	if err != nil {
		return nil, err
	}
	a := &app{env: env, slog: access, logger: logger, client: client}
	if migrate {
		if err := migrateSchema(ctx, client, env.DBDriver); err != nil {
			a.Close()
			return nil, err
		}
	}

	var cipher security.TokenCipher = security.PlaintextCipher{}
	if key := strings.TrimSpace(env.TokenKey); key != "" {
		cipher, err = security.NewAppKeyCipherFromString(key)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connectd: token key: %w", err)
		}
	} else {
		logger.Warn("CONNECT_TOKEN_KEY is not set; provider tokens are stored unencrypted")
	}

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client, sqlstore.WithTokenCipher(cipher))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.states = factory.StateStore()

	var connectionStore core.ConnectionStore = factory.ConnectionStore()
	if env.CacheConnections {
		cacheConfig := repositorycache.DefaultConfig()
		cacheConfig.TTL = connectionCacheTTL
		cacheService, cacheErr := repositorycache.NewCacheService(cacheConfig)
		if cacheErr != nil {
			a.Close()
			return nil, fmt.Errorf("connectd: connection cache: %w", cacheErr)
		}
		connectionStore, err = sqlstore.NewCachedConnectionStore(connectionStore, cacheService)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	a.connections = connectionStore

	registry, err := connections.BuildRegistry(env.ProviderCredentials(), nil, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	opts := []connections.Option{
		connections.WithLogger(logger),
		connections.WithLoggerProvider(logger),
		connections.WithRegistry(registry),
		connections.WithStateStore(a.states),
		connections.WithConnectionStore(connectionStore),
	}
	if env.RevocationMode == config.RevocationModeQueue {
		dispatcher, err := a.openRevocationQueue(ctx, registry, connectionStore)
		if err != nil {
			a.Close()
			return nil, err
		}
		opts = append(opts, connections.WithRevocationDispatcher(dispatcher))
	}

	a.service, err = connections.NewService(env.CoreConfig(), opts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// openRevocationQueue stores revocation jobs in go-job tables on the
// connection database. Disconnect enqueues; the worker revokes through the
// inline revoker.
func (a *app) openRevocationQueue(ctx context.Context, registry *core.Registry, store core.ConnectionStore) (core.RevocationDispatcher, error) {
	dialect := queuesql.DialectPostgres
	if a.env.DBDriver == config.DriverSQLite {
		dialect = queuesql.DialectSQLite
	}
	storage := queuesql.NewStorage(a.client.DB().DB,
		queuesql.WithDialect(dialect),
		queuesql.WithTableName(revocationQueueTable),
		queuesql.WithDLQTableName(revocationDLQTable),
		queuesql.WithStatusTableName(revocationStatusTable),
	)
	if err := storage.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("connectd: revocation queue: %w", err)
	}
	a.revocationQueue = queuesql.NewAdapter(storage)
	a.revocationWorker = gojob.NewRevocationWorker(
		core.NewInlineRevoker(registry, store, a.env.RevocationTimeout),
		gojob.DefaultRetryPolicy(),
		a.logger.GetLogger("revocations"),
	)
	a.logger.Info("revocations are queued", "table", revocationQueueTable)
	return gojob.NewRevocationEnqueuer(a.revocationQueue), nil
}

// runRevocations polls the revocation queue until ctx is done. It is a no-op
// in inline mode.
func (a *app) runRevocations(ctx context.Context) {
	if a.revocationWorker == nil || a.revocationQueue == nil {
		return
	}
	if err := a.revocationWorker.Run(ctx, a.revocationQueue, a.env.RevocationPoll); err != nil {
		a.logger.Error("revocation worker stopped", "error", err)
	}
}

func (a *app) Close() {
	if a == nil || a.client == nil {
		return
	}
	if err := a.client.Close(); err != nil {
		a.logger.Error("close persistence client", "error", err)
	}
}

type persistenceConfig struct {
	driver string
	server string
}

func (c persistenceConfig) GetDebug() bool                { return false }
func (c persistenceConfig) GetDriver() string             { return c.driver }
func (c persistenceConfig) GetServer() string             { return c.server }
func (c persistenceConfig) GetPingTimeout() time.Duration { return 5 * time.Second }
func (c persistenceConfig) GetOtelIdentifier() string     { return "go-connections" }

func openPersistence(env config.Env) (*persistence.Client, error) {
	var dialect schema.Dialect
	switch env.DBDriver {
	case config.DriverPostgres:
		dialect = pgdialect.New()
	case config.DriverSQLite:
		dialect = sqlitedialect.New()
	default:
		return nil, fmt.Errorf("connectd: unsupported database driver %q", env.DBDriver)
	}

	sqlDB, err := sql.Open(env.DBDriver, env.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connectd: open database: %w", err)
	}
	if env.DBDriver == config.DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
	}
	client, err := persistence.New(persistenceConfig{driver: env.DBDriver, server: env.DatabaseURL}, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connectd: persistence client: %w", err)
	}
	return client, nil
}

func migrateSchema(ctx context.Context, client *persistence.Client, driver string) error {
	target := connectmigrations.DialectForDriver(driver)
	_, err := connectmigrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect != target {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, connectmigrations.WithValidationTargets(target))
	if err != nil {
		return err
	}
	return client.Migrate(ctx)
}
