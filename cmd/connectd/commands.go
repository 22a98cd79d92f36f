package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/goliatone/go-connections/adapters/gocommand"
	connectionscommand "github.com/goliatone/go-connections/command"
	"github.com/goliatone/go-connections/core"
	"github.com/goliatone/go-connections/transport"
	"github.com/labstack/echo/v4"
	slogecho "github.com/samber/slog-echo"
	"github.com/urfave/cli/v2"
)

const shutdownTimeout = 10 * time.Second

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "run the HTTP API and the state sweeper",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "migrate",
			Usage: "apply migrations before serving",
			Value: true,
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx, stop := signal.NotifyContext(cctx.Context, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cctx.StringSlice("env-file"), cctx.Bool("migrate"))
		if err != nil {
			return err
		}
		defer a.Close()

		sweeper, err := core.NewStateSweeper(a.states, a.env.StateSweepSchedule, a.logger)
		if err != nil {
			return err
		}
		sweeper.Start()
		defer sweeper.Stop()

		go a.runRevocations(ctx)

		e := echo.New()
		e.HideBanner = true
		e.Use(slogecho.New(a.slog))
		transport.NewHandler(a.service,
			transport.WithIdentityResolver(transport.HeaderIdentity(a.env.IdentityHeader)),
			transport.WithDebugEndpoints(a.env.DebugEndpoints),
			transport.WithLogger(a.logger),
		).Register(e)

		httpd := &http.Server{
			Addr:              a.env.HTTPAddr,
			Handler:           e,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			a.logger.Info("http server listening", "addr", a.env.HTTPAddr, "providers", a.service.Registry().Keys())
			if err := httpd.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down http server")
		return httpd.Shutdown(shutdownCtx)
	},
}

var migrateCommand = &cli.Command{
	Name:  "migrate",
	Usage: "apply the connection schema migrations",
	Action: func(cctx *cli.Context) error {
		a, err := newApp(cctx.Context, cctx.StringSlice("env-file"), true)
		if err != nil {
			return err
		}
		defer a.Close()
		a.logger.Info("migrations applied", "driver", a.env.DBDriver)
		return nil
	},
}

var sweepStatesCommand = &cli.Command{
	Name:  "sweep-states",
	Usage: "delete expired authorization states once and exit",
	Action: func(cctx *cli.Context) error {
		a, err := newApp(cctx.Context, cctx.StringSlice("env-file"), false)
		if err != nil {
			return err
		}
		defer a.Close()

		adapter := gocommand.NewRegistryAdapter(nil)
		bus, err := gocommand.RegisterConnectionHandlers(adapter, gocommand.Handlers{
			Service: a.service,
			States:  a.states,
		})
		if err != nil {
			return err
		}
		defer bus.Close()
		if err := adapter.Initialize(); err != nil {
			return err
		}

		purged, err := gocommand.DispatchWithResult[connectionscommand.PurgeExpiredStatesMessage, int](
			cctx.Context,
			connectionscommand.PurgeExpiredStatesMessage{},
		)
		if err != nil {
			return fmt.Errorf("sweep states: %w", err)
		}
		a.slog.Info("expired states purged", slog.Int("purged", purged))
		return nil
	},
}
