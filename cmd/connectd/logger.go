package main

import (
	"io"
	"log/slog"
	"strings"

	glog "github.com/goliatone/go-logger/glog"
)

// newProcessLogger builds the process glog logger and an slog view over the
// same JSON handler, so HTTP access logs and service logs share one sink.
func newProcessLogger(w io.Writer, level string) (*glog.BaseLogger, *slog.Logger) {
	var sink slog.Handler
	logger := glog.NewLogger(
		glog.WithName("connectd"),
		glog.WithLoggerTypeJSON(),
		glog.WithWriter(w),
		glog.WithLevel(strings.ToUpper(strings.TrimSpace(level))),
		glog.WithHandlerWrapper(func(h slog.Handler) slog.Handler {
			if sink == nil {
				sink = h
			}
			return h
		}),
	)
	return logger, slog.New(sink)
}
