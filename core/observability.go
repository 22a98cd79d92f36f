package core

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// observeOperation emits one log line and the total/duration metrics for a
// finished service operation. Fields are redacted before they reach either.
func (s *Service) observeOperation(
	ctx context.Context,
	startedAt time.Time,
	operation string,
	err error,
	fields map[string]any,
) {
	if s == nil {
		return
	}
	operation = normalizeOperation(operation)
	elapsed := time.Since(startedAt)

	status := "success"
	if err != nil {
		status = "failure"
	}
	event := RedactSensitiveMap(fields)
	event["event_type"] = operation
	event["status"] = status
	event["duration_ms"] = elapsed.Milliseconds()
	if err != nil {
		mapped := MapError(err)
		event["error"] = err.Error()
		event["error_category"] = fmt.Sprint(mapped.Category)
		event["error_text_code"] = mapped.TextCode
		if len(mapped.Metadata) > 0 {
			event["error_metadata"] = RedactSensitiveMap(mapped.Metadata)
		}
	}

	if s.metricsRecorder != nil {
		tags := metricTags(operation, status, event)
		s.metricsRecorder.IncCounter(ctx, operationMetric(operation, "total"), 1, cloneTags(tags))
		s.metricsRecorder.ObserveHistogram(ctx, operationMetric(operation, "duration_ms"), float64(elapsed.Milliseconds()), tags)
	}

	if err != nil {
		s.log(ctx, Logger.Error, operation+" failed", event)
		return
	}
	s.log(ctx, Logger.Info, operation+" succeeded", event)
}

func (s *Service) logWarn(ctx context.Context, message string, fields map[string]any) {
	s.log(ctx, Logger.Warn, message, fields)
}

// log writes through emit, a Logger method expression. Fields are attached
// with WithFields when the logger supports it and always as key/value args.
func (s *Service) log(ctx context.Context, emit func(Logger, string, ...any), message string, fields map[string]any) {
	if s == nil || s.logger == nil {
		return
	}
	logger := s.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		logger = fieldsLogger.WithFields(cloneFields(fields))
	}
	emit(logger, message, flattenFields(fields)...)
}

func cloneFields(fields map[string]any) map[string]any {
	if fields == nil {
		return map[string]any{}
	}
	return maps.Clone(fields)
}

func flattenFields(fields map[string]any) []any {
	args := make([]any, 0, len(fields)*2)
	for _, key := range slices.Sorted(maps.Keys(fields)) {
		args = append(args, key, fields[key])
	}
	return args
}

func normalizeOperation(operation string) string {
	operation = strings.ToLower(strings.TrimSpace(operation))
	operation = strings.NewReplacer(" ", "_", "-", "_").Replace(operation)
	if operation == "" {
		return "unknown"
	}
	return operation
}
