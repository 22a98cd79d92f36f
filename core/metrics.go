package core

import (
	"context"
	"maps"
	"strings"
)

// NopMetricsRecorder drops every measurement. It is the default recorder.
type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

const metricsNamespace = "connections"

// operationMetric returns connections.<operation>.<suffix>.
func operationMetric(operation string, suffix string) string {
	return strings.Join([]string{metricsNamespace, operation, suffix}, ".")
}

// metricTags keeps the low-cardinality fields of an operation. User ids and
// tokens never become tags.
func metricTags(operation string, status string, fields map[string]any) map[string]string {
	tags := map[string]string{"operation": operation, "status": status}
	for _, key := range []string{"provider", "outcome", "error_text_code"} {
		value, ok := fields[key].(string)
		if !ok {
			continue
		}
		if value = strings.TrimSpace(value); value != "" {
			tags[key] = value
		}
	}
	return tags
}

func cloneTags(tags map[string]string) map[string]string {
	if tags == nil {
		return map[string]string{}
	}
	return maps.Clone(tags)
}
