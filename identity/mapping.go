package identity

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-connections/core"
)

// ExtractProfile maps a decoded profile payload. The id field is required;
// the display name is built from NameFields, then FallbackNameFields.
func ExtractProfile(payload map[string]any, mapping core.ProfileMapping) (core.Profile, error) {
	idField := strings.TrimSpace(mapping.IDField)
	if idField == "" {
		idField = "id"
	}
	id := LookupString(payload, idField)
	if id == "" {
		return core.Profile{}, fmt.Errorf("profile payload missing %q", idField)
	}
	name := joinFields(payload, mapping.NameFields)
	if name == "" {
		name = joinFields(payload, mapping.FallbackNameFields)
	}
	return core.Profile{ID: id, DisplayName: name}, nil
}

func joinFields(payload map[string]any, fields []string) string {
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		if value := LookupString(payload, field); value != "" {
			parts = append(parts, value)
		}
	}
	return strings.Join(parts, " ")
}

// LookupString resolves a dotted path such as "data.username". Numeric
// segments index into arrays.
func LookupString(payload map[string]any, path string) string {
	var current any = payload
	for _, segment := range strings.Split(strings.TrimSpace(path), ".") {
		if segment == "" {
			return ""
		}
		switch typed := current.(type) {
		case map[string]any:
			current = typed[segment]
		case []any:
			index, err := strconv.Atoi(segment)
			if err != nil || index < 0 || index >= len(typed) {
				return ""
			}
			current = typed[index]
		default:
			return ""
		}
	}
	return readString(current)
}

func readString(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(typed)
	case json.Number:
		return typed.String()
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(typed)
	case map[string]any, []any:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(typed))
	}
}
