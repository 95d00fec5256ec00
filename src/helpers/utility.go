package helpers

import (
	"strings"

	"github.com/google/uuid"
)

// Add this function to generate UUIDs
func GenerateUUID() string {
	return uuid.New().String()
}

// NormalizeName folds an object or class name for case-insensitive
// map keys. Names compare equal when their normalized forms match.
func NormalizeName(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// HumanizeFieldName turns a schema field name like "x_origin" into
// the label written in IDF field comments ("X Origin").
func HumanizeFieldName(name string) string {
	parts := strings.Split(name, "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
