package utils

import "strings"

// ParseBool reads an HTML checkbox-style value. Anything other than
// true, 1, yes, or on (any case) is false.
func ParseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}

// OptionalString returns nil for blank input so empty form fields are stored
// as NULL.
func OptionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
