package application

import (
	"fmt"
	"slices"
	"strings"

	"arbor/internal/ports"
)

// ValidateRequired checks if a string field is non-empty (after trimming whitespace).
// Returns a ValidationError if the field is empty.
func ValidateRequired(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		// Format field name with spaces for error message (e.g., "nodeID" -> "node ID")
		displayName := formatFieldName(fieldName)
		return &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("%s is required", displayName),
		}
	}
	return nil
}

// formatFieldName converts camelCase field names to space-separated words
// for more readable error messages (e.g., "nodeID" -> "node ID")
func formatFieldName(fieldName string) string {
	replacements := map[string]string{
		"nodeID":       "node ID",
		"parentID":     "parent ID",
		"targetID":     "target ID",
		"principalID":  "principal ID",
		"typeName":     "type name",
		"bookName":     "book name",
		"propertyName": "property name",
		"userName":     "user name",
	}

	if formatted, ok := replacements[fieldName]; ok {
		return formatted
	}

	return fieldName
}

// ValidateOneOf checks that value is one of the allowed choices.
func ValidateOneOf(fieldName, value string, allowed ...string) error {
	if slices.Contains(allowed, value) {
		return nil
	}
	return &ValidationError{
		Field:   fieldName,
		Message: fmt.Sprintf("expected one of %s, got: %q", strings.Join(allowed, ", "), value),
	}
}

// ValidateLocation checks a paste location.
func ValidateLocation(location string) error {
	return ValidateOneOf("location", location,
		ports.LocationInside, ports.LocationInline, ports.LocationInlineAbove)
}

// ValidateDirection checks a reorder direction.
func ValidateDirection(direction string) error {
	return ValidateOneOf("direction", direction,
		ports.PositionUp, ports.PositionDown, ports.PositionTop, ports.PositionBottom)
}

// CheckSuccess is the uniform predicate applied to every authority
// response before local state is touched.
func CheckSuccess(op string, res ports.ResponseBase) error {
	if res.Success {
		return nil
	}
	if res.ExceptionType == ports.ExceptionAuth {
		msg := res.Message
		if msg == "" {
			msg = "not authorized"
		}
		return &AuthorizationError{Op: op, Message: msg}
	}
	return &ServerRejection{Op: op, Message: res.Message, ExceptionType: res.ExceptionType}
}
