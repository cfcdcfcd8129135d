package errors

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatForCLI formats an error for terminal display.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	pe, ok := As(err)
	if !ok {
		pe = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: %s\n", pe.Message)
	if pe.Suggestion != "" {
		fmt.Fprintf(&sb, "  Hint: %s\n", pe.Suggestion)
	}
	fmt.Fprintf(&sb, "  Code: %s\n", pe.Code)

	return sb.String()
}

// jsonError is the JSON representation of an error, as served by the HTTP API.
type jsonError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Category   string            `json:"category"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Retryable  bool              `json:"retryable"`
}

// FormatJSON returns a JSON representation of the error.
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}

	pe, ok := As(err)
	if !ok {
		pe = Wrap(ErrCodeInternal, err)
	}

	return json.Marshal(jsonError{
		Code:       pe.Code,
		Message:    pe.Message,
		Category:   string(pe.Category),
		Details:    pe.Details,
		Suggestion: pe.Suggestion,
		Retryable:  pe.Retryable,
	})
}

// LogAttrs returns key-value pairs suitable for slog.
func LogAttrs(err error) []any {
	if err == nil {
		return nil
	}

	pe, ok := As(err)
	if !ok {
		return []any{"error", err.Error()}
	}

	attrs := []any{
		"error_code", pe.Code,
		"error", pe.Message,
		"category", string(pe.Category),
	}
	if pe.Cause != nil {
		attrs = append(attrs, "cause", pe.Cause.Error())
	}
	for k, v := range pe.Details {
		attrs = append(attrs, "detail_"+k, v)
	}
	return attrs
}
