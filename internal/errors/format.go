package errors

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// FormatForCLI formats an error for terminal output.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	oe, ok := As(err)
	if !ok {
		oe = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Error: %s\n", oe.Message))
	if oe.Cause != nil && oe.Cause.Error() != oe.Message {
		sb.WriteString(fmt.Sprintf("  Cause: %v\n", oe.Cause))
	}
	if oe.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  Hint: %s\n", oe.Suggestion))
	}
	sb.WriteString(fmt.Sprintf("  Code: %s\n", oe.Code))

	return sb.String()
}

// FormatForLog returns slog attributes describing err.
// Plain errors produce a single "error" attribute.
func FormatForLog(err error) []slog.Attr {
	if err == nil {
		return nil
	}

	oe, ok := As(err)
	if !ok {
		return []slog.Attr{slog.String("error", err.Error())}
	}

	attrs := []slog.Attr{
		slog.String("error_code", oe.Code),
		slog.String("error", oe.Message),
		slog.String("category", string(oe.Category)),
		slog.String("severity", string(oe.Severity)),
	}
	if oe.Cause != nil {
		attrs = append(attrs, slog.String("cause", oe.Cause.Error()))
	}

	keys := make([]string, 0, len(oe.Details))
	for k := range oe.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.String(k, oe.Details[k]))
	}

	return attrs
}

// LogAttrs flattens FormatForLog for use with slog's variadic helpers.
func LogAttrs(err error) []any {
	attrs := FormatForLog(err)
	out := make([]any, len(attrs))
	for i, a := range attrs {
		out[i] = a
	}
	return out
}
