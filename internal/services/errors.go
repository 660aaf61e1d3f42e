package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrTransient marks remote failures worth retrying (timeouts, rate limits).
	ErrTransient = errors.New("transient failure")
	// ErrValidation marks data-shape failures that will not improve on retry.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks missing or unusable collaborator configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks a recognized-absence response from a collaborator.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable marks failures that make the whole run pointless
	// (backing store unreachable, lock held elsewhere).
	ErrUnavailable = errors.New("unavailable")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// WrapHTTPStatus tags a non-success HTTP status with the sentinel the
// pipeline should react to: 4xx responses are data-shape failures, while 429
// and everything else is worth retrying.
func WrapHTTPStatus(component, operation string, status int, body []byte) error {
	marker := ErrTransient
	switch {
	case status == http.StatusNotFound:
		marker = ErrNotFound
	case status >= 400 && status < 500 && status != http.StatusTooManyRequests:
		marker = ErrValidation
	}
	detail := fmt.Sprintf("http %d", status)
	if trimmed := strings.TrimSpace(string(body)); trimmed != "" && len(trimmed) < 200 {
		detail += ": " + trimmed
	}
	return Wrap(marker, component, operation, detail, nil)
}

// Class partitions failures by how the pipeline must react to them.
type Class int

const (
	// ClassTransient failures are retried a bounded number of times, then
	// recorded as a per-meeting failure.
	ClassTransient Class = iota
	// ClassDataShape failures are never retried; the meeting is recorded as
	// partially structured.
	ClassDataShape
	// ClassFatal failures abort the entire run.
	ClassFatal
)

// Classify maps an error to the pipeline reaction it requires.
func Classify(err error) Class {
	switch {
	case errors.Is(err, ErrUnavailable):
		return ClassFatal
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound):
		return ClassDataShape
	default:
		return ClassTransient
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
