package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrFilesystem    = errors.New("filesystem error")
	ErrNotFound      = errors.New("not found")
	ErrConfiguration = errors.New("configuration error")
)

// Severity classifies a report entry.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Wrap builds an error message that includes step context while tagging it with
// the provided marker for later severity classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, step, operation, message string, err error) error {
	detail := buildDetail(step, operation, message)
	if marker == nil {
		marker = ErrFilesystem
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// SeverityOf maps an archive failure to the report severity it should carry.
// Validation and lookup failures are warnings: the unit was skipped on purpose.
// Everything else left a partial artifact behind and is an error.
func SeverityOf(err error) Severity {
	switch {
	case err == nil:
		return SeverityInfo
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound):
		return SeverityWarning
	default:
		return SeverityError
	}
}

func buildDetail(step, operation, message string) string {
	parts := make([]string, 0, 3)
	if step = strings.TrimSpace(step); step != "" {
		parts = append(parts, step)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "archive failure"
	}
	return strings.Join(parts, ": ")
}
