package variants

import (
	"errors"
	"fmt"
)

// ErrEmptyInput is returned when the source table has a header but no rows.
var ErrEmptyInput = errors.New("variants: input table has no rows")

// ConfigurationError reports a run option that cannot be satisfied by the
// source schema (unknown parameter column, template index out of range, ...).
type ConfigurationError struct {
	// Field is the configuration key at fault (e.g. "param", "template_index").
	Field string
	// Column is the offending column name, when one is involved.
	Column string
	Msg    string
}

func (e *ConfigurationError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("variants: config %s: %s (column %q)", e.Field, e.Msg, e.Column)
	}
	return fmt.Sprintf("variants: config %s: %s", e.Field, e.Msg)
}

// SchemaMismatchError reports a row whose column set differs from the header.
// Row is the 0-based data row index.
type SchemaMismatchError struct {
	Row    int
	Column string
	Msg    string
}

func (e *SchemaMismatchError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("variants: row %d: %s (column %q)", e.Row, e.Msg, e.Column)
	}
	return fmt.Sprintf("variants: row %d: %s", e.Row, e.Msg)
}

// IsConfigurationError reports whether err wraps a *ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
