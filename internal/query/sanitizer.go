// Package query builds parameterized SQL statements for the account
// administration store. Values always travel through placeholders;
// identifiers (table and column names) cannot be parameterized, so every
// dynamic identifier is validated here before it is interpolated into
// statement text.
package query

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidIdentifier marks a table or column name that failed validation.
var ErrInvalidIdentifier = errors.New("invalid identifier")

// ErrInvalidFilterField marks a filter key rejected by an allow-list.
var ErrInvalidFilterField = errors.New("invalid filter field")

// identifierRegex accepts legacy schema identifiers: leading letter or
// underscore, then letters, digits, underscores, or spaces. Several legacy
// columns contain embedded spaces ("UW Last", "Dollar Threshold").
var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_ ]*$`)

// EnsureSafeIdentifier validates a table or column name before it may be
// interpolated into SQL text. Empty names, names outside the allowed
// pattern, and names containing a closing bracket are rejected.
func EnsureSafeIdentifier(name string) error {
	if name == "" || !identifierRegex.MatchString(name) || strings.Contains(name, "]") {
		return fmt.Errorf("%w: invalid column or table name: %q", ErrInvalidIdentifier, name)
	}
	return nil
}

// QuoteIdentifier validates a name and wraps it in brackets for use in
// statement text. Bracket quoting is what allows the embedded-space
// identifiers in the legacy schema.
func QuoteIdentifier(name string) (string, error) {
	if err := EnsureSafeIdentifier(name); err != nil {
		return "", err
	}
	return "[" + name + "]", nil
}

// Filter is a single equality predicate on a column.
type Filter struct {
	Column string
	Value  any
}

// Filters is an ordered conjunction of equality predicates. Order is
// preserved from the caller so WHERE clauses render deterministically.
type Filters []Filter

// Allowed builds a filter allow-list from column names.
func Allowed(columns ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		set[c] = struct{}{}
	}
	return set
}

// SanitizeFilters validates raw filters against an optional allow-list and
// the identifier pattern. When the allow-list rejects, the error names every
// offending field, not just the first. The input is never mutated; a copy is
// returned.
func SanitizeFilters(raw Filters, allowed map[string]struct{}) (Filters, error) {
	if allowed != nil {
		var offending []string
		for _, f := range raw {
			if _, ok := allowed[f.Column]; !ok {
				offending = append(offending, f.Column)
			}
		}
		if len(offending) > 0 {
			return nil, fmt.Errorf("%w: Invalid filter field(s): %s",
				ErrInvalidFilterField, strings.Join(offending, ", "))
		}
	}
	for _, f := range raw {
		if err := EnsureSafeIdentifier(f.Column); err != nil {
			return nil, err
		}
	}
	out := make(Filters, len(raw))
	copy(out, raw)
	return out, nil
}
