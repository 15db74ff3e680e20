/*
errors.go - Error types for the prize engine

PURPOSE:
  Only structural failures leave the engine as errors: an unreadable
  configuration store or table store, or an invalid edit submitted by an
  administrator. Bad cells, missing rows and incomplete schemes are absorbed
  during evaluation and never show up here.

ERROR CATEGORIES:
  1. Configuration errors - Invalid tiers, conditions, unknown kinds
  2. Lookup errors - Missing schemes or tables in admin operations
  3. Access errors - Admin password check

SEE ALSO:
  - factory/scheme.go: Wraps these while decoding JSON
  - api/handlers.go: Maps them to HTTP status codes
*/
package prize

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDuplicateThreshold is returned when two tiers share a threshold.
	ErrDuplicateThreshold = errors.New("duplicate tier threshold")

	// ErrInvalidTier is returned for tier text that cannot be parsed.
	ErrInvalidTier = errors.New("invalid tier")

	// ErrInvalidCondition is returned for condition text outside the closed grammar.
	ErrInvalidCondition = errors.New("invalid condition")

	// ErrUnknownKind is returned when a scheme's type label maps to no kind.
	ErrUnknownKind = errors.New("unknown scheme kind")

	// ErrInvalidScheme is returned when a scheme edit is structurally unusable.
	ErrInvalidScheme = errors.New("invalid scheme")

	// ErrInvalidFolder is returned for a near-miss folder name that is not recognized.
	ErrInvalidFolder = errors.New("invalid folder")

	// ErrSchemeNotFound is returned when an edit references a missing scheme.
	ErrSchemeNotFound = errors.New("scheme not found")

	// ErrTableNotFound is returned when an admin operation references a missing table.
	ErrTableNotFound = errors.New("table not found")

	// ErrUnauthorized is returned when the admin password does not match.
	ErrUnauthorized = errors.New("unauthorized")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// SchemeError ties a configuration error to the scheme and field it came from.
type SchemeError struct {
	SchemeID string
	Field    string
	Err      error
}

func (e *SchemeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("scheme %s: %v", e.SchemeID, e.Err)
	}
	return fmt.Sprintf("scheme %s: %s: %v", e.SchemeID, e.Field, e.Err)
}

func (e *SchemeError) Unwrap() error {
	return e.Err
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid admin input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrDuplicateThreshold) ||
		errors.Is(err, ErrInvalidTier) ||
		errors.Is(err, ErrInvalidCondition) ||
		errors.Is(err, ErrUnknownKind) ||
		errors.Is(err, ErrInvalidScheme) ||
		errors.Is(err, ErrInvalidFolder)
}

// IsNotFound returns true if the error indicates a missing scheme or table.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSchemeNotFound) ||
		errors.Is(err, ErrTableNotFound)
}
