package scanhint

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

type ErrorKind string

const (
	ErrIO         ErrorKind = "io"
	ErrSQL        ErrorKind = "sql"
	ErrCatalog    ErrorKind = "catalog"
	ErrDeparse    ErrorKind = "deparse"
	ErrConfig     ErrorKind = "config"
	ErrPlanDecode ErrorKind = "plan_decode"
)

// Error reports a failure of a capability the analyzer depends on. Broken
// invariants are not reported this way; they surface as assertion failures.
type Error struct {
	Kind    ErrorKind
	Message string
	Field   string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	base := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Field != "" {
		base = fmt.Sprintf("%s (field=%s)", base, e.Field)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", base, e.Cause)
	}
	return base
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func Wrap(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

func New(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func CatalogError(msg string, cause error) *Error {
	return &Error{Kind: ErrCatalog, Message: msg, Cause: cause}
}

func DeparseError(field string, cause error) *Error {
	return &Error{Kind: ErrDeparse, Message: "cannot deparse sort key", Field: field, Cause: cause}
}

func ConfigError(field, msg string) *Error {
	return &Error{Kind: ErrConfig, Message: msg, Field: field}
}

func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
