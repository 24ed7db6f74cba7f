// Package apperr is the single error taxonomy shared by services and handlers.
package apperr

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

type Kind string

const (
	KindValidation      Kind = "VALIDATION_ERROR"
	KindUnauthenticated Kind = "UNAUTHENTICATED"
	KindUnauthorized    Kind = "UNAUTHORIZED"
	KindNotFound        Kind = "NOT_FOUND"
	KindConflict        Kind = "CONFLICT"
	KindUnavailable     Kind = "UNAVAILABLE"
	KindInternal        Kind = "INTERNAL_ERROR"
)

type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
	// MessageAllowed lets the error's own message reach the client.
	MessageAllowed bool
}

var metadataByKind = map[Kind]Metadata{
	KindValidation: {
		HTTPStatus:     http.StatusBadRequest,
		PublicMessage:  "validation failed",
		DetailsAllowed: true,
		MessageAllowed: true,
	},
	KindUnauthenticated: {
		HTTPStatus:     http.StatusUnauthorized,
		PublicMessage:  "authentication required",
		MessageAllowed: true,
	},
	// Unauthorized never echoes its message so denials look identical.
	KindUnauthorized: {
		HTTPStatus:    http.StatusUnauthorized,
		PublicMessage: "unauthorized",
	},
	KindNotFound: {
		HTTPStatus:     http.StatusNotFound,
		PublicMessage:  "resource not found",
		MessageAllowed: true,
	},
	KindConflict: {
		HTTPStatus:     http.StatusConflict,
		PublicMessage:  "conflict detected",
		MessageAllowed: true,
	},
	KindUnavailable: {
		HTTPStatus:    http.StatusServiceUnavailable,
		Retryable:     true,
		PublicMessage: "service temporarily unavailable, retry later",
	},
	KindInternal: {
		HTTPStatus:    http.StatusInternalServerError,
		PublicMessage: "internal server error",
	},
}

func MetadataFor(k Kind) Metadata {
	if m, ok := metadataByKind[k]; ok {
		return m
	}
	return metadataByKind[KindInternal]
}

type Error struct {
	kind    Kind
	message string
	details any
	cause   error
}

func New(k Kind, message string) *Error {
	return &Error{kind: k, message: message}
}

func Wrap(k Kind, err error, message string) *Error {
	return &Error{kind: k, message: message, cause: err}
}

func Validation(format string, args ...any) *Error {
	return New(KindValidation, fmt.Sprintf(format, args...))
}

func NotFound(message string) *Error { return New(KindNotFound, message) }
func Conflict(message string) *Error { return New(KindConflict, message) }

// Unauthorized is the uniform access-gate denial.
func Unauthorized() *Error { return New(KindUnauthorized, "unauthorized") }

func Unauthenticated() *Error { return New(KindUnauthenticated, "authentication required") }

func (e *Error) Kind() Kind {
	if e == nil {
		return KindInternal
	}
	return e.kind
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(d any) *Error {
	if e == nil {
		return nil
	}
	e.details = d
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As extracts an *Error from the chain.
func As(err error) *Error {
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	return nil
}

// KindOf reports the kind of err; untyped errors are Internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if typed := As(err); typed != nil {
		return typed.Kind()
	}
	return KindInternal
}

// IsRetryable reports whether a caller may retry the failed operation unchanged.
func IsRetryable(err error) bool {
	return err != nil && MetadataFor(KindOf(err)).Retryable
}

// PublicMessage is the text safe to show a client for err.
func PublicMessage(err error) string {
	typed := As(err)
	if typed == nil {
		return MetadataFor(KindInternal).PublicMessage
	}
	meta := MetadataFor(typed.Kind())
	if meta.MessageAllowed && typed.Message() != "" {
		return typed.Message()
	}
	return meta.PublicMessage
}

// FromStore classifies a database error. Typed errors pass through unchanged.
func FromStore(err error, what string) error {
	if err == nil {
		return nil
	}
	if As(err) != nil {
		return err
	}
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return Wrap(KindNotFound, err, what+" not found")
	case isTransient(err):
		return Wrap(KindUnavailable, err, "store unavailable")
	}
	return Wrap(KindInternal, err, what+" store failure")
}

// transientPgCode covers serialization and lock contention, connection
// exceptions (class 08) and operator intervention such as shutdown (57P0x).
func transientPgCode(code string) bool {
	switch code {
	case "40001", "40P01", "55P03":
		return true
	}
	return strings.HasPrefix(code, "08") || strings.HasPrefix(code, "57P0")
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return transientPgCode(pgErr.Code)
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"database is locked", "database is closed", "sqlite_busy", "database table is locked", "connection refused", "too many clients"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
