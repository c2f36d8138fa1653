// Package ierr defines newsdesk's structured error type and the error
// kinds enumerated in spec.md §7.
package ierr

import "fmt"

// Kind classifies an AppError for callers that need to branch on failure
// category — e.g. a bulk reload recovers per-feed Transport/Parse errors
// but aborts on Db (spec.md §7: "Propagation").
type Kind int

const (
	KindUnknown Kind = iota
	KindTransport
	KindParse
	KindFilterParse
	KindFilterEval
	KindDb
	KindAuth
	KindConfig
	KindLock
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindParse:
		return "parse"
	case KindFilterParse:
		return "filter_parse"
	case KindFilterEval:
		return "filter_eval"
	case KindDb:
		return "db"
	case KindAuth:
		return "auth"
	case KindConfig:
		return "config"
	case KindLock:
		return "lock"
	default:
		return "unknown"
	}
}

// AppError is a structured application error with a failure Kind and an
// optional wrapped cause (internal, not rendered to the user).
type AppError struct {
	Kind    Kind
	Message string
	cause   error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("newsdesk: %s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("newsdesk: %s: %s", e.Kind, e.Message)
}

// Unwrap implements the unwrapper interface for Go 1.13+ error handling.
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause returns a new AppError with the given cause wrapped.
func (e *AppError) WithCause(cause error) *AppError {
	return &AppError{Kind: e.Kind, Message: e.Message, cause: cause}
}

// New creates an AppError with no cause.
func New(kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

// Predefined application errors for conditions named explicitly by the spec.
var (
	ErrFeedNotFound       = &AppError{Kind: KindDb, Message: "feed not found"}
	ErrAlreadySubscribed  = &AppError{Kind: KindConfig, Message: "already subscribed to feed"}
	ErrUnsupportedFormat  = &AppError{Kind: KindParse, Message: "unsupported or unrecognized feed format"}
	ErrFeedBodyTooLarge   = &AppError{Kind: KindTransport, Message: "feed body exceeds configured size limit"}
	ErrAttributeUnavailable = &AppError{Kind: KindFilterEval, Message: "attribute unavailable on record"}
	ErrInvalidRegex       = &AppError{Kind: KindFilterEval, Message: "invalid regular expression literal"}
)

// LockError carries the pid of the process already holding the
// process-wide filesystem lock (spec.md §7: "Lock ... carries pid").
type LockError struct {
	PID int
}

func (e *LockError) Error() string {
	return fmt.Sprintf("newsdesk: lock: another instance (pid %d) holds the lock", e.PID)
}

// DbError wraps a failing query and the backing store's driver error,
// per spec.md §4.B ("Fails with DbError{query, code} on driver failure").
type DbError struct {
	Query string
	Code  string
	cause error
}

func (e *DbError) Error() string {
	return fmt.Sprintf("newsdesk: db: query %q failed (code %s): %v", e.Query, e.Code, e.cause)
}

func (e *DbError) Unwrap() error { return e.cause }

// NewDbError wraps cause into a DbError.
func NewDbError(query string, cause error) *DbError {
	code := ""
	if cause != nil {
		code = cause.Error()
	}
	return &DbError{Query: query, Code: code, cause: cause}
}

// ParseError surfaces a filter-expression parse failure with the byte
// offset it occurred at and which terminal kind was expected, per
// spec.md §4.C ("ParseError{offset, kind}").
type ParseError struct {
	Offset int
	Kind   ParseErrorKind
}

// ParseErrorKind enumerates the terminal expectations the filter parser
// can fail on.
type ParseErrorKind int

const (
	ExpectedOpenBlock ParseErrorKind = iota
	ExpectedCloseBlock
	ExpectedIdent
	ExpectedLiteral
	ExpectedOp
	ExpectedLogOp
	UnterminatedString
	TrailingInput
)

func (k ParseErrorKind) String() string {
	switch k {
	case ExpectedOpenBlock:
		return "expected '('"
	case ExpectedCloseBlock:
		return "expected ')'"
	case ExpectedIdent:
		return "expected identifier"
	case ExpectedLiteral:
		return "expected literal"
	case ExpectedOp:
		return "expected comparison operator"
	case ExpectedLogOp:
		return "expected 'and' or 'or'"
	case UnterminatedString:
		return "unterminated string literal"
	case TrailingInput:
		return "unexpected trailing input"
	default:
		return "unknown parse error"
	}
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("newsdesk: filter_parse: offset %d: %s", e.Offset, e.Kind)
}
