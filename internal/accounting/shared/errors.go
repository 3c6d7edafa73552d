package shared

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnbalanced indicates debit != credit.
	ErrUnbalanced = errors.New("accounting: journal lines must balance")
	// ErrUnknownAccount indicates a line references an account outside the tenant's chart.
	ErrUnknownAccount = errors.New("accounting: unknown account")
	// ErrNoLines indicates a posting without lines.
	ErrNoLines = errors.New("accounting: journal requires lines")
	// ErrInvalidLine indicates a malformed journal line.
	ErrInvalidLine = errors.New("accounting: invalid journal line")
	// ErrJournalNotFound indicates missing entry.
	ErrJournalNotFound = errors.New("accounting: journal entry not found")
	// ErrAccountNotFound indicates a code or id lookup missed.
	ErrAccountNotFound = errors.New("accounting: account not found")
	// ErrDuplicateAccount indicates the tenant already uses the account code.
	ErrDuplicateAccount = errors.New("accounting: account code already exists")
	// ErrSystemAccount indicates an attempt to remove a bootstrapped account.
	ErrSystemAccount = errors.New("accounting: system accounts cannot be deleted")
	// ErrAccountInUse indicates the account has postings.
	ErrAccountInUse = errors.New("accounting: account has postings")
	// ErrReferenceAlreadyPosted indicates the business event already has an entry.
	ErrReferenceAlreadyPosted = errors.New("accounting: reference already posted")
	// ErrAlreadyReversed indicates the entry already has a reversal.
	ErrAlreadyReversed = errors.New("accounting: journal entry already reversed")
)

// ValidationKind classifies a rejected posting.
type ValidationKind string

const (
	KindUnbalanced     ValidationKind = "UNBALANCED"
	KindUnknownAccount ValidationKind = "UNKNOWN_ACCOUNT"
	KindNoLines        ValidationKind = "NO_LINES"
	KindInvalidLine    ValidationKind = "INVALID_LINE"
)

// ValidationError reports a posting rejected before any write happened.
type ValidationError struct {
	Kind   ValidationKind
	Detail string
}

// NewValidationError builds a ValidationError with a formatted detail.
func NewValidationError(kind ValidationKind, format string, args ...any) *ValidationError {
	return &ValidationError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return e.Unwrap().Error()
	}
	return fmt.Sprintf("%s: %s", e.Unwrap().Error(), e.Detail)
}

// Unwrap exposes the sentinel matching the kind so errors.Is works on it.
func (e *ValidationError) Unwrap() error {
	switch e.Kind {
	case KindUnbalanced:
		return ErrUnbalanced
	case KindUnknownAccount:
		return ErrUnknownAccount
	case KindNoLines:
		return ErrNoLines
	default:
		return ErrInvalidLine
	}
}

// IsValidation reports whether err is a posting validation failure.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// ProblemKind exposes the kind to HTTP problem responses.
func (e *ValidationError) ProblemKind() string {
	return string(e.Kind)
}

// HTTPStatus maps accounting errors to problem responses.
func HTTPStatus(err error) (int, string) {
	switch {
	case IsValidation(err):
		return http.StatusUnprocessableEntity, "Posting Rejected"
	case errors.Is(err, ErrJournalNotFound), errors.Is(err, ErrAccountNotFound):
		return http.StatusNotFound, "Not Found"
	case errors.Is(err, ErrDuplicateAccount), errors.Is(err, ErrReferenceAlreadyPosted), errors.Is(err, ErrAlreadyReversed):
		return http.StatusConflict, "Conflict"
	case errors.Is(err, ErrSystemAccount), errors.Is(err, ErrAccountInUse):
		return http.StatusConflict, "Account Locked"
	}
	return 0, ""
}
