package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicate    = errors.New("duplicate entry")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrTooLarge     = errors.New("payload too large")
)

// StatusMapper lets a domain package translate its own errors. It returns
// status 0 when it does not recognise err.
type StatusMapper func(err error) (status int, title string)

// RespondError maps domain errors to HTTP responses using RFC7807. Mappers are
// consulted first, then the package sentinels.
func RespondError(w http.ResponseWriter, err error, mappers ...StatusMapper) {
	for _, m := range mappers {
		if status, title := m(err); status != 0 {
			detail := ProblemDetail{Title: title, Status: status, Detail: err.Error()}
			var kinded interface{ ProblemKind() string }
			if errors.As(err, &kinded) {
				detail.Kind = kinded.ProblemKind()
			}
			writeProblem(w, detail)
			return
		}
	}
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, ErrTooLarge):
		Problem(w, http.StatusRequestEntityTooLarge, "Payload Too Large", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
