package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ginjaninja78/excel-to-edi/internal/edi"
)

// ErrInvalidRequest marks requests the engine refuses before resolving a
// profile (missing partner, document type or timestamp).
var ErrInvalidRequest = errors.New("invalid generation request")

// GenerationError wraps every error returned by Generate with the request
// identity and the state the pipeline failed in. errors.As reaches the
// typed error underneath.
type GenerationError struct {
	PartnerID     string
	DocumentType  string
	CorrelationID string
	State         State
	Err           error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate %s/%s: %s: %v", e.PartnerID, e.DocumentType, e.State, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Kind is a stable, transport-agnostic name for an error category.
type Kind string

const (
	KindProfileNotFound       Kind = "profile_not_found"
	KindMissingField          Kind = "missing_field"
	KindDelimiterCollision    Kind = "delimiter_collision"
	KindControlNumberOverflow Kind = "control_number_overflow"
	KindSerialization         Kind = "serialization"
	KindCanceled              Kind = "canceled"
	KindInput                 Kind = "input"
	KindUnknown               Kind = "unknown"
)

// Classify maps err to its kind.
func Classify(err error) Kind {
	var (
		notFound  *edi.ProfileNotFoundError
		missing   *edi.MissingFieldError
		collision *edi.DelimiterCollisionError
		overflow  *edi.ControlNumberOverflowError
		serr      *edi.SerializationError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &notFound):
		return KindProfileNotFound
	case errors.As(err, &missing):
		return KindMissingField
	case errors.As(err, &collision):
		return KindDelimiterCollision
	case errors.As(err, &overflow):
		return KindControlNumberOverflow
	case errors.As(err, &serr):
		return KindSerialization
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.Is(err, ErrInvalidRequest):
		return KindInput
	}
	return KindUnknown
}

// HTTPStatus is the status a surrounding HTTP service should answer with.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindProfileNotFound:
		return http.StatusNotFound
	case KindMissingField, KindDelimiterCollision:
		return http.StatusUnprocessableEntity
	case KindControlNumberOverflow:
		return http.StatusServiceUnavailable
	case KindCanceled:
		// nginx's "client closed request"; net/http has no constant for it.
		return 499
	case KindInput:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
