package core

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Sentinel errors for errors.Is checks; ToServiceError maps each onto the
// §7 taxonomy's goerrors.Category/TextCode/HTTP-status triple.
var (
	ErrInvalidScope           = errors.New("core: invalid scope")
	ErrInvalidSpecification   = errors.New("core: invalid specification")
	ErrUnauthorised           = errors.New("core: unauthorised")
	ErrUnsupportedOp          = errors.New("core: unsupported operation")
	ErrConflict               = errors.New("core: conflict")
	ErrNotFound               = errors.New("core: not found")
	ErrInvalidArgument        = errors.New("core: invalid argument")
	ErrCancelled              = errors.New("core: cancelled")
	ErrIO                     = errors.New("core: io")
	ErrOptionalDepMissing     = errors.New("core: optional dependency missing")
	ErrUserStoreUnreachable   = errors.New("core: user store is not reachable from this context")
	ErrInvalidCredentialState = errors.New("core: invalid credential status transition")
)

const (
	TextCodeUnauthorised       = "CREDENTIALS_UNAUTHORISED"
	TextCodeUnsupportedOp      = "CREDENTIALS_UNSUPPORTED_OP"
	TextCodeConflict           = "CREDENTIALS_CONFLICT"
	TextCodeNotFound           = "CREDENTIALS_NOT_FOUND"
	TextCodeInvalidArgument    = "CREDENTIALS_INVALID_ARGUMENT"
	TextCodeCancelled          = "CREDENTIALS_CANCELLED"
	TextCodeIO                 = "CREDENTIALS_IO"
	TextCodeOptionalDepMissing = "CREDENTIALS_OPTIONAL_DEPENDENCY_MISSING"
	TextCodeInternal           = "CREDENTIALS_INTERNAL_ERROR"
)

// ToServiceError maps a core error (sentinel or wrapped) onto a rich
// goerrors.Error envelope.
func ToServiceError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureEnvelope(richErr)
	}

	switch {
	case errors.Is(err, ErrUnauthorised):
		return newServiceError(err.Error(), goerrors.CategoryAuthz, TextCodeUnauthorised)
	case errors.Is(err, ErrUnsupportedOp):
		return newServiceError(err.Error(), goerrors.CategoryOperation, TextCodeUnsupportedOp)
	case errors.Is(err, ErrConflict):
		return newServiceError(err.Error(), goerrors.CategoryConflict, TextCodeConflict)
	case errors.Is(err, ErrNotFound):
		return newServiceError(err.Error(), goerrors.CategoryNotFound, TextCodeNotFound)
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrInvalidScope),
		errors.Is(err, ErrInvalidSpecification), errors.Is(err, ErrInvalidCredentialState),
		errors.Is(err, ErrUserStoreUnreachable):
		return newServiceError(err.Error(), goerrors.CategoryBadInput, TextCodeInvalidArgument)
	case errors.Is(err, ErrCancelled):
		return newServiceError(err.Error(), goerrors.CategoryOperation, TextCodeCancelled)
	case errors.Is(err, ErrIO):
		return newServiceError(err.Error(), goerrors.CategoryExternal, TextCodeIO)
	case errors.Is(err, ErrOptionalDepMissing):
		return newServiceError(err.Error(), goerrors.CategoryOperation, TextCodeOptionalDepMissing)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newServiceError(err.Error(), goerrors.CategoryBadInput, TextCodeInvalidArgument)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureEnvelope(mapped)
}

func newServiceError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureEnvelope(goerrors.New(message, category).WithTextCode(textCode))
}

func ensureEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = httpStatusFor(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return TextCodeInvalidArgument
	case goerrors.CategoryNotFound:
		return TextCodeNotFound
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return TextCodeUnauthorised
	case goerrors.CategoryConflict:
		return TextCodeConflict
	case goerrors.CategoryExternal:
		return TextCodeIO
	default:
		return TextCodeInternal
	}
}

func httpStatusFor(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
