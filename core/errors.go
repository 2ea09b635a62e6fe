package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ServiceErrorBadInput        = "SES_EVENTS_BAD_INPUT"
	ServiceErrorUnauthorized    = "SES_EVENTS_UNAUTHORIZED"
	ServiceErrorNotFound        = "SES_EVENTS_NOT_FOUND"
	ServiceErrorConflict        = "SES_EVENTS_CONFLICT"
	ServiceErrorRateLimited     = "SES_EVENTS_RATE_LIMITED"
	ServiceErrorOperationFailed = "SES_EVENTS_OPERATION_FAILED"
	ServiceErrorUnprocessable   = "SES_EVENTS_UNPROCESSABLE"
	ServiceErrorInternal        = "SES_EVENTS_INTERNAL_ERROR"
)

func NewError(
	message string,
	category goerrors.Category,
	code int,
	textCode string,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func WrapError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	textCode string,
	metadata map[string]any,
) error {
	if source == nil {
		return NewError(message, category, code, textCode, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func BadInputError(message string, metadata map[string]any) error {
	return NewError(
		message,
		goerrors.CategoryBadInput,
		http.StatusBadRequest,
		ServiceErrorBadInput,
		metadata,
	)
}

func InternalError(message string, metadata map[string]any) error {
	return NewError(
		message,
		goerrors.CategoryInternal,
		http.StatusInternalServerError,
		ServiceErrorInternal,
		metadata,
	)
}

// WrapOperationError wraps a dependency failure (network, provider, storage)
// as a retryable operation error.
func WrapOperationError(source error, message string, metadata map[string]any) error {
	return WrapError(
		source,
		goerrors.CategoryOperation,
		message,
		http.StatusBadGateway,
		ServiceErrorOperationFailed,
		metadata,
	)
}

// MapServiceError normalizes any error into the go-errors envelope with an
// HTTP code and text code so the webhook boundary can map it blindly.
func MapServiceError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureServiceErrorEnvelope(richErr)
	}
	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureServiceErrorEnvelope(mapped)
}

func ensureServiceErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = serviceHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultServiceTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultServiceTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ServiceErrorBadInput
	case goerrors.CategoryNotFound:
		return ServiceErrorNotFound
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return ServiceErrorUnauthorized
	case goerrors.CategoryConflict:
		return ServiceErrorConflict
	case goerrors.CategoryRateLimit:
		return ServiceErrorRateLimited
	case goerrors.CategoryOperation:
		return ServiceErrorOperationFailed
	default:
		return ServiceErrorInternal
	}
}

func serviceHTTPStatus(category goerrors.Category) int {
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
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
