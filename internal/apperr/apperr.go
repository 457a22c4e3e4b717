package apperr

import (
	"context"
	"errors"
	"net/http"
)

var (
	ErrTransport             = errors.New("upstream transport failure")
	ErrMethodUnmatched       = errors.New("payment method not matched in catalog")
	ErrMalformedInstructions = errors.New("malformed payment instructions")
	ErrOrderNotFound         = errors.New("order not found")
	ErrUnknownFlow           = errors.New("unknown receipt flow")
	ErrPinFormat             = errors.New("pin must be 6 digits")
	ErrPinMismatch           = errors.New("pin confirmation does not match")
)

func Kind(err error) string {
	switch {
	case err == nil:
		return ""

	case errors.Is(err, ErrOrderNotFound):
		return "order_not_found"

	case errors.Is(err, ErrTransport):
		return "transport"

	case errors.Is(err, ErrMethodUnmatched):
		return "method_unmatched"

	case errors.Is(err, ErrMalformedInstructions):
		return "malformed_instructions"

	case errors.Is(err, ErrUnknownFlow):
		return "unknown_flow"

	case errors.Is(err, ErrPinFormat):
		return "pin_format"

	case errors.Is(err, ErrPinMismatch):
		return "pin_mismatch"

	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"

	case errors.Is(err, context.Canceled):
		return "canceled"

	default:
		return "internal"
	}
}

func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, ErrOrderNotFound):
		return http.StatusNotFound

	case errors.Is(err, ErrUnknownFlow),
		errors.Is(err, ErrPinFormat),
		errors.Is(err, ErrPinMismatch):
		return http.StatusBadRequest

	case errors.Is(err, ErrTransport):
		return http.StatusBadGateway

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	case errors.Is(err, context.Canceled):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}
