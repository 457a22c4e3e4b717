package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"ReceiptPoll/internal/apperr"
)

const (
	StatusOK    = "OK"
	StatusError = "Error"
)

// Response is the envelope shared by every JSON answer.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func OK() Response {
	return Response{Status: StatusOK}
}

func Error(msg string) Response {
	return Response{Status: StatusError, Error: msg}
}

func ValidationError(errs validator.ValidationErrors) Response {
	var msgs []string
	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("field %s must be one of [%s]", err.Field(), err.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("field %s is not valid", err.Field()))
		}
	}
	return Error(strings.Join(msgs, ", "))
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, Error(msg))
}

// writeAppError maps err through apperr. Internal errors are not echoed to the client.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	msg := apperr.Kind(err)
	switch {
	case errors.Is(err, apperr.ErrOrderNotFound):
		msg = "order not found"
	case errors.Is(err, apperr.ErrUnknownFlow):
		msg = "unknown flow"
	case errors.Is(err, apperr.ErrPinFormat):
		msg = apperr.ErrPinFormat.Error()
	case errors.Is(err, apperr.ErrPinMismatch):
		msg = apperr.ErrPinMismatch.Error()
	case status >= http.StatusInternalServerError:
		msg = http.StatusText(status)
	}
	writeError(w, r, status, msg)
}

func validationResponse(err error) Response {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return ValidationError(verrs)
	}
	return Error("invalid request")
}
