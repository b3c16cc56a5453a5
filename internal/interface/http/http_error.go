package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Skobyn/alexaLunchDad-sub000/pkg/errors"
)

// HTTPError captures the metadata required to serialize an error response consistently.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// NewHTTPError is a helper to build an HTTPError instance.
func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

func asHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return &HTTPError{
		Status:  http.StatusInternalServerError,
		Code:    "internal_error",
		Message: "something went wrong",
		Err:     err,
	}
}

// statusFor maps domain error codes onto HTTP statuses.
func statusFor(code string) int {
	switch code {
	case apperrors.CodeInvalidInput:
		return http.StatusBadRequest
	case apperrors.CodeExhaustedSearch:
		return http.StatusUnprocessableEntity
	case apperrors.CodeUpstreamRejected, apperrors.CodeDataContract, apperrors.CodeExhaustedRetries:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func abortWithDomainError(c *gin.Context, err error) {
	code := apperrors.CodeOf(err)
	if code == "" {
		if c.Request.Context().Err() != nil {
			abortWithError(c, NewHTTPError(499, "request_canceled", "request canceled", err))
			return
		}
		abortWithError(c, asHTTPError(err))
		return
	}
	abortWithError(c, NewHTTPError(statusFor(code), code, errMessage(err), err))
}

func abortWithError(c *gin.Context, err *HTTPError) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}
