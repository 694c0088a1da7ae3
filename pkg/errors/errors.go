package errors

import (
	"net/http"

	"github.com/KendrickOdei/fastTix-sub000/pkg/status"
)

// AppError carries the HTTP status code and machine-readable status alongside
// the message, so handlers can map any error straight onto a response
// envelope via Destruct.
type AppError struct {
	HTTPStatusCode int
	Status         string
	Message        string
}

func (e *AppError) Error() string {
	return e.Message
}

func New(httpStatusCode int, status string, message string) error {
	return &AppError{
		HTTPStatusCode: httpStatusCode,
		Status:         status,
		Message:        message,
	}
}

// Destruct returns the AppError fields of err, or an internal server error
// shape when err is not an AppError.
func Destruct(err error) *AppError {
	ae, ok := err.(*AppError)
	if !ok {
		return &AppError{
			HTTPStatusCode: http.StatusInternalServerError,
			Status:         status.INTERNAL_SERVER_ERROR,
			Message:        err.Error(),
		}
	}

	return ae
}
