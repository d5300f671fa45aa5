package serr

import (
	"fmt"
	"runtime/debug"
)

// ServiceError carries an HTTP status class alongside the underlying error.
// The status code is the error taxonomy: 400 invalid request, 401
// unauthenticated, 403 forbidden, 404 not found, 500 internal.
type ServiceError struct {
	Err        error
	Msg        string
	StackTrace string
	StatusCode int
	Env        map[string]string
}

func NewServiceError(err error, statusCode int, msg string, args ...any) *ServiceError {
	return &ServiceError{
		Err:        err,
		Msg:        fmt.Sprintf(msg, args...),
		StatusCode: statusCode,
		StackTrace: string(debug.Stack()),
		Env:        make(map[string]string),
	}
}

func (e *ServiceError) Error() string {
	return e.Msg
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}
