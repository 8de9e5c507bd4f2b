// errors/auth_errors.go
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned by the verifying calls and by proxy
	// interception when the permission check fails. It deliberately
	// carries no detail about which permission or subject failed.
	ErrUnauthorized = errors.New("unauthorized")

	ErrInvalidSubject  = errors.New("invalid subject")
	ErrInvalidObject   = errors.New("invalid object")
	ErrInvalidACLEntry = errors.New("invalid acl entry")

	ErrDatabaseOperation = errors.New("database operation failed")
	ErrInternalServer    = errors.New("internal server error")
	ErrServiceNotFound   = errors.New("service not found in discovery")
	ErrInvalidPagination = errors.New("invalid pagination parameters")
)

// UnexpectedResponseError is returned by the client when the service
// answers with a status code outside the documented contract for an
// operation. It keeps the code and the server-provided message so the
// caller can tell a policy decision apart from a broken exchange.
type UnexpectedResponseError struct {
	Code    int
	Message string
}

func (e *UnexpectedResponseError) Error() string {
	return fmt.Sprintf("unexpected response: %d: %s", e.Code, e.Message)
}
