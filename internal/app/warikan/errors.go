package warikan

import "net/http"

// Error is an application-layer error that can be mapped to an HTTP response.
// Two errors match under errors.Is when their codes are equal, so a specific
// not-found error matches ErrNotFound.
type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e != nil && t != nil && e.Code == t.Code
}

const (
	CodeUnauthorized = "UNAUTHORIZED"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
)

var (
	ErrUnauthorized = &Error{Status: http.StatusUnauthorized, Code: CodeUnauthorized, Message: "unauthorized"}
	ErrNotFound     = &Error{Status: http.StatusNotFound, Code: CodeNotFound, Message: "not found"}
	ErrConflict     = &Error{Status: http.StatusConflict, Code: CodeConflict, Message: "already exists"}
)

func notFound(kind, id string) *Error {
	return &Error{
		Status:  http.StatusNotFound,
		Code:    CodeNotFound,
		Message: kind + " not found",
		Details: map[string]any{"id": id},
	}
}

func conflict(kind, id string) *Error {
	return &Error{
		Status:  http.StatusConflict,
		Code:    CodeConflict,
		Message: kind + " already exists",
		Details: map[string]any{"id": id},
	}
}
