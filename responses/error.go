package responses

import (
	"fmt"
	"net/http"
)

// error codes
const (
	CodeUnknownRoute = iota + 1
	CodeInvalidJSON
	CodeInternal
	CodeRecordNotFound
	CodeDuplicateRecord
	CodeSnapshotNotFound
	CodeInvalidName
	CodeSerialization
	CodeInconsistent
)

// Error describes an error for humans and machines
type Error struct {
	Status  int    `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e Error) Error() string {
	return fmt.Sprintf("status:%d, code:%d, message:%q", e.Status, e.Code, e.Message)
}

// NewError - a brand new internal error
func NewError(code int, message string) *Error {
	return NewStatusError(http.StatusInternalServerError, code, message)
}

// NewStatusError - a brand new error with an explicit http status
func NewStatusError(status, code int, message string) *Error {
	return &Error{
		Status:  status,
		Code:    code,
		Message: message,
	}
}
