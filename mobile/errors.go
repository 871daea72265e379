package mobile

import (
	"github.com/vulpemventures/keeper/internal/core/domain"
)

// Error is returned by every method of Keeper. Code is stable and meant to
// be matched by the app, Message is for humans only.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func toError(err error) error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	return &Error{
		Code:    domain.ErrorCode(err),
		Message: err.Error(),
	}
}

func invalidArgument(msg string) error {
	return &Error{Code: domain.ErrCodeInvalidArgument, Message: msg}
}
