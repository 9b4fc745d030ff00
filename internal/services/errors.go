package services

import (
	"errors"
	"fmt"
)

// NotFoundError marks lookups for ids that do not exist.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string { return e.Msg }

func NotFoundf(format string, args ...interface{}) error {
	return &NotFoundError{Msg: fmt.Sprintf(format, args...)}
}

// BadRequestError marks illegal state transitions and unauthorized actors.
// The message names the blocking condition so clients can decide what to
// offer next.
type BadRequestError struct {
	Msg string
}

func (e *BadRequestError) Error() string { return e.Msg }

func BadRequestf(format string, args ...interface{}) error {
	return &BadRequestError{Msg: fmt.Sprintf(format, args...)}
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsBadRequest(err error) bool {
	var br *BadRequestError
	return errors.As(err, &br)
}
