package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrStore      = errors.New("store unavailable")
	ErrTimeout    = errors.New("timed out")
)

// Error - типизированная ошибка сервиса
// Kind - одна из ErrValidation/ErrNotFound/ErrConflict/ErrStore/ErrTimeout, errors.Is сравнивает по ней
type Error struct {
	Kind   error
	Entity string
	ID     int64
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Entity != "" {
		msg += ": " + e.Entity
		if e.ID != 0 {
			msg += " " + strconv.FormatInt(e.ID, 10)
		}
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable - только сбои хранилища имеет смысл повторять
func (e *Error) Retryable() bool {
	return e.Kind == ErrStore
}

func validationError(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Reason: fmt.Sprintf(format, args...)}
}

func notFoundError(entity string, id int64) error {
	return &Error{Kind: ErrNotFound, Entity: entity, ID: id}
}

func conflictError(entity string, id int64, reason string, err error) error {
	return &Error{Kind: ErrConflict, Entity: entity, ID: id, Reason: reason, Err: err}
}

// storeError оборачивает сбой репозитория; истекший дедлайн превращается в ErrTimeout
func storeError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: ErrTimeout, Reason: op, Err: err}
	}
	return &Error{Kind: ErrStore, Reason: op, Err: err}
}
