package models

import (
	"errors"
	"fmt"
)

/* NotFoundError */

var ErrNotFound = errors.New("not found")

type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

func (*NotFoundError) Unwrap() error {
	return ErrNotFound
}

func NewNotFoundError(resource string) error {
	return &NotFoundError{Resource: resource}
}

/* ValidationError */

var ErrValidation = errors.New("validation failed")

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (*ValidationError) Unwrap() error {
	return ErrValidation
}

func NewValidationError(message string) error {
	return &ValidationError{Message: message}
}

/* ConflictError */

var ErrConflict = errors.New("conflict")

type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s", e.Message)
}

func (*ConflictError) Unwrap() error {
	return ErrConflict
}

func NewConflictError(message string) error {
	return &ConflictError{Message: message}
}

/* ForbiddenError */

var ErrForbidden = errors.New("forbidden")

type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Message)
}

func (*ForbiddenError) Unwrap() error {
	return ErrForbidden
}

func NewForbiddenError(message string) error {
	return &ForbiddenError{Message: message}
}

/* UpstreamUnavailableError */

var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// UpstreamUnavailableError indicates the inference boundary failed or timed
// out. Surfaced distinctly from validation so callers can distinguish "your
// request is wrong" from "try again later".
type UpstreamUnavailableError struct {
	Message       string
	OriginalError error
}

func (e *UpstreamUnavailableError) Error() string {
	return fmt.Sprintf("upstream unavailable: %s (original error: %v)", e.Message, e.OriginalError)
}

func (*UpstreamUnavailableError) Unwrap() error {
	return ErrUpstreamUnavailable
}

func NewUpstreamUnavailableError(message string, originalError error) error {
	return &UpstreamUnavailableError{Message: message, OriginalError: originalError}
}

/* AdvisoryLockError */

var ErrLockAcquisitionFailed = errors.New("failed to acquire advisory lock")

type AdvisoryLockError struct {
	Err error
}

func (e *AdvisoryLockError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to acquire advisory lock: %v", e.Err)
	}
	return ErrLockAcquisitionFailed.Error()
}

func (*AdvisoryLockError) Unwrap() error {
	return ErrLockAcquisitionFailed
}

func NewAdvisoryLockError(err error) error {
	return &AdvisoryLockError{Err: err}
}
