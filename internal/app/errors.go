package app

import (
	"errors"
	"fmt"
	"net/http"

	"threadline/internal/comments"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func validationError(message string) *DomainError {
	return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", message, nil)
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, comments.ErrEmptyText) {
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", "text is required", nil
	}
	if errors.Is(err, comments.ErrMissingParent) {
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", "parentId must not be blank", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
