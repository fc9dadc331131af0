package app

import (
	"errors"
	"fmt"
	"net/http"

	"bugomattic/api/internal/reportingconfig"
	"bugomattic/api/internal/session"
	"bugomattic/api/internal/store"
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

func validationError(message string, details any) *DomainError {
	return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", message, details)
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	var configErr *reportingconfig.ValidationError
	if errors.As(err, &configErr) {
		return http.StatusUnprocessableEntity, "INVALID_REPORTING_CONFIG", configErr.Error(), map[string]any{
			"entity": configErr.Entity,
			"path":   configErr.Path,
		}
	}
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, session.ErrNotFound) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
