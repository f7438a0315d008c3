package service

import (
	"errors"
	"net/http"

	"github.com/modelfactory/portal/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidTransition  = errors.New("invalid lifecycle transition")
	ErrInvalidFileType    = errors.New("invalid file type")
	ErrFileNotAllowed     = errors.New("file extension not allowed for this file type")
)

// MapServiceError maps a service error to an HTTP status code
func MapServiceError(err error) int {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUserAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidFileType), errors.Is(err, ErrFileNotAllowed):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrFactoryNotFound),
		errors.Is(err, repository.ErrAlgorithmNotFound),
		errors.Is(err, repository.ErrModelNotFound),
		errors.Is(err, repository.ErrFileNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// GetErrorMessage returns the error text, or empty for nil
func GetErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
