package service

import (
	"errors"
	"strings"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrPhotoTooDark       = errors.New("photo is too dark")
	ErrNotConfigured      = errors.New("service not configured")
)

// ValidationError reports request fields that are missing or malformed.
type ValidationError struct {
	Missing []string
	Invalid []string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "Missing required field(s): "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "Invalid field(s): "+strings.Join(e.Invalid, ", "))
	}
	return strings.Join(parts, "; ")
}

// ErrInvalidFileType is returned for report filenames without a .pdf extension.
var ErrInvalidFileType = errors.New("invalid file type")
