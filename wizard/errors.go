package wizard

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrRatingOutOfRange   = errors.New("rating must be between 1 and 6")
	ErrUnknownRating      = errors.New("unknown rating")
	ErrCameraUnavailable  = errors.New("camera unavailable")
	ErrNotAllowed         = errors.New("action not available on this screen")
	ErrEndOfFlow          = errors.New("no further screen")
)

// StepError reports why the wizard could not leave a screen.
type StepError struct {
	Screen  Screen
	Missing []string
	Reason  string
}

func (e *StepError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Screen, e.Reason)
	}
	return fmt.Sprintf("%s: missing %s", e.Screen, strings.Join(e.Missing, ", "))
}
