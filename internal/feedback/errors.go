package feedback

import "errors"

var (
	// ErrOverlayNotFound indicates the user has no stored overlay yet.
	ErrOverlayNotFound = errors.New("feedback: overlay not found")

	// ErrInvalidFeedback indicates a feedback record failed validation.
	ErrInvalidFeedback = errors.New("feedback: invalid feedback record")
)
