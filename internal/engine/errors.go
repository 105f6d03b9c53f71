package engine

import "errors"

var (
	// ErrInvalidRequest indicates a malformed suggestion request.
	ErrInvalidRequest = errors.New("engine: invalid request")

	// ErrRequestNotFound indicates no request exists for the id.
	ErrRequestNotFound = errors.New("engine: request not found")

	// ErrRequestCancelled indicates the request was cancelled before the
	// pipeline finished.
	ErrRequestCancelled = errors.New("engine: request cancelled")

	// ErrRecommendationNotFound indicates no issued card matches the id.
	ErrRecommendationNotFound = errors.New("engine: recommendation not found")
)
