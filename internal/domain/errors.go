package domain

import "errors"

var (
	// ErrUserNotFound is returned by the auth store when no identity record
	// exists for a user id.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidPayload is returned when a queue message body or an assembled
	// render payload fails structural validation.
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrRenderTimeout is returned when the render service does not complete
	// within the configured wait window.
	ErrRenderTimeout = errors.New("render wait window exceeded")

	// ErrNoArtifact is returned when a render response carries neither a PDF
	// reference nor inline document text.
	ErrNoArtifact = errors.New("render response contains no artifact")
)
