package panorama

import (
	"fmt"
)

// ValidationError is reported synchronously when a request is rejected
// before any network call.
type ValidationError struct {
	Field  string
	Reason string
	Length int
}

func (e *ValidationError) Error() string {
	if e.Length > 0 {
		return fmt.Sprintf("%s (%d > %d characters)", e.Reason, e.Length, MaxPromptLength)
	}
	return e.Reason
}

// SubmissionError means the service rejected or never received the
// creation request.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return "Failed to generate skybox: " + e.Err.Error()
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// PollTransportError means a status check failed in transit.
type PollTransportError struct {
	Handle string
	Err    error
}

func (e *PollTransportError) Error() string {
	return "Failed to check generation status: " + e.Err.Error()
}

func (e *PollTransportError) Unwrap() error { return e.Err }

// GenerationFailedError carries the failure the service reported for a job.
type GenerationFailedError struct {
	Handle  string
	Message string
}

func (e *GenerationFailedError) Error() string {
	if e.Message == "" {
		return "Generation failed"
	}
	return e.Message
}

// TextureLoadError means the panorama image could not be fetched or decoded.
type TextureLoadError struct {
	URL string
	Err error
}

func (e *TextureLoadError) Error() string {
	return fmt.Sprintf("Failed to load texture %s: %v", e.URL, e.Err)
}

func (e *TextureLoadError) Unwrap() error { return e.Err }
