package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidInput    = errors.New("invalid input")
	ErrNoJobSelected   = errors.New("application has no job selected")
	ErrLLMResponse     = errors.New("invalid llm response")
	ErrUnsupportedFile = errors.New("unsupported file type")
	ErrUpstream        = errors.New("upstream service failed")
)
