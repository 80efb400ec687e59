package services

import "errors"

// Submission errors
var (
	ErrRequestEmpty   = errors.New("task: request is empty")
	ErrRequestTooLong = errors.New("task: request is too long")
)

// Prompt errors
var (
	ErrPromptUnknownAgent = errors.New("prompt: unknown agent")
	ErrPromptEmpty        = errors.New("prompt: text is empty")
)
