package app

import "errors"

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrChatNotFound     = errors.New("chat session not found")
	ErrDocumentNotFound = errors.New("document not found")
)
