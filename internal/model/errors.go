package model

import "errors"

var (
	// ErrNotFound is returned by stores when the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned by stores on unique constraint violations.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNoRecipient is returned when a message is built without a recipient.
	ErrNoRecipient = errors.New("recipient_id is required")
)
