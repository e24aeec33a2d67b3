package core

import "errors"

var (
	// ErrNotFound is returned when no command matches an identifier.
	ErrNotFound = errors.New("command not found")

	// ErrDuplicateIdentity is returned when a registration collides with an
	// existing name or alias.
	ErrDuplicateIdentity = errors.New("duplicate command identity")
)
