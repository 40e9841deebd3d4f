package database

import "errors"

var (
	// ErrShortCodeExists is returned when an attempt is made to assign
	// a short code that is already taken by another record.
	ErrShortCodeExists = errors.New("short code exists")
	// ErrURLNotFound is returned when an attempt is made to retrieve
	// a URL using a short code or id that doesn't exist.
	ErrURLNotFound = errors.New("url not found")
)
