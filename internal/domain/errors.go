package domain

import "errors"

var (
	// ErrInvalidAddress rejects malformed or empty contract addresses
	// before any I/O is attempted.
	ErrInvalidAddress = errors.New("invalid contract address")

	// ErrDuplicateFavorite is returned when a favorite for the same
	// (address, chainID) pair already exists.
	ErrDuplicateFavorite = errors.New("favorite already exists")

	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
)
