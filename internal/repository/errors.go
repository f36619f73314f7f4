package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrAlreadyMember is returned when a request is already placed in a pool.
	ErrAlreadyMember = errors.New("request already belongs to a pool")

	// ErrDuplicatePhone is returned when a rider phone number is taken.
	ErrDuplicatePhone = errors.New("phone number already registered")
)
