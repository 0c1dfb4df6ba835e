package repo

import "errors"

var (
	// ErrNotFound indicates the entity to delete or modify does not exist.
	// Lookups report absence through their bool result instead.
	ErrNotFound = errors.New("entity not found")

	// ErrAlreadyExists indicates an entity with the same ID is already stored.
	ErrAlreadyExists = errors.New("entity already exists")
)
