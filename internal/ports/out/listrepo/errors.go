package listrepo

import "errors"

var (
	// ErrNotFound indicates no row matched the id (and owner, where scoped).
	ErrNotFound = errors.New("shopping list record not found")

	// ErrDuplicateTitle indicates the owner already has a list with the same title.
	ErrDuplicateTitle = errors.New("shopping list title already used")

	// ErrPermissionDenied indicates the store itself refused the operation (e.g. row-level security).
	ErrPermissionDenied = errors.New("shopping list store permission denied")
)
