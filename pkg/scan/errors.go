package scan

import "errors"

// Common errors returned by the scan package.
var (
	// ErrRootNotFound is returned when the scan root does not exist.
	ErrRootNotFound = errors.New("scan root not found")

	// ErrNotDirectory is returned when the scan root is not a directory.
	ErrNotDirectory = errors.New("scan root is not a directory")
)
