package archive

import "errors"

var (
	// ErrBlockNotFound indicates no block is stored under the given hash.
	ErrBlockNotFound = errors.New("archive: block not found")

	// ErrBlockExists indicates a store attempted against an occupied hash.
	// The archive never overwrites.
	ErrBlockExists = errors.New("archive: block already exists")

	// ErrNotEnoughData indicates a stored block is shorter than the bytes
	// requested. The entry exists but is truncated or corrupt, which is
	// deliberately distinguishable from ErrBlockNotFound.
	ErrNotEnoughData = errors.New("archive: not enough data")

	// ErrIOFailure indicates an underlying storage failure. It always wraps
	// the native error.
	ErrIOFailure = errors.New("archive: I/O failure")

	// ErrInvalidRoot indicates the archive root directory is missing or
	// inaccessible. The archive never creates its own root.
	ErrInvalidRoot = errors.New("archive: invalid root directory")
)
