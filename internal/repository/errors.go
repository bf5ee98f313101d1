package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrCacheUnavailable indicates the cache backend could not be reached.
	// Callers recover by computing directly from the system of record.
	ErrCacheUnavailable = errors.New("repository: cache unavailable")
)
