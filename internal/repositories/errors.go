package repositories

import "errors"

// ErrStaleState is returned by conditional updates whose expected current state no longer matches.
var (
	ErrNotFound   = errors.New("record not found")
	ErrStaleState = errors.New("record state changed concurrently")
	ErrDuplicate  = errors.New("record already exists")
)
