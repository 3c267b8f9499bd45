package domain

import "errors"

// ErrNotFound is returned by repository lookups when no row matches.
var ErrNotFound = errors.New("not found")
