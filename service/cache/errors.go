package cache

import "github.com/pkg/errors"

// ErrUnregistered is returned when a key has no fetch function bound.
var ErrUnregistered = errors.New("cache: key not registered")
