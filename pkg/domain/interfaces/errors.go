package interfaces

import "errors"

// ErrNotFound is wrapped by every KVStore and Repository read of an absent key
var ErrNotFound = errors.New("record not found")
