package domain

import "errors"

// ErrNotFound indicates the referenced entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidInput indicates a required field is missing or malformed. No
// mutation is performed when it is returned.
var ErrInvalidInput = errors.New("invalid input")
