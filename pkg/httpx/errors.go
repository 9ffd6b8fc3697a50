package httpx

import "errors"

// ErrInvalidBody is returned when a JSON request body cannot be decoded.
var ErrInvalidBody = errors.New("invalid request body")
