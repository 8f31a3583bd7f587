package httpx

import "errors"

// Request decoding errors.
var (
	ErrEmptyBody     = errors.New("request body required")
	ErrMalformedBody = errors.New("malformed request body")
)
