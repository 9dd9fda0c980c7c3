package auth

import "errors"

// Missing, malformed and unsigned keys all map to UNAUTHENTICATED; the
// message never says which secret a key was checked against.
var (
	ErrMissingKey       = errors.New("API key required in x-api-key metadata")
	ErrInvalidKeyFormat = errors.New("invalid API key format")
	ErrUnknownKey       = errors.New("unknown secret ID")
	ErrInvalidKey       = errors.New("invalid API key")
)
