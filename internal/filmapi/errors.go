package filmapi

import "errors"

// Sentinel errors for the catalog service's failure modes. Callers match
// with errors.Is; wrapped messages carry the server's detail text.
var (
	ErrUnavailable  = errors.New("catalog service unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("film not found")
	ErrValidation   = errors.New("validation failed")
	ErrAuthExchange = errors.New("identity exchange rejected")
	ErrBadStatus    = errors.New("unexpected response")
)
