// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios.
package repository

import "github.com/pkg/errors"

// ErrNotFound is returned when a lookup matches no row. Handlers should
// translate this into an HTTP 404 (or 401 on the login path).
var ErrNotFound = errors.New("not found")

// ErrMalformedDocument is returned when a stored document payload is not
// a JSON object. It signals corrupt data rather than a caller error, so
// handlers report it as a 500.
var ErrMalformedDocument = errors.New("malformed stored document")
