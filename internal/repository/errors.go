// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios: a missing
// article becomes a 404, a duplicate slug a 409, a repeated vote from the
// same fingerprint a 409 with its own message.
package repository

import "errors"

// ErrNotFound is returned when the requested row does not exist.  Handlers
// should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrSlugExists is returned when creating or renaming an article would
// collide with an existing slug. Handlers should translate this into an
// HTTP 409 response.
var ErrSlugExists = errors.New("slug already exists")

// ErrDuplicateVote is returned when a voter fingerprint has already
// endorsed the article. Handlers should translate this into an HTTP 409
// response.
var ErrDuplicateVote = errors.New("already voted")
