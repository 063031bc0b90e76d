package service

import "errors"

// Error taxonomy. Handlers translate these to HTTP statuses, the bot
// translates them to chat messages; in both cases pending dialogue
// state is cleared on terminal failure.
var (
	// ErrNotFound — missing file or category (404).
	ErrNotFound = errors.New("not found")
	// ErrValidation — bad input: oversize file, empty name, invalid id (400).
	ErrValidation = errors.New("invalid input")
	// ErrUpstream — chat platform or object store call failed (502).
	ErrUpstream = errors.New("upstream failure")
	// ErrDuplicate — unique constraint hit, e.g. a category name (409).
	ErrDuplicate = errors.New("already exists")
)
