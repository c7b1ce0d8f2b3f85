// Package apperr holds sentinel errors shared across wikifeed packages.
package apperr

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrRepositoryMissing = errors.New("Repository path does not exist")
	ErrNotRepository     = errors.New("Not a git repository")
)
