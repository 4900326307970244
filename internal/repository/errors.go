// Package repository holds the MySQL-backed stores for match postings
// and the contacts made on them.
package repository

import "errors"

var (
	// ErrNotFound means no posting or contact matched the lookup.
	ErrNotFound = errors.New("not found")

	// ErrForbidden means the acting user does not own the posting.
	ErrForbidden = errors.New("forbidden")
)
