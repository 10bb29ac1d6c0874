package model

import "errors"

// Shared store-level sentinels. Repositories (PostgreSQL and in-memory alike)
// return these so services can branch without knowing the backing store.
var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)
