package model

import "errors"

var (
	// ErrNotFound is returned when a record is absent or belongs to another owner.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a uniqueness claim is already held by another record.
	ErrConflict = errors.New("conflict")
	// ErrContention is returned when concurrent writers kept invalidating a
	// conditional write until its retries ran out. No claim is known to be held.
	ErrContention = errors.New("contention")
	// ErrValidation is returned when a payload is rejected before it reaches the store.
	ErrValidation = errors.New("validation failed")
	// ErrStoreUnavailable wraps every failure of the underlying key-value backend.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrKeyNotFound is returned by KV.Get for unset keys.
	ErrKeyNotFound = errors.New("key not found")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
)

// ErrStorageDisabled is returned by attachment operations when no object storage is configured.
var ErrStorageDisabled = errors.New("object storage disabled")
