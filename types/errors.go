package types

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a user, file, session or challenge doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrInternal (for unahandled exceptions)
	ErrInternal = errors.New("internal error")

	// ErrConflict is returned when the resource conflicts (e.g. update of old revision)
	ErrConflict = errors.New("conflict")

	// ErrBadRequest is returned when the backing store rejects a request
	ErrBadRequest = errors.New("bad request")

	// ErrNotAuthorized is returned when no valid user session exists
	ErrNotAuthorized = errors.New("not authorized")

	// ErrUserExists is returned when the username is already taken
	ErrUserExists = errors.New("user already exists")

	// ErrInvalidInput is returned for malformed passphrases, salts, usernames or keys
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidCredential is the only error a caller sees for a wrong passphrase hash
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrUnwrapFailed is returned when a wrapped vault key fails its integrity check.
	// Wrong wrap key and altered ciphertext are deliberately indistinguishable.
	ErrUnwrapFailed = fmt.Errorf("unwrap failed: %w", ErrInvalidCredential)

	// ErrSessionExpiredOrConsumed tells the client to restart the registration ceremony
	ErrSessionExpiredOrConsumed = errors.New("session expired or consumed")

	// ErrChallengeExpired is returned when the challenge outlived its time-to-live
	ErrChallengeExpired = fmt.Errorf("challenge expired: %w", ErrSessionExpiredOrConsumed)

	// ErrChallengeConsumed is returned for every consume after the first successful one
	ErrChallengeConsumed = fmt.Errorf("challenge already consumed: %w", ErrSessionExpiredOrConsumed)
)
