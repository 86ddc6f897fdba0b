// Package common defines shared sentinel errors used across gophshare
// layers. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Key & identity errors.
	ErrInvalidKeyFormat = errors.New("invalid key format")
	ErrNoIdentity       = errors.New("no identity loaded")

	// Cipher engine errors.
	ErrCryptoFailure         = errors.New("crypto failure")
	ErrAuthenticationFailure = errors.New("authentication failure")
	ErrUnwrapFailure         = errors.New("unwrap failure")

	// Resolver errors. Wrong password, wrong key and corrupted data all
	// surface as ErrAccessDenied.
	ErrAccessDenied     = errors.New("access denied")
	ErrPasswordRequired = fmt.Errorf("password required: %w", ErrAccessDenied)

	// Storage errors.
	ErrNotFound       = errors.New("not found")
	ErrRecordNotFound = errors.New("record not found")

	// Validation errors.
	ErrorIncorrectMetadata = errors.New("incorrect metadata")
)
