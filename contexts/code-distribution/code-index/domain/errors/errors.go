package errors

import "errors"

var (
	ErrArtifactNotFound     = errors.New("code artifact not found")
	ErrFingerprintConflict  = errors.New("fingerprint already registered to a different address")
	ErrInvalidArtifactInput = errors.New("invalid code artifact input")
)
