package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrForbidden          = errors.New("access denied")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrMissingInputImage  = errors.New("image-conditioned job requires an uploaded reference image")
	ErrArtifactNotReady   = errors.New("artifact not ready")
	ErrSweepInProgress    = errors.New("recovery sweep already running")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid executor context")
)
