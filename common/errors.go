package common

import "errors"

// Error taxonomy. Causes are joined with one of these so callers could
// classify failures with errors.Is, i.e. fmt.Errorf("%w: %w", ErrIO, err).
// Missing target entry is not an error, it is reported as StatusNoTargetEntry.
var (
	ErrIO            = errors.New("i/o failure")
	ErrDecode        = errors.New("unable to decode text")
	ErrArchiveFormat = errors.New("bad archive")
	ErrTempCleanup   = errors.New("unable to remove temporary file")
)
