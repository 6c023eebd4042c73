package types

import "errors"

// Error taxonomy of the assembly engine.
var (
	// ErrAssetUnavailable: no matching source could be found or downloaded
	// after retries. Recoverable — the caller substitutes the fallback asset.
	ErrAssetUnavailable = errors.New("asset unavailable")

	// ErrInvalidDuration: the caller handed a non-positive audio duration.
	// Rejected before any asset work starts.
	ErrInvalidDuration = errors.New("invalid audio duration")

	// ErrRenderFailure: the compositor could not produce valid output.
	// Fatal, never retried automatically; no partial file is left behind.
	ErrRenderFailure = errors.New("render failure")
)
