package surf

import "errors"

// Sentinel errors for engine operations.
var (
	ErrNotLoaded      = errors.New("surf: no document loaded")
	ErrTargetNotFound = errors.New("surf: target not found")
	ErrNotPatch       = errors.New("surf: payload is not a patch")
	ErrMalformedPatch = errors.New("surf: malformed patch payload")
	ErrNoStateKey     = errors.New("surf: no state key configured")
)

// IsTargetNotFound checks if err reports a selector that matched nothing.
func IsTargetNotFound(err error) bool {
	return errors.Is(err, ErrTargetNotFound)
}

// IsPatchError checks if err is a patch parse error of either kind.
func IsPatchError(err error) bool {
	return errors.Is(err, ErrNotPatch) || errors.Is(err, ErrMalformedPatch)
}
