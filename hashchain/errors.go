package hashchain

import "errors"

// ErrInvalidRounds is returned when a chain is requested with fewer than one
// round. It indicates a configuration defect, not a runtime condition.
var ErrInvalidRounds = errors.New("hashchain: invalid rounds")

// IsInvalidRounds reports whether err is or wraps ErrInvalidRounds.
func IsInvalidRounds(err error) bool { return errors.Is(err, ErrInvalidRounds) }
