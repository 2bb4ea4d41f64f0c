package model

import "errors"

// Sentinel error kinds shared by the domain packages. Callers match them with
// errors.Is; producers wrap them with operation context.
var (
	ErrInvalidArgument          = errors.New("invalid argument")
	ErrDistributionInconsistent = errors.New("distribution inconsistent with outcome space")
	ErrInternalInconsistency    = errors.New("internal inconsistency")
	ErrUnknownPreset            = errors.New("unknown scoring preset")
)
