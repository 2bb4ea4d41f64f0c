package tools

import "errors"

// Sentinel kinds for tool errors.
var (
	ErrUsage  = errors.New("usage error")
	ErrRemote = errors.New("remote request failed")
)
