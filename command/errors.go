package command

import "errors"

// Command errors.
var (
	ErrNoSuites      = errors.New("command: no suites registered")
	ErrUnknownFormat = errors.New("command: unknown format")
)
