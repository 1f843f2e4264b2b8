package tspec

import "errors"

// Sentinel errors.
var (
	// ErrConfigNotFound is returned when no .tspec.yaml is found.
	ErrConfigNotFound = errors.New("tspec: no .tspec.yaml found")

	// ErrNilBody is returned when a leaf is registered without a body.
	ErrNilBody = errors.New("tspec: nil test body")

	// ErrNilBuilder is returned when a branch is registered without a builder.
	ErrNilBuilder = errors.New("tspec: nil scope builder")

	// ErrNotLeaf is returned when running a branch node.
	ErrNotLeaf = errors.New("tspec: node is not a leaf")

	// ErrNotBranch is returned when expanding a leaf node.
	ErrNotBranch = errors.New("tspec: node is not a branch")

	// ErrSealed is recorded when registering on a context whose body has
	// already returned.
	ErrSealed = errors.New("tspec: context is sealed")
)

// Config validation errors.
var (
	ErrInvalidInvocations       = errors.New("tspec: invocations must be >= 0")
	ErrInvalidThreads           = errors.New("tspec: threads must be >= 1")
	ErrThreadsExceedInvocations = errors.New("tspec: threads exceed invocations")
	ErrInvalidTimeout           = errors.New("tspec: timeout must be >= 0")
)
