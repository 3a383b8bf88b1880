package errors

import "errors"

// Validation errors. Any of these means the scan never started; the CLI maps
// them to exit code 2.
var (
	ErrPathNotFound          = errors.New("path does not exist")
	ErrPathTraversal         = errors.New("path escapes allowed root")
	ErrInvalidScheme         = errors.New("URL scheme must be http or https")
	ErrLocalOrPrivateAddress = errors.New("URL resolves to a local or private address")
)

// Ruleset errors.
var (
	ErrInvalidRuleset = errors.New("invalid ruleset")
	ErrEmptyRuleset   = errors.New("ruleset contains no rules")
)

// Cache errors.
var (
	ErrCacheMiss   = errors.New("cache entry not found")
	ErrCacheLocked = errors.New("cache entry locked by another writer")
)
