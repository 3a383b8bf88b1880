package constants

import (
	"io/fs"
	"time"
)

const (
	// DefaultDirPerm is the default permission used when creating directories.
	DefaultDirPerm fs.FileMode = 0o755
	// DefaultFilePerm is the default permission used when creating files.
	DefaultFilePerm fs.FileMode = 0o644
)

const (
	// ProbeBodyLimitBytes caps how many bytes of a response body the probe inspects.
	ProbeBodyLimitBytes = 512 * 1024
	// DefaultProbeTimeout bounds the single probe request.
	DefaultProbeTimeout = 10 * time.Second
)

const (
	// DefaultMaxDepth bounds recursive manifest discovery below the scan root.
	DefaultMaxDepth = 8
	// DefaultMaxWorkers is the size of the discovery worker pool.
	DefaultMaxWorkers = 4
	// DefaultUnitRateLimit paces discovery-unit dispatch (units per second).
	DefaultUnitRateLimit = 200
)
