// Package scan implements the detection engine: discovery of dependency
// sources under a validated root, extraction of dependency records, version
// matching, and aggregation into a single scan result.
package scan

import (
	"fmt"
	"time"

	"github.com/hoangtm-lab/r2s-detect/internal/rules"
)

// Source identifies which discovery step produced a dependency record.
type Source string

const (
	SourceManifest      Source = "manifest"
	SourceLockFile      Source = "lock_file"
	SourceInstalledTree Source = "installed_tree"
)

// Status is the overall outcome of a scan.
type Status string

const (
	StatusSafe         Status = "safe"
	StatusVulnerable   Status = "vulnerable"
	StatusInconclusive Status = "inconclusive"
	StatusError        Status = "error"
)

// Mode distinguishes filesystem scans from passive URL probes.
type Mode string

const (
	ModePath Mode = "path"
	ModeURL  Mode = "url"
)

// Location pins a record to the file (and line, when known) it came from.
type Location struct {
	File string `json:"file"`
	Line int    `json:"line,omitempty"`
}

func (l Location) String() string {
	if l.Line > 0 {
		return fmt.Sprintf("%s:%d", l.File, l.Line)
	}
	return l.File
}

// DependencyRecord is one occurrence of a watched package in one source.
// Records are never mutated after creation; duplicates across sources are
// preserved until aggregation.
type DependencyRecord struct {
	Package      string   `json:"package"`
	RawSpec      string   `json:"raw_spec"`
	ResolvedFrom Source   `json:"resolved_from"`
	Location     Location `json:"location"`
}

// Finding is a dependency record that matched a vulnerability rule.
type Finding struct {
	Package         string         `json:"package"`
	Version         string         `json:"version"`
	Severity        rules.Severity `json:"severity"`
	RuleMatched     string         `json:"rule_matched"`
	PatchedVersions []string       `json:"patched_versions,omitempty"`
	Source          Source         `json:"source"`
	Location        Location       `json:"location"`
}

// Diagnostic records a non-fatal per-file or per-probe failure.
type Diagnostic struct {
	File    string `json:"file,omitempty"`
	Probe   string `json:"probe,omitempty"`
	Message string `json:"message"`
}

// Result is the structured outcome of one scan invocation. All fields are
// scan-scoped: nothing here persists beyond the caller unless it opts into
// the cache.
type Result struct {
	RunID       string       `json:"run_id"`
	Target      string       `json:"target"`
	Mode        Mode         `json:"mode"`
	Findings    []Finding    `json:"findings"`
	LikelyReact *bool        `json:"likely_react,omitempty"`
	Status      Status       `json:"status"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
	Sources     []string     `json:"sources,omitempty"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt time.Time    `json:"completed_at"`
}
