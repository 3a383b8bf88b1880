// Package rules holds the vulnerability ruleset for CVE-2025-55182
// ("React2Shell") and the version matching applied to every dependency
// record a scan produces.
package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	errs "github.com/hoangtm-lab/r2s-detect/internal/shared/errors"
)

// Severity classifies how definite a finding is.
type Severity string

const (
	// SeverityConfirmed marks a version inside a known-bad range relative to
	// a published patch.
	SeverityConfirmed Severity = "confirmed"
	// SeverityAdvisory marks a heuristic match that needs manual review.
	SeverityAdvisory Severity = "advisory"
)

// Rule describes one watched package.
//
// A confirmed rule is satisfied when the version is strictly below the
// patched release of its major.minor line (prereleases sort below their
// release, per semver). An advisory rule flags an entire major line. When
// VulnerableRanges is set it takes precedence over both behaviors.
type Rule struct {
	Name             string   `yaml:"name" json:"name"`
	Severity         Severity `yaml:"severity" json:"severity"`
	PatchedVersions  []string `yaml:"patched_versions,omitempty" json:"patched_versions,omitempty"`
	VulnerableRanges []string `yaml:"vulnerable_ranges,omitempty" json:"vulnerable_ranges,omitempty"`
	AdvisoryMajor    uint64   `yaml:"advisory_major,omitempty" json:"advisory_major,omitempty"`
}

// Ruleset is the immutable rule collection for one scan invocation.
type Ruleset []Rule

// reactServerDomPatched lists the patched releases of the react-server-dom-*
// packages, one per affected minor line.
var reactServerDomPatched = []string{"19.0.1", "19.1.2", "19.2.1"}

// Default returns the built-in CVE-2025-55182 ruleset.
func Default() Ruleset {
	return Ruleset{
		{Name: "react-server-dom-webpack", Severity: SeverityConfirmed, PatchedVersions: reactServerDomPatched},
		{Name: "react-server-dom-parcel", Severity: SeverityConfirmed, PatchedVersions: reactServerDomPatched},
		{Name: "react-server-dom-turbopack", Severity: SeverityConfirmed, PatchedVersions: reactServerDomPatched},
		// The CVE's root cause spans the react 19.x line; this is intentionally
		// over-inclusive and never blocking.
		{Name: "react", Severity: SeverityAdvisory, AdvisoryMajor: 19},
	}
}

type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadFile reads a YAML ruleset override.
func LoadFile(path string) (Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ruleset %s: %w", path, err)
	}
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errs.ErrInvalidRuleset, path, err)
	}
	rs := Ruleset(f.Rules)
	if err := rs.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", err, path)
	}
	return rs, nil
}

// FromConfig builds confirmed rules out of the vulnerable_packages config
// mapping (package name -> semver range expressions).
func FromConfig(pkgs map[string][]string) (Ruleset, error) {
	names := make([]string, 0, len(pkgs))
	for name := range pkgs {
		names = append(names, name)
	}
	sort.Strings(names)

	rs := make(Ruleset, 0, len(names))
	for _, name := range names {
		ranges := pkgs[name]
		for _, expr := range ranges {
			if _, err := semver.NewConstraint(expr); err != nil {
				return nil, fmt.Errorf("%w: range %q for %s: %v", errs.ErrInvalidRuleset, expr, name, err)
			}
		}
		rs = append(rs, Rule{Name: name, Severity: SeverityConfirmed, VulnerableRanges: ranges})
	}
	if err := rs.validate(); err != nil {
		return nil, err
	}
	return rs, nil
}

func (rs Ruleset) validate() error {
	if len(rs) == 0 {
		return errs.ErrEmptyRuleset
	}
	for _, r := range rs {
		if r.Name == "" {
			return fmt.Errorf("%w: rule with empty name", errs.ErrInvalidRuleset)
		}
		switch r.Severity {
		case SeverityConfirmed, SeverityAdvisory:
		default:
			return fmt.Errorf("%w: rule %s has severity %q", errs.ErrInvalidRuleset, r.Name, r.Severity)
		}
	}
	return nil
}

// Watched returns the package names the ruleset cares about. Scanning only
// ever looks these names up, bounding per-file work regardless of manifest
// size.
func (rs Ruleset) Watched() []string {
	names := make([]string, 0, len(rs))
	for _, r := range rs {
		names = append(names, r.Name)
	}
	return names
}

// Hash fingerprints the ruleset for cache keying.
func (rs Ruleset) Hash() string {
	h := sha256.New()
	for _, r := range rs {
		fmt.Fprintf(h, "%s|%s|%s|%s|%d\n",
			r.Name, r.Severity,
			strings.Join(r.PatchedVersions, ","),
			strings.Join(r.VulnerableRanges, ","),
			r.AdvisoryMajor)
	}
	return hex.EncodeToString(h.Sum(nil))
}
