package rules

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Match is the outcome of evaluating one dependency record against one rule.
type Match struct {
	Rule    Rule
	Version *semver.Version
}

// Eval evaluates a package at a raw version specifier against every rule
// independently. It returns no matches when no rule flags the version, and an
// error only when a rule named the package but the specifier cannot be parsed
// into a comparable version. Callers record parse failures as diagnostics; an
// unparseable version is neither safe nor vulnerable.
func (rs Ruleset) Eval(name, rawSpec string) ([]Match, error) {
	var matches []Match
	var v *semver.Version
	for _, r := range rs {
		if r.Name != name {
			continue
		}
		if v == nil {
			parsed, err := NormalizeSpec(rawSpec)
			if err != nil {
				return nil, fmt.Errorf("unparseable version %q for %s: %w", rawSpec, name, err)
			}
			v = parsed
		}
		if r.vulnerable(v) {
			matches = append(matches, Match{Rule: r, Version: v})
		}
	}
	return matches, nil
}

func (r Rule) vulnerable(v *semver.Version) bool {
	if len(r.VulnerableRanges) > 0 {
		for _, expr := range r.VulnerableRanges {
			c, err := semver.NewConstraint(expr)
			if err != nil {
				continue
			}
			if c.Check(v) {
				return true
			}
		}
		return false
	}

	if r.Severity == SeverityAdvisory {
		return v.Major() == r.AdvisoryMajor
	}

	return belowPatched(v, r.PatchedVersions)
}

// belowPatched reports whether v falls below the patched release of its own
// major.minor line. Versions on a line with no patched release are vulnerable
// when they sort below the highest patched release overall: the advisory
// patched every affected line, so an older unlisted line never received a
// fix.
func belowPatched(v *semver.Version, patched []string) bool {
	var highest *semver.Version
	for _, p := range patched {
		pv, err := semver.NewVersion(p)
		if err != nil {
			continue
		}
		if pv.Major() == v.Major() && pv.Minor() == v.Minor() {
			return v.LessThan(pv)
		}
		if highest == nil || pv.GreaterThan(highest) {
			highest = pv
		}
	}
	return highest != nil && v.LessThan(highest)
}

// NormalizeSpec reduces a version range specifier to its concrete lower
// bound: range operators are stripped and compound ranges like ">=19.0.0
// <19.0.1" resolve to the floor. Caret and tilde specs resolve to the version
// they name, since scans evaluate the resolved or installed version wherever
// one exists and fall back to the manifest-declared floor otherwise.
func NormalizeSpec(raw string) (*semver.Version, error) {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "||"); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	if fields := strings.Fields(s); len(fields) > 0 {
		s = fields[0]
	}
	for {
		trimmed := s
		for _, op := range []string{">=", "<=", ">", "<", "=", "^", "~", "v"} {
			trimmed = strings.TrimPrefix(trimmed, op)
		}
		if trimmed == s {
			break
		}
		s = trimmed
	}
	if s == "" {
		return nil, fmt.Errorf("empty version in %q", raw)
	}
	v, err := semver.NewVersion(s)
	if err != nil {
		return nil, err
	}
	return v, nil
}
