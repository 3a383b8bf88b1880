package scan

import (
	"fmt"
	"sort"
)

// dedupeFindings drops exact duplicates while preserving discovery order. The
// key is (package, version, location): the same package surfacing from both a
// manifest and the installed tree stays as two findings, because each source
// is independent evidence. Display-level dedupe by (package, version) is a
// rendering concern, not an engine one.
func dedupeFindings(findings []Finding) []Finding {
	seen := make(map[string]struct{}, len(findings))
	out := make([]Finding, 0, len(findings))
	for _, f := range findings {
		key := fmt.Sprintf("%s|%s|%s", f.Package, f.Version, f.Location)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, f)
	}
	return out
}

// computeStatus applies the status invariants: vulnerable iff any finding
// exists; inconclusive and error are set by the URL and validation paths
// before aggregation runs.
func computeStatus(findings []Finding) Status {
	if len(findings) > 0 {
		return StatusVulnerable
	}
	return StatusSafe
}

// SortFindingsForDisplay orders findings by location then package name.
// Engine output preserves discovery completion order, which is not
// deterministic under parallelism; renderers that need stable output sort
// with this.
func SortFindingsForDisplay(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Location.String() != findings[j].Location.String() {
			return findings[i].Location.String() < findings[j].Location.String()
		}
		if findings[i].Package != findings[j].Package {
			return findings[i].Package < findings[j].Package
		}
		return findings[i].Version < findings[j].Version
	})
}
