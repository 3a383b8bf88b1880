package scan

import (
	"encoding/json"
	"fmt"
	"os"
)

// parseInstalled reads the declared version out of an installed package's own
// package.json under node_modules. This is authoritative for what is actually
// on disk, so these records carry a concrete version rather than a range.
func parseInstalled(manifestPath, pkg string) ([]DependencyRecord, []Diagnostic) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, []Diagnostic{{File: manifestPath, Message: fmt.Sprintf("read: %v", err)}}
	}

	var m manifestFile
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, []Diagnostic{{File: manifestPath, Message: fmt.Sprintf("invalid JSON: %v", err)}}
	}
	if m.Version == "" {
		return nil, []Diagnostic{{File: manifestPath, Message: "installed package has no version field"}}
	}

	return []DependencyRecord{{
		Package:      pkg,
		RawSpec:      m.Version,
		ResolvedFrom: SourceInstalledTree,
		Location:     Location{File: manifestPath, Line: lineOf(data, "version")},
	}}, nil
}
