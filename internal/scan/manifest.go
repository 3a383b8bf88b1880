package scan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

type manifestFile struct {
	Version         string            `json:"version"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// parseManifest extracts watched packages from a package.json. Only the
// watched names are looked up, so the work per manifest is constant no matter
// how many dependencies it declares. A malformed file yields a diagnostic,
// never an abort.
func parseManifest(path string, watched []string) ([]DependencyRecord, []Diagnostic) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, []Diagnostic{{File: path, Message: fmt.Sprintf("read: %v", err)}}
	}

	var m manifestFile
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, []Diagnostic{{File: path, Message: fmt.Sprintf("invalid JSON: %v", err)}}
	}

	var records []DependencyRecord
	for _, section := range []map[string]string{m.Dependencies, m.DevDependencies} {
		for _, pkg := range watched {
			spec, ok := section[pkg]
			if !ok {
				continue
			}
			records = append(records, DependencyRecord{
				Package:      pkg,
				RawSpec:      spec,
				ResolvedFrom: SourceManifest,
				Location:     Location{File: path, Line: lineOf(data, pkg)},
			})
		}
	}
	return records, nil
}

// lineOf returns the 1-based line of the first occurrence of the quoted
// package name, or 0 when it cannot be located. Best effort: provenance for
// humans, not for machines.
func lineOf(data []byte, pkg string) int {
	idx := bytes.Index(data, []byte(`"`+pkg+`"`))
	if idx < 0 {
		return 0
	}
	return bytes.Count(data[:idx], []byte("\n")) + 1
}
