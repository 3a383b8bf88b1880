package scan

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// npm lock files are structured JSON; v2/v3 carry a "packages" map keyed by
// install path, v1 a recursive "dependencies" tree. Both forms are walked.
type packageLockFile struct {
	Packages     map[string]packageLockEntry `json:"packages"`
	Dependencies map[string]packageLockDep   `json:"dependencies"`
}

type packageLockEntry struct {
	Version string `json:"version"`
}

type packageLockDep struct {
	Version      string                    `json:"version"`
	Dependencies map[string]packageLockDep `json:"dependencies"`
}

// parsePackageLock extracts watched packages from a package-lock.json.
func parsePackageLock(path string, watched []string) ([]DependencyRecord, []Diagnostic) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, []Diagnostic{{File: path, Message: fmt.Sprintf("read: %v", err)}}
	}

	var lock packageLockFile
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, []Diagnostic{{File: path, Message: fmt.Sprintf("invalid JSON: %v", err)}}
	}

	watchedSet := make(map[string]struct{}, len(watched))
	for _, w := range watched {
		watchedSet[w] = struct{}{}
	}

	var records []DependencyRecord
	add := func(pkg, version string) {
		records = append(records, DependencyRecord{
			Package:      pkg,
			RawSpec:      version,
			ResolvedFrom: SourceLockFile,
			Location:     Location{File: path, Line: lineOf(data, pkg)},
		})
	}

	for installPath, entry := range lock.Packages {
		pkg := installPath
		if i := strings.LastIndex(installPath, "node_modules/"); i >= 0 {
			pkg = installPath[i+len("node_modules/"):]
		}
		if _, ok := watchedSet[pkg]; ok && entry.Version != "" {
			add(pkg, entry.Version)
		}
	}

	var walk func(deps map[string]packageLockDep)
	walk = func(deps map[string]packageLockDep) {
		for pkg, dep := range deps {
			if _, ok := watchedSet[pkg]; ok && dep.Version != "" {
				add(pkg, dep.Version)
			}
			walk(dep.Dependencies)
		}
	}
	walk(lock.Dependencies)

	return records, nil
}

// yarn.lock and pnpm-lock.yaml are semi-structured text. The scanner looks
// for a declaration line naming a watched package and takes the next resolved
// version field inside that block. This is inherently heuristic and may
// under- or over-match on non-standard lock formats.
var (
	versionLineRe   = regexp.MustCompile(`^\s*version:?\s*"?([0-9][0-9A-Za-z.+-]*)"?\s*$`)
	inlineVersionRe = regexp.MustCompile(`[@/]([0-9][0-9A-Za-z.+-]*)[:(]`)
)

func parseTextLock(path string, watched []string) ([]DependencyRecord, []Diagnostic) {
	f, err := os.Open(path)
	if err != nil {
		return nil, []Diagnostic{{File: path, Message: fmt.Sprintf("read: %v", err)}}
	}
	defer f.Close()

	var records []DependencyRecord
	var current string
	var currentLine int

	lineNo := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			current = ""
			continue
		}

		if pkg := declaredPackage(line, watched); pkg != "" {
			// pnpm package keys embed the resolved version in the key itself
			// ("/pkg@19.0.0:"); yarn declares it on a following line.
			if m := inlineVersionRe.FindStringSubmatch(line); m != nil {
				records = append(records, DependencyRecord{
					Package:      pkg,
					RawSpec:      m[1],
					ResolvedFrom: SourceLockFile,
					Location:     Location{File: path, Line: lineNo},
				})
				current = ""
				continue
			}
			current = pkg
			currentLine = lineNo
			continue
		}

		if current != "" {
			if m := versionLineRe.FindStringSubmatch(line); m != nil {
				records = append(records, DependencyRecord{
					Package:      current,
					RawSpec:      m[1],
					ResolvedFrom: SourceLockFile,
					Location:     Location{File: path, Line: currentLine},
				})
				current = ""
			}
		}
	}
	if err := sc.Err(); err != nil {
		return records, []Diagnostic{{File: path, Message: fmt.Sprintf("scan: %v", err)}}
	}
	return records, nil
}

// declaredPackage reports which watched package (if any) a lock-file line
// declares a block for. Token boundaries keep "react" from matching inside
// "react-server-dom-webpack".
func declaredPackage(line string, watched []string) string {
	for _, pkg := range watched {
		idx := strings.Index(line, pkg)
		if idx < 0 {
			continue
		}
		if idx > 0 && isNameChar(line[idx-1]) {
			continue
		}
		after := idx + len(pkg)
		if after < len(line) && isNameChar(line[after]) {
			continue
		}
		return pkg
	}
	return ""
}

func isNameChar(c byte) bool {
	return c == '-' || c == '_' || c == '.' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
