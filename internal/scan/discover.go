package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hoangtm-lab/r2s-detect/internal/config"
)

type unitKind int

const (
	unitManifest unitKind = iota
	unitPackageLock
	unitTextLock
	unitInstalledPkg
)

// unit is one independent discovery work item: a single file to parse, or a
// single watched-package lookup under a node_modules directory.
type unit struct {
	kind unitKind
	path string
	pkg  string // watched package name, unitInstalledPkg only
}

var lockFileNames = map[string]unitKind{
	"package-lock.json": unitPackageLock,
	"yarn.lock":         unitTextLock,
	"pnpm-lock.yaml":    unitTextLock,
}

// discover walks root with an iterative, depth-bounded worklist and returns
// the units to scan. The walk is breadth-first so the root's own manifest and
// lock files always come before anything in a subdirectory. node_modules is
// never recursed into generically: each one found yields one lookup unit per
// watched package instead.
func discover(root string, cfg config.ScanConfig, watched []string) ([]unit, []Diagnostic) {
	exclude := make(map[string]struct{}, len(cfg.ExcludeDirs)+1)
	exclude[".git"] = struct{}{}
	for _, d := range cfg.ExcludeDirs {
		exclude[d] = struct{}{}
	}

	type dirItem struct {
		path  string
		depth int
	}

	var units []unit
	var diags []Diagnostic
	queue := []dirItem{{path: root, depth: 0}}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		entries, err := os.ReadDir(item.path)
		if err != nil {
			diags = append(diags, Diagnostic{File: item.path, Message: fmt.Sprintf("read directory: %v", err)})
			continue
		}
		// ReadDir sorts by name, which keeps discovery deterministic within a
		// directory; parallel unit execution may still complete out of order.
		for _, entry := range entries {
			full := filepath.Join(item.path, entry.Name())
			if entry.IsDir() {
				if _, skip := exclude[entry.Name()]; skip {
					continue
				}
				if entry.Name() == "node_modules" {
					units = append(units, installedUnits(full, watched)...)
					continue
				}
				if item.depth < cfg.MaxDepth {
					queue = append(queue, dirItem{path: full, depth: item.depth + 1})
				}
				continue
			}
			if entry.Name() == "package.json" {
				units = append(units, unit{kind: unitManifest, path: full})
			} else if kind, ok := lockFileNames[entry.Name()]; ok {
				units = append(units, unit{kind: kind, path: full})
			}
		}
	}

	return units, diags
}

// installedUnits returns one lookup unit per watched package that is actually
// present under the given node_modules directory.
func installedUnits(nmDir string, watched []string) []unit {
	var units []unit
	for _, pkg := range watched {
		manifest := filepath.Join(nmDir, filepath.FromSlash(pkg), "package.json")
		if _, err := os.Stat(manifest); err == nil {
			units = append(units, unit{kind: unitInstalledPkg, path: manifest, pkg: pkg})
		}
	}
	return units
}

// FindProjectRoot walks upward from start to the nearest directory containing
// a package.json, mirroring how npm itself locates a project. It returns an
// empty string when no ancestor qualifies.
func FindProjectRoot(start string) string {
	dir := start
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "package.json")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// sourceFiles lists the file paths a set of units covers, sorted and
// deduplicated, for cache fingerprinting.
func sourceFiles(units []unit) []string {
	seen := make(map[string]struct{}, len(units))
	for _, u := range units {
		seen[u.path] = struct{}{}
	}
	files := make([]string, 0, len(seen))
	for f := range seen {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}
