package scan

import (
	"path/filepath"
	"testing"
)

func TestParsePackageLockV3(t *testing.T) {
	path := filepath.Join(t.TempDir(), "package-lock.json")
	writeFile(t, path, `{
  "lockfileVersion": 3,
  "packages": {
    "": {"name": "demo"},
    "node_modules/react": {"version": "19.1.0"},
    "node_modules/react-server-dom-webpack": {"version": "19.0.0"},
    "node_modules/nested/node_modules/react": {"version": "18.2.0"},
    "node_modules/lodash": {"version": "4.17.21"}
  }
}`)

	records, diags := parsePackageLock(path, testWatched)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d: %v", len(records), records)
	}
	versions := map[string][]string{}
	for _, r := range records {
		if r.ResolvedFrom != SourceLockFile {
			t.Errorf("%s tagged %s, want lock_file", r.Package, r.ResolvedFrom)
		}
		versions[r.Package] = append(versions[r.Package], r.RawSpec)
	}
	if len(versions["react"]) != 2 {
		t.Errorf("expected both react entries, got %v", versions["react"])
	}
	if len(versions["react-server-dom-webpack"]) != 1 {
		t.Errorf("expected one webpack entry, got %v", versions["react-server-dom-webpack"])
	}
}

func TestParsePackageLockV1(t *testing.T) {
	path := filepath.Join(t.TempDir(), "package-lock.json")
	writeFile(t, path, `{
  "lockfileVersion": 1,
  "dependencies": {
    "react-server-dom-turbopack": {
      "version": "19.2.0",
      "dependencies": {
        "react": {"version": "19.2.0"}
      }
    }
  }
}`)

	records, diags := parsePackageLock(path, testWatched)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d: %v", len(records), records)
	}
}

func TestParsePackageLockMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "package-lock.json")
	writeFile(t, path, `{"packages": [`)

	records, diags := parsePackageLock(path, testWatched)
	if len(records) != 0 || len(diags) != 1 {
		t.Fatalf("expected a diagnostic and no records, got %v / %v", records, diags)
	}
}

func TestParseYarnLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "yarn.lock")
	writeFile(t, path, `# THIS IS AN AUTOGENERATED FILE. DO NOT EDIT THIS FILE DIRECTLY.
# yarn lockfile v1

"react-server-dom-webpack@^19.0.0":
  version "19.0.0"
  resolved "https://registry.yarnpkg.com/react-server-dom-webpack/-/react-server-dom-webpack-19.0.0.tgz"

react@^18.0.0:
  version "18.2.0"
  resolved "https://registry.yarnpkg.com/react/-/react-18.2.0.tgz"

lodash@^4.17.0:
  version "4.17.21"
`)

	records, diags := parseTextLock(path, testWatched)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d: %v", len(records), records)
	}
	got := map[string]string{}
	for _, r := range records {
		got[r.Package] = r.RawSpec
		if r.Location.Line == 0 {
			t.Errorf("%s has no line number", r.Package)
		}
	}
	if got["react-server-dom-webpack"] != "19.0.0" {
		t.Errorf("webpack version = %q", got["react-server-dom-webpack"])
	}
	if got["react"] != "18.2.0" {
		t.Errorf("react version = %q", got["react"])
	}
}

func TestParsePnpmLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pnpm-lock.yaml")
	writeFile(t, path, `lockfileVersion: '9.0'

importers:
  .:
    dependencies:
      react:
        specifier: ^19.0.0
        version: 19.1.0

packages:

  /react-server-dom-parcel@19.1.1:
    resolution: {integrity: sha512-xxxx}
`)

	records, diags := parseTextLock(path, testWatched)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	got := map[string]string{}
	for _, r := range records {
		got[r.Package] = r.RawSpec
	}
	if got["react"] != "19.1.0" {
		t.Errorf("react version = %q, records %v", got["react"], records)
	}
	if got["react-server-dom-parcel"] != "19.1.1" {
		t.Errorf("parcel version = %q, records %v", got["react-server-dom-parcel"], records)
	}
}

func TestDeclaredPackageBoundaries(t *testing.T) {
	// "react" must not match inside "react-server-dom-webpack".
	if pkg := declaredPackage(`"react-dom@^18.0.0":`, []string{"react"}); pkg != "" {
		t.Errorf("react matched inside react-dom: %q", pkg)
	}
	if pkg := declaredPackage(`react@^18.0.0:`, []string{"react"}); pkg != "react" {
		t.Errorf("bare react did not match: %q", pkg)
	}
	if pkg := declaredPackage(`/react-server-dom-webpack@19.0.0:`, testWatched); pkg != "react-server-dom-webpack" {
		t.Errorf("pnpm key did not match: %q", pkg)
	}
}
