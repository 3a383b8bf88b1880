package scan

import (
	"os"
	"path/filepath"
	"testing"
)

var testWatched = []string{
	"react-server-dom-webpack",
	"react-server-dom-parcel",
	"react-server-dom-turbopack",
	"react",
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestParseManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "package.json")
	writeFile(t, path, `{
  "name": "demo",
  "dependencies": {
    "react": "18.2.0",
    "react-server-dom-webpack": "19.0.0",
    "lodash": "4.17.21"
  },
  "devDependencies": {
    "react-server-dom-parcel": "^19.1.0"
  }
}`)

	records, diags := parseManifest(path, testWatched)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d: %v", len(records), records)
	}
	byPkg := map[string]DependencyRecord{}
	for _, r := range records {
		byPkg[r.Package] = r
		if r.ResolvedFrom != SourceManifest {
			t.Errorf("%s tagged %s, want manifest", r.Package, r.ResolvedFrom)
		}
		if r.Location.File != path {
			t.Errorf("%s located at %s, want %s", r.Package, r.Location.File, path)
		}
	}
	if byPkg["react"].RawSpec != "18.2.0" {
		t.Errorf("react spec = %q", byPkg["react"].RawSpec)
	}
	if byPkg["react-server-dom-parcel"].RawSpec != "^19.1.0" {
		t.Errorf("parcel spec = %q", byPkg["react-server-dom-parcel"].RawSpec)
	}
	if byPkg["react-server-dom-webpack"].Location.Line == 0 {
		t.Error("expected a line number for react-server-dom-webpack")
	}
}

func TestParseManifestMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "package.json")
	writeFile(t, path, `{"dependencies": {"react": `)

	records, diags := parseManifest(path, testWatched)
	if len(records) != 0 {
		t.Fatalf("expected no records, got %v", records)
	}
	if len(diags) != 1 || diags[0].File != path {
		t.Fatalf("expected one diagnostic for %s, got %v", path, diags)
	}
}

func TestParseManifestUnreadable(t *testing.T) {
	_, diags := parseManifest(filepath.Join(t.TempDir(), "missing.json"), testWatched)
	if len(diags) != 1 {
		t.Fatalf("expected one diagnostic, got %v", diags)
	}
}

func TestParseInstalled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "package.json")
	writeFile(t, path, `{"name": "react-server-dom-webpack", "version": "19.0.0"}`)

	records, diags := parseInstalled(path, "react-server-dom-webpack")
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	r := records[0]
	if r.RawSpec != "19.0.0" || r.ResolvedFrom != SourceInstalledTree {
		t.Fatalf("unexpected record: %+v", r)
	}
}

func TestParseInstalledNoVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "package.json")
	writeFile(t, path, `{"name": "react"}`)

	records, diags := parseInstalled(path, "react")
	if len(records) != 0 || len(diags) != 1 {
		t.Fatalf("expected a diagnostic and no records, got %v / %v", records, diags)
	}
}
