package rules

import "testing"

func TestNormalizeSpec(t *testing.T) {
	cases := []struct {
		spec string
		want string
	}{
		{"^19.0.0", "19.0.0"},
		{"~19.1.2", "19.1.2"},
		{">=19.0.0 <19.0.1", "19.0.0"},
		{"19", "19.0.0"},
		{"=19.0.0", "19.0.0"},
		{"v19.2.0", "19.2.0"},
		{" 19.0.0 ", "19.0.0"},
		{"19.0.0-rc.1", "19.0.0-rc.1"},
		{">=18.0.0 <19.0.0 || >=19.0.1", "18.0.0"},
	}
	for _, tc := range cases {
		v, err := NormalizeSpec(tc.spec)
		if err != nil {
			t.Fatalf("NormalizeSpec(%q) failed: %v", tc.spec, err)
		}
		if got := v.String(); got != tc.want {
			t.Errorf("NormalizeSpec(%q) = %s, want %s", tc.spec, got, tc.want)
		}
	}
}

func TestNormalizeSpecRejectsGarbage(t *testing.T) {
	for _, spec := range []string{"", "not-a-version", "*", "latest"} {
		if _, err := NormalizeSpec(spec); err == nil {
			t.Errorf("NormalizeSpec(%q) should fail", spec)
		}
	}
}

func TestEvalConfirmedRule(t *testing.T) {
	rs := Default()

	cases := []struct {
		version    string
		vulnerable bool
	}{
		{"19.0.0", true},
		{"19.0.1", false},
		{"19.0.2", false},
		{"19.1.0", true},
		{"19.1.1", true},
		{"19.1.2", false},
		{"19.2.0", true},
		{"19.2.1", false},
		{"19.3.0", false},
		{"19.0.1-canary.0", true}, // prerelease sorts below its release
	}
	for _, tc := range cases {
		matches, err := rs.Eval("react-server-dom-webpack", tc.version)
		if err != nil {
			t.Fatalf("Eval(%s) failed: %v", tc.version, err)
		}
		if got := len(matches) > 0; got != tc.vulnerable {
			t.Errorf("react-server-dom-webpack@%s: vulnerable = %v, want %v", tc.version, got, tc.vulnerable)
		}
		if len(matches) > 0 && matches[0].Rule.Severity != SeverityConfirmed {
			t.Errorf("react-server-dom-webpack@%s: severity = %s, want confirmed", tc.version, matches[0].Rule.Severity)
		}
	}
}

func TestEvalAdvisoryReactRule(t *testing.T) {
	rs := Default()

	matches, err := rs.Eval("react", "19.1.0")
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if len(matches) != 1 || matches[0].Rule.Severity != SeverityAdvisory {
		t.Fatalf("react@19.1.0 should yield one advisory match, got %v", matches)
	}

	matches, err = rs.Eval("react", "18.2.0")
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("react@18.2.0 should not match, got %v", matches)
	}

	// Range specs resolve to their floor, so ^19.0.0 is still major 19.
	matches, err = rs.Eval("react", "^19.0.0")
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("react@^19.0.0 should match the advisory rule")
	}
}

func TestEvalUnwatchedPackage(t *testing.T) {
	matches, err := Default().Eval("left-pad", "1.3.0")
	if err != nil || matches != nil {
		t.Fatalf("unwatched package should yield nothing, got %v, %v", matches, err)
	}
}

func TestEvalUnparseableVersion(t *testing.T) {
	if _, err := Default().Eval("react", "workspace:*"); err == nil {
		t.Fatal("expected an error for an unparseable watched version")
	}
	// Unparseable versions of unwatched packages never parse at all.
	if _, err := Default().Eval("lodash", "workspace:*"); err != nil {
		t.Fatalf("unwatched package should not be parsed: %v", err)
	}
}

func TestEvalVulnerableRanges(t *testing.T) {
	rs := Ruleset{{
		Name:             "react-server-dom-webpack",
		Severity:         SeverityConfirmed,
		VulnerableRanges: []string{">=19.0.0 <19.0.1"},
	}}

	matches, err := rs.Eval("react-server-dom-webpack", "19.0.0")
	if err != nil || len(matches) != 1 {
		t.Fatalf("19.0.0 should match the configured range: %v, %v", matches, err)
	}
	matches, err = rs.Eval("react-server-dom-webpack", "19.0.1")
	if err != nil || len(matches) != 0 {
		t.Fatalf("19.0.1 should not match the configured range: %v, %v", matches, err)
	}
}
