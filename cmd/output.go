package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/hoangtm-lab/r2s-detect/internal/scan"
	consts "github.com/hoangtm-lab/r2s-detect/internal/shared/constants"
)

// contractOutput is the stable JSON shape consumers (CI, SIEM forwarders)
// parse. It is a view over scan.Result, not the engine's own type.
type contractOutput struct {
	VulnerabilitiesFound bool              `json:"vulnerabilities_found"`
	Vulnerabilities      []contractVuln    `json:"vulnerabilities"`
	Status               string            `json:"status"`
	LikelyReact          *bool             `json:"likely_react,omitempty"`
	Diagnostics          []scan.Diagnostic `json:"diagnostics"`
	Recommendations      map[string]string `json:"recommendations,omitempty"`
}

type contractVuln struct {
	Package  string `json:"package"`
	Version  string `json:"version"`
	Severity string `json:"severity"`
	Source   string `json:"source"`
}

func buildContract(result *scan.Result) contractOutput {
	out := contractOutput{
		VulnerabilitiesFound: len(result.Findings) > 0,
		Vulnerabilities:      []contractVuln{},
		Status:               string(result.Status),
		LikelyReact:          result.LikelyReact,
		Diagnostics:          result.Diagnostics,
	}
	if out.Diagnostics == nil {
		out.Diagnostics = []scan.Diagnostic{}
	}
	for _, f := range result.Findings {
		out.Vulnerabilities = append(out.Vulnerabilities, contractVuln{
			Package:  f.Package,
			Version:  f.Version,
			Severity: string(f.Severity),
			Source:   f.Location.String(),
		})
	}
	if out.VulnerabilitiesFound {
		out.Recommendations = map[string]string{
			"react-server-dom-packages": "Upgrade to versions 19.0.1, 19.1.2, or 19.2.1",
			"react":                     "The 19.x line is flagged for manual review; confirm your framework has the patched server-dom package",
		}
	}
	return out
}

func printJSON(result *scan.Result) error {
	data, err := json.MarshalIndent(buildContract(result), "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func printText(result *scan.Result) {
	fmt.Printf("%s %s\n", colorInfo("Target:"), result.Target)
	fmt.Printf("%s %s\n", colorInfo("Status:"), formatStatus(result.Status))

	if result.LikelyReact != nil {
		if *result.LikelyReact {
			fmt.Println(colorWarn("Potential React application detected. Manual verification recommended."))
		} else {
			fmt.Println(colorSuccess("No clear React indicators found."))
		}
	}

	if len(result.Findings) == 0 && result.Mode == scan.ModePath {
		fmt.Println(colorSuccess("No vulnerable packages detected."))
	}

	if len(result.Findings) > 0 {
		// Stable order for humans; the engine itself preserves discovery
		// completion order.
		findings := append([]scan.Finding(nil), result.Findings...)
		scan.SortFindingsForDisplay(findings)

		fmt.Println(colorError("Found potential vulnerabilities:"))
		for _, f := range findings {
			fmt.Printf("  - %s@%s (%s, %s, %s)\n",
				f.Package, f.Version, f.Severity, f.Source, f.Location)
		}
		fmt.Println(colorWarn("Recommendation: upgrade react-server-dom-* packages to 19.0.1, 19.1.2, or 19.2.1."))
	}

	for _, d := range result.Diagnostics {
		subject := d.File
		if subject == "" {
			subject = d.Probe
		}
		fmt.Printf("%s %s: %s\n", colorWarn("diagnostic:"), subject, d.Message)
	}
}

// saveResult writes the full engine result (not the contract view) so the
// report command can re-render it later.
func saveResult(result *scan.Result, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := os.WriteFile(path, data, consts.DefaultFilePerm); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}

func loadResult(path string) (*scan.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read result: %w", err)
	}
	var result scan.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode result %s: %w", path, err)
	}
	return &result, nil
}

func statusExitCode(status scan.Status) int {
	switch status {
	case scan.StatusVulnerable:
		return 1
	case scan.StatusError:
		return 2
	case scan.StatusInconclusive:
		return 3
	default:
		return 0
	}
}

func diagnosticsFromWarnings(warnings []string) []scan.Diagnostic {
	diags := make([]scan.Diagnostic, 0, len(warnings))
	for _, w := range warnings {
		diags = append(diags, scan.Diagnostic{File: "config", Message: w})
	}
	return diags
}
