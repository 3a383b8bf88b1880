package scan

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hoangtm-lab/r2s-detect/internal/config"
	"github.com/hoangtm-lab/r2s-detect/internal/rules"
)

// Scanner runs filesystem scans against one immutable ruleset.
type Scanner struct {
	rules  rules.Ruleset
	cfg    config.ScanConfig
	logger *zap.SugaredLogger
}

func New(rs rules.Ruleset, cfg config.ScanConfig, logger *zap.SugaredLogger) *Scanner {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Scanner{rules: rs, cfg: cfg, logger: logger}
}

// DiscoverSources returns the source files a scan of root would examine,
// without parsing any of them. The cache layer fingerprints these before
// deciding whether a full scan is needed.
func (s *Scanner) DiscoverSources(root string) []string {
	units, _ := discover(root, s.cfg, s.rules.Watched())
	return sourceFiles(units)
}

// ScanPath scans a validated root directory. Discovery units run on the
// worker pool; matching and aggregation happen after the join barrier, on a
// single goroutine, because they are cheap and order-sensitive for
// diagnostics. Every per-file failure lands in Diagnostics; only the caller's
// prior path validation can abort a scan outright.
func (s *Scanner) ScanPath(ctx context.Context, root string) *Result {
	started := time.Now().UTC()
	watched := s.rules.Watched()

	units, diags := discover(root, s.cfg, watched)
	s.logger.Debugw("discovery complete", "root", root, "units", len(units))

	pool := &runner{workers: s.cfg.MaxWorkers, rateLimit: s.cfg.RateLimit}
	unitResults := pool.run(ctx, units, func(_ context.Context, u unit) unitResult {
		var records []DependencyRecord
		var uDiags []Diagnostic
		switch u.kind {
		case unitManifest:
			records, uDiags = parseManifest(u.path, watched)
		case unitPackageLock:
			records, uDiags = parsePackageLock(u.path, watched)
		case unitTextLock:
			records, uDiags = parseTextLock(u.path, watched)
		case unitInstalledPkg:
			records, uDiags = parseInstalled(u.path, u.pkg)
		}
		return unitResult{records: records, diags: uDiags}
	})

	var findings []Finding
	for _, ur := range unitResults {
		diags = append(diags, ur.diags...)
		for _, rec := range ur.records {
			matches, err := s.rules.Eval(rec.Package, rec.RawSpec)
			if err != nil {
				// Unknown is neither safe nor vulnerable; the audit trail
				// keeps the parse failure visible.
				diags = append(diags, Diagnostic{File: rec.Location.String(), Message: err.Error()})
				continue
			}
			for _, m := range matches {
				findings = append(findings, Finding{
					Package:         rec.Package,
					Version:         m.Version.Original(),
					Severity:        m.Rule.Severity,
					RuleMatched:     m.Rule.Name,
					PatchedVersions: m.Rule.PatchedVersions,
					Source:          rec.ResolvedFrom,
					Location:        rec.Location,
				})
			}
		}
	}

	findings = dedupeFindings(findings)

	result := &Result{
		RunID:       uuid.NewString(),
		Target:      root,
		Mode:        ModePath,
		Findings:    findings,
		Status:      computeStatus(findings),
		Diagnostics: diags,
		Sources:     sourceFiles(units),
		StartedAt:   started,
		CompletedAt: time.Now().UTC(),
	}
	s.logger.Infow("scan complete",
		"target", root,
		"status", result.Status,
		"findings", len(result.Findings),
		"diagnostics", len(result.Diagnostics),
	)
	return result
}

// NewURLResult wraps a completed passive probe into the common result shape.
// URL scans produce no version data, so a completed probe is always "safe";
// the likely-react flag exists to prompt manual follow-up.
func NewURLResult(target string, likelyReact bool, started time.Time) *Result {
	return &Result{
		RunID:       uuid.NewString(),
		Target:      target,
		Mode:        ModeURL,
		Findings:    []Finding{},
		LikelyReact: &likelyReact,
		Status:      StatusSafe,
		StartedAt:   started,
		CompletedAt: time.Now().UTC(),
	}
}

// NewProbeFailure wraps a probe that could not complete. Network failures map
// to inconclusive, never to a crash, and are not retried.
func NewProbeFailure(target, message string, started time.Time) *Result {
	return &Result{
		RunID:       uuid.NewString(),
		Target:      target,
		Mode:        ModeURL,
		Findings:    []Finding{},
		Status:      StatusInconclusive,
		Diagnostics: []Diagnostic{{Probe: target, Message: message}},
		StartedAt:   started,
		CompletedAt: time.Now().UTC(),
	}
}
