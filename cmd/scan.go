package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hoangtm-lab/r2s-detect/internal/cache"
	"github.com/hoangtm-lab/r2s-detect/internal/config"
	"github.com/hoangtm-lab/r2s-detect/internal/rules"
	"github.com/hoangtm-lab/r2s-detect/internal/scan"
	errs "github.com/hoangtm-lab/r2s-detect/internal/shared/errors"
	"github.com/hoangtm-lab/r2s-detect/internal/validate"
)

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Scan a project directory for CVE-2025-55182 vulnerable packages",
	Long: `Scan checks package.json manifests, package-lock.json / yarn.lock /
pnpm-lock.yaml lock files, and installed node_modules trees for
react-server-dom-webpack, react-server-dom-parcel, and
react-server-dom-turbopack versions below their patched releases, and flags
react 19.x for manual review.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := "."
		if len(args) == 1 {
			target = args[0]
		}

		jsonOut, _ := cmd.Flags().GetBool("json")
		outputPath, _ := cmd.Flags().GetString("output")
		rulesPath, _ := cmd.Flags().GetString("rules")
		allowedRoot, _ := cmd.Flags().GetString("allowed-root")
		findRoot, _ := cmd.Flags().GetBool("find-root")
		cacheMode, _ := cmd.Flags().GetString("cache")

		if cacheMode != "use" && cacheMode != "bypass" && cacheMode != "clear" {
			return fmt.Errorf("invalid --cache directive %q (use, bypass, or clear)", cacheMode)
		}

		diags := diagnosticsFromWarnings(configWarnings)
		ruleset, ruleDiags := resolveRuleset(rulesPath, cfg)
		diags = append(diags, ruleDiags...)

		root, err := validate.ResolvePath(target, allowedRoot)
		if err != nil {
			return err
		}
		if findRoot {
			if projectRoot := scan.FindProjectRoot(root); projectRoot != "" {
				root = projectRoot
			} else {
				diags = append(diags, scan.Diagnostic{File: root, Message: "no package.json found in any ancestor directory"})
			}
		}

		scanner := scan.New(ruleset, cfg.Scan, logger)

		store, storeDiag := openStore(cacheMode)
		if storeDiag != nil {
			diags = append(diags, *storeDiag)
		}
		if store != nil && cacheMode == "clear" {
			if err := store.Clear(); err != nil {
				diags = append(diags, scan.Diagnostic{File: "cache", Message: err.Error()})
			}
		}

		var fingerprint string
		if store != nil {
			fingerprint = cache.Fingerprint(root, ruleset.Hash(), scanner.DiscoverSources(root))
			if cacheMode == "use" {
				if result := cachedResult(store, fingerprint); result != nil {
					logger.Debugw("cache hit", "target", root, "fingerprint", fingerprint)
					result.Diagnostics = append(result.Diagnostics, diags...)
					return emit(result, jsonOut, outputPath)
				}
			}
		}

		result := scanner.ScanPath(cmd.Context(), root)
		result.Diagnostics = append(diags, result.Diagnostics...)

		if store != nil {
			if err := storeResult(store, fingerprint, root, ruleset.Hash(), result); err != nil {
				logger.Warnw("cache update failed", "error", err)
			}
		}

		return emit(result, jsonOut, outputPath)
	},
}

func emit(result *scan.Result, jsonOut bool, outputPath string) error {
	if outputPath != "" {
		if err := saveResult(result, outputPath); err != nil {
			return err
		}
	}
	if jsonOut {
		if err := printJSON(result); err != nil {
			return err
		}
	} else {
		printText(result)
	}
	exitCode = statusExitCode(result.Status)
	return nil
}

// resolveRuleset picks the ruleset for this invocation: a --rules file, else
// the vulnerable_packages config mapping, else the built-in default. A
// malformed override degrades to the default with a diagnostic; detection
// never silently disables itself.
func resolveRuleset(rulesPath string, cfg *config.Config) (rules.Ruleset, []scan.Diagnostic) {
	if rulesPath != "" {
		rs, err := rules.LoadFile(rulesPath)
		if err == nil {
			return rs, nil
		}
		return rules.Default(), []scan.Diagnostic{{
			File:    rulesPath,
			Message: fmt.Sprintf("ruleset override rejected, using built-in default: %v", err),
		}}
	}
	if len(cfg.VulnerablePackages) > 0 {
		rs, err := rules.FromConfig(cfg.VulnerablePackages)
		if err == nil {
			return rs, nil
		}
		return rules.Default(), []scan.Diagnostic{{
			File:    "config",
			Message: fmt.Sprintf("vulnerable_packages rejected, using built-in default: %v", err),
		}}
	}
	return rules.Default(), nil
}

func openStore(cacheMode string) (*cache.Store, *scan.Diagnostic) {
	if cacheMode == "bypass" {
		return nil, nil
	}
	if !cfg.Cache.Enabled && cacheMode != "clear" {
		return nil, nil
	}
	dir := cfg.Cache.Dir
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, &scan.Diagnostic{File: "cache", Message: fmt.Sprintf("no cache directory available: %v", err)}
		}
		dir = filepath.Join(base, "r2s-detect")
	}
	store, err := cache.Open(dir)
	if err != nil {
		return nil, &scan.Diagnostic{File: "cache", Message: err.Error()}
	}
	return store, nil
}

func cachedResult(store *cache.Store, fingerprint string) *scan.Result {
	entry, err := store.Get(fingerprint)
	if err != nil {
		if !errors.Is(err, errs.ErrCacheMiss) {
			logger.Warnw("cache read failed", "error", err)
		}
		return nil
	}
	var result scan.Result
	if err := json.Unmarshal(entry.Result, &result); err != nil {
		return nil
	}
	return &result
}

func storeResult(store *cache.Store, fingerprint, target, rulesetHash string, result *scan.Result) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return store.Put(cache.Entry{
		Fingerprint: fingerprint,
		Target:      target,
		RulesetHash: rulesetHash,
		CachedAt:    result.CompletedAt,
		Result:      raw,
	})
}

func init() {
	scanCmd.Flags().Bool("json", false, "emit the machine-readable JSON contract")
	scanCmd.Flags().StringP("output", "o", "", "write the full scan result to a file")
	scanCmd.Flags().String("rules", "", "YAML ruleset override")
	scanCmd.Flags().Int("workers", 0, "worker pool size (overrides scan.max_workers)")
	scanCmd.Flags().Int("max-depth", 0, "maximum directory depth (overrides scan.max_depth)")
	scanCmd.Flags().String("allowed-root", "", "reject targets that resolve outside this directory")
	scanCmd.Flags().Bool("find-root", false, "walk up to the nearest directory containing package.json")
	scanCmd.Flags().String("cache", "use", "cache directive: use, bypass, or clear")
}
