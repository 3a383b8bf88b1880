package config

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	consts "github.com/hoangtm-lab/r2s-detect/internal/shared/constants"
)

// Config captures runtime configuration shared across commands.
type Config struct {
	Scan  ScanConfig
	Cache CacheConfig

	// VulnerablePackages optionally overrides the built-in ruleset:
	// package name -> vulnerable version ranges.
	VulnerablePackages map[string][]string
}

// ScanConfig consolidates settings for filesystem scans.
type ScanConfig struct {
	MaxDepth       int
	ExcludeDirs    []string
	MaxWorkers     int
	TimeoutSeconds int
	RateLimit      int
}

// CacheConfig controls the optional scan result cache.
type CacheConfig struct {
	Enabled bool
	Dir     string
}

// recognizedKeys enumerates every config key the engine consumes. Keys under
// vulnerable_packages are package names and are matched by prefix.
var recognizedKeys = map[string]struct{}{
	"scan.max_depth":       {},
	"scan.exclude_dirs":    {},
	"scan.max_workers":     {},
	"scan.timeout_seconds": {},
	"scan.rate_limit":      {},
	"cache.enabled":        {},
	"cache.dir":            {},
	"vulnerable_packages":  {},
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Scan: ScanConfig{
			MaxDepth:       consts.DefaultMaxDepth,
			ExcludeDirs:    []string{".git", ".hg", ".svn", "dist", "build", ".next"},
			MaxWorkers:     consts.DefaultMaxWorkers,
			TimeoutSeconds: int(consts.DefaultProbeTimeout.Seconds()),
			RateLimit:      consts.DefaultUnitRateLimit,
		},
		Cache: CacheConfig{Enabled: false},
	}
}

// Load merges viper state over the defaults. Unknown keys are returned so the
// caller can surface them as diagnostics rather than failing the run.
func Load(v *viper.Viper) (*Config, []string) {
	cfg := Default()

	if v.IsSet("scan.max_depth") {
		cfg.Scan.MaxDepth = v.GetInt("scan.max_depth")
	}
	if v.IsSet("scan.exclude_dirs") {
		cfg.Scan.ExcludeDirs = v.GetStringSlice("scan.exclude_dirs")
	}
	if v.IsSet("scan.max_workers") {
		cfg.Scan.MaxWorkers = v.GetInt("scan.max_workers")
	}
	if v.IsSet("scan.timeout_seconds") {
		cfg.Scan.TimeoutSeconds = v.GetInt("scan.timeout_seconds")
	}
	if v.IsSet("scan.rate_limit") {
		cfg.Scan.RateLimit = v.GetInt("scan.rate_limit")
	}
	if v.IsSet("cache.enabled") {
		cfg.Cache.Enabled = v.GetBool("cache.enabled")
	}
	if v.IsSet("cache.dir") {
		cfg.Cache.Dir = v.GetString("cache.dir")
	}
	if v.IsSet("vulnerable_packages") {
		cfg.VulnerablePackages = map[string][]string{}
		for pkg := range v.GetStringMap("vulnerable_packages") {
			cfg.VulnerablePackages[pkg] = v.GetStringSlice("vulnerable_packages." + pkg)
		}
	}

	// Sanity bounds: a zero or negative pool or depth would disable scanning
	// entirely, which is never what a config file means.
	if cfg.Scan.MaxWorkers < 1 {
		cfg.Scan.MaxWorkers = 1
	}
	if cfg.Scan.MaxDepth < 0 {
		cfg.Scan.MaxDepth = 0
	}
	if cfg.Scan.RateLimit < 1 {
		cfg.Scan.RateLimit = consts.DefaultUnitRateLimit
	}

	return cfg, unknownKeys(v)
}

func unknownKeys(v *viper.Viper) []string {
	var unknown []string
	for _, key := range v.AllKeys() {
		if _, ok := recognizedKeys[key]; ok {
			continue
		}
		if strings.HasPrefix(key, "vulnerable_packages.") {
			continue
		}
		unknown = append(unknown, key)
	}
	return unknown
}

// BindFlags wires command-line flags into viper so flag values override file
// values under the same keys.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	bindings := map[string]string{
		"scan.max_depth":   "max-depth",
		"scan.max_workers": "workers",
	}
	for key, flag := range bindings {
		if f := flags.Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}
	return nil
}
