package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/hoangtm-lab/r2s-detect/internal/probe"
	"github.com/hoangtm-lab/r2s-detect/internal/scan"
	"github.com/hoangtm-lab/r2s-detect/internal/validate"
)

var probeCmd = &cobra.Command{
	Use:   "probe <url>",
	Short: "Passively check a deployed URL for React usage indicators",
	Long: `Probe issues a single read-only GET request (no redirects, fixed timeout)
and inspects the response for React runtime markers. It reports a boolean
signal only; no version can be inferred remotely. Loopback, link-local, and
private addresses are rejected, including hostnames that resolve to them.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOut, _ := cmd.Flags().GetBool("json")
		outputPath, _ := cmd.Flags().GetString("output")

		started := time.Now().UTC()

		target, err := validate.ResolveURL(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		prober := probe.New(time.Duration(cfg.Scan.TimeoutSeconds)*time.Second, logger)
		probeResult, err := prober.Probe(cmd.Context(), target)

		var result *scan.Result
		if err != nil {
			// One bounded attempt is the contract; retrying a probe risks
			// amplifying load against a host the caller may not control.
			logger.Warnw("probe failed", "url", target, "error", err)
			result = scan.NewProbeFailure(target, err.Error(), started)
		} else {
			result = scan.NewURLResult(target, probeResult.LikelyReact, started)
			if probeResult.Indicator != "" {
				logger.Debugw("indicator matched", "url", target, "indicator", probeResult.Indicator)
			}
		}
		result.Diagnostics = append(diagnosticsFromWarnings(configWarnings), result.Diagnostics...)

		return emit(result, jsonOut, outputPath)
	},
}

func init() {
	probeCmd.Flags().Bool("json", false, "emit the machine-readable JSON contract")
	probeCmd.Flags().StringP("output", "o", "", "write the full probe result to a file")
}
