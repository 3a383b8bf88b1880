package cmd

import (
	"github.com/fatih/color"

	"github.com/hoangtm-lab/r2s-detect/internal/scan"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
)

func formatStatus(status scan.Status) string {
	switch status {
	case scan.StatusSafe:
		return colorSuccess(string(status))
	case scan.StatusVulnerable:
		return colorError(string(status))
	case scan.StatusInconclusive:
		return colorWarn(string(status))
	default:
		return string(status)
	}
}
