// Package probe implements the passive URL check: one bounded GET, no
// redirects, and marker inspection only. It never infers a version and never
// sends anything beyond an ordinary request.
package probe

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	consts "github.com/hoangtm-lab/r2s-detect/internal/shared/constants"
	"github.com/hoangtm-lab/r2s-detect/internal/validate"
)

// Result is the outcome of one completed probe. The boolean is the whole
// signal: an indicator match prompts manual inspection, nothing more.
type Result struct {
	URL         string    `json:"url"`
	LikelyReact bool      `json:"likely_react"`
	Indicator   string    `json:"indicator,omitempty"`
	HTTPStatus  int       `json:"http_status"`
	CheckedAt   time.Time `json:"checked_at"`
}

// Prober issues passive GET requests against already-validated URLs.
type Prober struct {
	Timeout   time.Duration
	UserAgent string
	Logger    *zap.SugaredLogger

	// allowLocal disables the dial-time address guard. Tests that probe a
	// loopback listener set it; production paths never do.
	allowLocal bool
}

func New(timeout time.Duration, logger *zap.SugaredLogger) *Prober {
	if timeout <= 0 {
		timeout = consts.DefaultProbeTimeout
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Prober{Timeout: timeout, Logger: logger}
}

// bodyMarkers are checked first, case-insensitively, against a bounded body
// prefix.
var bodyMarkers = []string{
	"data-reactroot",
	"__react",
	"react-dom",
	"_next/static",
	"self.__next_f",
	"react",
}

// frameworkHeaders reveal server-side React frameworks without touching the
// body.
var frameworkHeaders = []string{"Server", "X-Powered-By"}

// Probe issues exactly one GET with a fixed deadline and redirect following
// disabled. A redirect target is never re-validated, so following it would
// reopen the SSRF hole URL validation just closed; the 3xx response itself is
// still inspected. Connection errors and timeouts are returned as errors for
// the caller to map to an inconclusive result.
func (p *Prober) Probe(ctx context.Context, target string) (*Result, error) {
	result := &Result{URL: target, CheckedAt: time.Now().UTC()}

	dialer := &net.Dialer{Timeout: p.Timeout}
	if !p.allowLocal {
		// Re-checks the address actually dialed, closing the DNS-rebinding
		// window between validation and request.
		dialer.Control = validate.GuardAddr
	}

	client := &http.Client{
		Timeout: p.Timeout,
		Transport: &http.Transport{
			DialContext: dialer.DialContext,
		},
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", target, err)
	}
	defer resp.Body.Close()

	result.HTTPStatus = resp.StatusCode

	body, err := io.ReadAll(io.LimitReader(resp.Body, consts.ProbeBodyLimitBytes))
	if err != nil {
		// A partial body is still worth inspecting.
		p.Logger.Debugw("partial body read", "url", target, "error", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	if marker, ok := findBodyMarker(body); ok {
		result.LikelyReact = true
		result.Indicator = "body:" + marker
		return result, nil
	}
	if ct := resp.Header.Get("Content-Type"); strings.Contains(strings.ToLower(ct), "react") {
		result.LikelyReact = true
		result.Indicator = "content-type"
		return result, nil
	}
	for _, h := range frameworkHeaders {
		v := strings.ToLower(resp.Header.Get(h))
		if strings.Contains(v, "react") || strings.Contains(v, "next.js") {
			result.LikelyReact = true
			result.Indicator = "header:" + h
			return result, nil
		}
	}

	return result, nil
}

func (p *Prober) userAgent() string {
	if p.UserAgent != "" {
		return p.UserAgent
	}
	// Identifies the tool honestly; passive checks do not impersonate
	// browsers.
	return "r2s-detect/1.0 (+passive dependency check)"
}

func findBodyMarker(body []byte) (string, bool) {
	lower := strings.ToLower(string(body))
	for _, marker := range bodyMarkers {
		if strings.Contains(lower, marker) {
			return marker, true
		}
	}
	return "", false
}
