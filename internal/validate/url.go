package validate

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"
	"syscall"

	errs "github.com/hoangtm-lab/r2s-detect/internal/shared/errors"
)

// ResolveURL validates a raw URL for passive probing. The scheme must be
// http or https, and the hostname must not resolve to a loopback, link-local,
// or private (RFC1918/RFC4193) address. The check runs against every resolved
// address rather than the literal hostname so a DNS name pointing at an
// internal range is caught before any request is made.
//
// A hostname that cannot be resolved at all still passes validation; the
// probe will surface the DNS failure as a network error, which callers map to
// an inconclusive result.
func ResolveURL(ctx context.Context, raw string) (string, error) {
	raw = strings.TrimSpace(raw)

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q", errs.ErrInvalidScheme, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: %q", errs.ErrInvalidScheme, u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("%w: missing host in %q", errs.ErrInvalidScheme, raw)
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		if isForbiddenAddr(addr) {
			return "", fmt.Errorf("%w: %s", errs.ErrLocalOrPrivateAddress, host)
		}
		return u.String(), nil
	}

	addrs, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		// Unresolvable now; let the probe report it.
		return u.String(), nil
	}
	for _, addr := range addrs {
		if isForbiddenAddr(addr) {
			return "", fmt.Errorf("%w: %s resolves to %s", errs.ErrLocalOrPrivateAddress, host, addr)
		}
	}

	return u.String(), nil
}

func isForbiddenAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsLoopback() ||
		addr.IsPrivate() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsUnspecified()
}

// GuardAddr is a net.Dialer Control hook that re-checks the address actually
// being dialed. It closes the DNS-rebinding window between URL validation and
// the probe's own lookup.
func GuardAddr(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		host = address
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("parse dialed address %q: %w", address, err)
	}
	if isForbiddenAddr(addr) {
		return fmt.Errorf("%w: %s", errs.ErrLocalOrPrivateAddress, addr)
	}
	return nil
}
