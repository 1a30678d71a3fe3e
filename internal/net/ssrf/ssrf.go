// Package ssrf validates outbound URLs so the web tools cannot be steered at
// loopback, private, or cloud-metadata targets.
package ssrf

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"
)

// BlockedError marks a URL rejected by the SSRF rules, as opposed to one that
// merely failed to resolve.
type BlockedError struct {
	Message string
}

func (e *BlockedError) Error() string { return e.Message }

func blocked(format string, args ...any) *BlockedError {
	return &BlockedError{Message: fmt.Sprintf(format, args...)}
}

// blockedHostnames are always rejected regardless of resolution.
var blockedHostnames = map[string]bool{
	"localhost":                true,
	"metadata.google.internal": true,
}

// blockedSuffixes mark hostnames that name internal or mDNS resources.
var blockedSuffixes = []string{
	".localhost",
	".local",
	".internal",
}

// ValidateURL checks that raw is an http or https URL whose host neither
// names nor resolves to a private address. It is called before every outbound
// fetch issued on behalf of a model.
func ValidateURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return blocked("blocked scheme %q: only http and https are allowed", u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return errors.New("invalid url: missing host")
	}
	return ValidateHost(host)
}

// ValidateHost checks one hostname or IP literal against the blocklist, then
// resolves it and re-checks every address. Resolution failures are returned
// as plain errors, not BlockedError.
func ValidateHost(host string) error {
	host = normalizeHost(host)
	if host == "" {
		return errors.New("invalid host: empty after normalization")
	}

	if blockedHostnames[host] {
		return blocked("blocked hostname %q", host)
	}
	for _, suffix := range blockedSuffixes {
		if strings.HasSuffix(host, suffix) {
			return blocked("blocked hostname %q: internal suffix", host)
		}
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		if isPrivate(addr) {
			return blocked("blocked address %s: private or reserved range", addr)
		}
		return nil
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		return fmt.Errorf("resolve %q: %w", host, err)
	}
	if len(ips) == 0 {
		return fmt.Errorf("resolve %q: no addresses", host)
	}
	for _, ip := range ips {
		addr, ok := netip.AddrFromSlice(ip)
		if !ok {
			return blocked("blocked %q: unparseable resolved address", host)
		}
		if isPrivate(addr.Unmap()) {
			return blocked("blocked %q: resolves to private address %s", host, addr)
		}
	}
	return nil
}

// cgnat is 100.64.0.0/10, carrier-grade NAT space.
var cgnat = netip.MustParsePrefix("100.64.0.0/10")

// isPrivate reports whether addr falls in a range outbound requests must not
// reach: loopback, RFC 1918, link-local, CGNAT, unspecified, ULA.
func isPrivate(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsLoopback() ||
		addr.IsPrivate() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsUnspecified() ||
		(addr.Is4() && cgnat.Contains(addr))
}

// normalizeHost lowercases, trims the FQDN dot, and unwraps IPv6 brackets.
func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.TrimSuffix(host, ".")
	if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		host = host[1 : len(host)-1]
	}
	return host
}
