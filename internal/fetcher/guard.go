package fetcher

import (
	"errors"
	"net"
	"net/url"
)

var errDisallowedAddress = errors.New("disallowed address")

// ValidateURL checks scheme and shape without touching the network, and
// unless allowPrivate is set, rejects literal non-public addresses. It is the
// synchronous check the API layer runs before a scan record exists.
func ValidateURL(rawURL string, allowPrivate bool) error {
	if err := validateShape(rawURL); err != nil {
		return err
	}
	if allowPrivate {
		return nil
	}
	return checkLiteralIP(rawURL)
}

func validateShape(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return newError(KindDisallowedURL, rawURL, "invalid url: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return newError(KindDisallowedURL, rawURL, "scheme %q not supported, use http or https", u.Scheme)
	}
	if u.Hostname() == "" {
		return newError(KindDisallowedURL, rawURL, "missing host")
	}
	return nil
}

func checkLiteralIP(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return newError(KindDisallowedURL, rawURL, "invalid url: %v", err)
	}
	if ip := net.ParseIP(u.Hostname()); ip != nil && isDisallowedIP(ip) {
		return newError(KindDisallowedURL, rawURL, "address %s is not public", ip)
	}
	return nil
}

// isDisallowedIP reports whether the address falls in a range the scanner must
// never contact: loopback, RFC 1918 private, link-local, and unspecified.
func isDisallowedIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified()
}
