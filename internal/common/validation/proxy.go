package validation

import (
	"fmt"
	"net/url"
	"strconv"
)

// ValidateProxyURL validates an HTTP/HTTPS/SOCKS5 proxy URL.
// An empty string is valid (proxy is optional). The URL must carry a
// supported scheme, a hostname, and when present a port in 1-65535 and a
// non-empty username.
func ValidateProxyURL(proxyURL string) error {
	if proxyURL == "" {
		return nil // Proxy is optional
	}

	u, err := url.Parse(proxyURL)
	if err != nil {
		return fmt.Errorf("invalid proxy URL format: %w", err)
	}

	// Only schemes net/http and the SOCKS dialer understand
	switch u.Scheme {
	case "http", "https", "socks5":
		// supported
	default:
		return fmt.Errorf("unsupported proxy scheme %q (must be http, https, or socks5)", u.Scheme)
	}

	hostname := u.Hostname()
	if hostname == "" {
		return fmt.Errorf("proxy URL must include hostname")
	}
	if err := ValidateHostname(hostname); err != nil {
		return fmt.Errorf("invalid proxy hostname: %w", err)
	}

	if portStr := u.Port(); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid proxy port: %w", err)
		}
		if err := ValidatePort(port); err != nil {
			return fmt.Errorf("invalid proxy port: %w", err)
		}
	}

	if u.User != nil && u.User.Username() == "" {
		return fmt.Errorf("proxy URL has empty username")
	}

	return nil
}
