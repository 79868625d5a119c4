package webhooks

import (
	"net"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// ValidateCallbackURL rejects callback targets that could reach internal
// infrastructure. Only http and https schemes are allowed, and hostnames
// resolving by name or literal to loopback, private, or link-local ranges
// are refused.
func ValidateCallbackURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return errors.Wrap(err, "parse callback url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Errorf("callback url scheme %q not allowed", u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return errors.New("callback url has no host")
	}
	if host == "localhost" ||
		strings.HasSuffix(host, ".localhost") ||
		strings.HasSuffix(host, ".local") ||
		strings.HasSuffix(host, ".internal") {
		return errors.Errorf("callback url host %q not allowed", host)
	}
	if ip := net.ParseIP(host); ip != nil && isForbiddenIP(ip) {
		return errors.Errorf("callback url ip %q not allowed", host)
	}
	return nil
}

func isForbiddenIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
		return true
	}
	if v4 := ip.To4(); v4 != nil {
		switch {
		case v4[0] == 10:
			return true
		case v4[0] == 172 && v4[1] >= 16 && v4[1] <= 31:
			return true
		case v4[0] == 192 && v4[1] == 168:
			return true
		case v4[0] == 169 && v4[1] == 254:
			return true
		}
	}
	return false
}
