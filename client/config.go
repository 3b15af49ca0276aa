package client

import (
	"fmt"
	"maps"
	"strings"
	"time"
)

// Config holds the defaults applied to every dispatched request.
// It is copied when passed to [WithConfig]; changes made to the
// caller's value afterwards are not observed by the [Client].
type Config struct {
	// BaseURL is prepended to request URLs that carry no scheme.
	BaseURL string `json:"baseUrl" mapstructure:"base_url" validate:"omitempty,url"`
	// Headers are sent on every request, lowest precedence.
	Headers map[string]string `json:"headers" mapstructure:"headers"`
	// Authorization is the default Authorization header value.
	Authorization string `json:"authorization" mapstructure:"authorization"`
	// Cache is a fetch-style cache mode translated to Cache-Control.
	Cache string `json:"cache" mapstructure:"cache" validate:"omitempty,oneof=default no-store reload no-cache force-cache only-if-cached"`
	// Revalidate, when positive, requests responses no older than this.
	Revalidate time.Duration `json:"revalidate" mapstructure:"revalidate" validate:"gte=0"`
}

func (c Config) clone() Config {
	c.Headers = maps.Clone(c.Headers)
	return c
}

// resolveURL prepends BaseURL when rawURL has no scheme.
func (c Config) resolveURL(rawURL string) string {
	if c.BaseURL == "" || hasScheme(rawURL) {
		return rawURL
	}

	return c.BaseURL + rawURL
}

// cacheControl maps a cache mode and revalidation hint to a Cache-Control value.
func cacheControl(mode string, revalidate time.Duration) string {
	var directives []string

	switch mode {
	case "no-store":
		directives = append(directives, "no-store")
	case "reload", "no-cache":
		directives = append(directives, "no-cache")
	case "force-cache":
		directives = append(directives, "max-stale")
	case "only-if-cached":
		directives = append(directives, "only-if-cached")
	}

	if revalidate > 0 {
		directives = append(directives, fmt.Sprintf("max-age=%d", int64(revalidate/time.Second)))
	}

	return strings.Join(directives, ", ")
}

// hasScheme reports whether s starts with an RFC 3986 scheme followed by "://".
func hasScheme(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z':
		case '0' <= c && c <= '9' || c == '+' || c == '-' || c == '.':
			if i == 0 {
				return false
			}
		case c == ':':
			return i > 0 && strings.HasPrefix(s[i:], "://")
		default:
			return false
		}
	}

	return false
}
