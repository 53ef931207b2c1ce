package httpclient

import (
	"net/url"
	"strings"

	"github.com/samber/lo"
)

const redacted = "[REDACTED]"

// secretMarkers flag a query parameter as sensitive when any of them occurs
// in its lower-cased name.
var secretMarkers = []string{"token", "secret", "password", "passwd", "api_key", "apikey", "auth", "credential", "signature"}

// RedactURL renders u for logs with credentials removed: userinfo is
// dropped and sensitive query values are replaced.
func RedactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	clean := *u
	clean.User = nil
	if u.RawQuery != "" {
		query := u.Query()
		for _, name := range lo.Filter(lo.Keys(query), func(k string, _ int) bool { return sensitive(k) }) {
			query[name] = []string{redacted}
		}
		clean.RawQuery = query.Encode()
	}
	return clean.String()
}

// RedactRawURL is RedactURL for a string. Unparseable input is dropped
// entirely rather than logged.
func RedactRawURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return redacted
	}
	return RedactURL(u)
}

func sensitive(param string) bool {
	name := strings.ToLower(param)
	return lo.ContainsBy(secretMarkers, func(marker string) bool {
		return strings.Contains(name, marker)
	})
}
