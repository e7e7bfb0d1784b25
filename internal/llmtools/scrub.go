package llmtools

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	reAuthHeader   = regexp.MustCompile(`(?i)(authorization\s*:\s*)([^\r\n]+)`)
	reCookieHeader = regexp.MustCompile(`(?i)\b(set-cookie|cookie)\s*:\s*[^\r\n]+`)
	reBearer       = regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._\-+/=]+`)
	reEmbeddedURL  = regexp.MustCompile(`https?://[^\s"'<>]+`)
)

var secretParams = []string{"token", "access_token", "id_token", "api_key", "apikey", "x_api_key", "key", "secret", "password", "auth"}

// scrubValue walks decoded JSON and scrubs every string in it.
func scrubValue(v any) any {
	switch t := v.(type) {
	case string:
		return scrubString(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = scrubValue(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = scrubValue(vv)
		}
		return out
	}
	return v
}

// scrubString redacts credential headers and cleans URLs found in s:
// userinfo, fragments, tracking parameters and secret parameter values.
func scrubString(s string) string {
	s = reAuthHeader.ReplaceAllString(s, "$1[redacted]")
	s = reCookieHeader.ReplaceAllString(s, "$1: [redacted]")
	s = reBearer.ReplaceAllString(s, "Bearer [redacted]")
	if !strings.Contains(s, "://") {
		return s
	}
	return reEmbeddedURL.ReplaceAllStringFunc(s, func(raw string) string {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return raw
		}
		return sanitizeURL(u)
	})
}

func sanitizeURL(u *url.URL) string {
	u.User = nil
	u.Fragment = ""
	u.RawFragment = ""
	u.Host = strings.ToLower(u.Host)
	if u.RawQuery == "" {
		return u.String()
	}
	q := u.Query()
	for key := range q {
		lk := strings.ToLower(key)
		if strings.HasPrefix(lk, "utm_") || lk == "gclid" || lk == "fbclid" {
			q.Del(key)
		}
	}
	for _, key := range secretParams {
		if _, ok := q[key]; ok {
			q.Set(key, "[redacted]")
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
