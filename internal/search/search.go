// Package search provides web search backends for the SEO agent.
package search

import (
	"context"
	"net/url"
	"strings"
)

// Result is a single search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Source  string `json:"source,omitempty"`
}

// Provider runs a query and returns at most limit results.
type Provider interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
	Name() string
}

// DomainPolicy filters results by host. Denylist wins over Allowlist; an
// empty Allowlist admits every host. Entries match the host and its subdomains.
type DomainPolicy struct {
	Allowlist []string
	Denylist  []string
}

// Allows reports whether rawURL passes the policy.
func (p DomainPolicy) Allows(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range p.Denylist {
		if matchesDomain(host, d) {
			return false
		}
	}
	if len(p.Allowlist) == 0 {
		return true
	}
	for _, a := range p.Allowlist {
		if matchesDomain(host, a) {
			return true
		}
	}
	return false
}

func matchesDomain(host, domain string) bool {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// Filtered applies a DomainPolicy to another provider's results.
type Filtered struct {
	Inner  Provider
	Policy DomainPolicy
}

func (f *Filtered) Name() string { return f.Inner.Name() }

func (f *Filtered) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	res, err := f.Inner.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	out := res[:0]
	for _, r := range res {
		if f.Policy.Allows(r.URL) {
			out = append(out, r)
		}
	}
	return out, nil
}
