package threatmatch

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
	"sync"

	"discord-security-bot/internal/models"
)

// URL threat severities, matching the original link filter.
const (
	SeverityBlocklist  = 10
	SeverityPhishing   = 9
	SeverityShortener  = 5
	SeverityInvalidURL = 6
)

var urlPattern = regexp.MustCompile(`(?i)(https?://[^\s]+)`)

// BlockedDomain is one blocklist entry with its origin recorded so
// seeded defaults and user additions can be told apart.
type BlockedDomain struct {
	Domain string `json:"domain"`
	Reason string `json:"reason"`
	Seeded bool   `json:"seeded"`
}

// URLCheck is the per-URL verdict.
type URLCheck struct {
	URL           string
	Domain        string
	Safe          bool
	MatchedDomain string
	Threats       []string
	Severity      int
}

// LinkChecker matches URLs against the domain blocklist, phishing-style
// patterns and the known-shortener list. Stateless apart from the
// mutable blocklist.
type LinkChecker struct {
	mu      sync.RWMutex
	blocked map[string]BlockedDomain

	phishing   []*regexp.Regexp
	shorteners []string
}

// NewLinkChecker builds a checker seeded with the embedded defaults.
func NewLinkChecker() (*LinkChecker, error) {
	seed, err := loadSeed()
	if err != nil {
		return nil, err
	}

	blocked := make(map[string]BlockedDomain, len(seed.BlockedDomains))
	for _, d := range seed.BlockedDomains {
		blocked[d] = BlockedDomain{Domain: d, Reason: "system seed", Seeded: true}
	}

	phishing := make([]*regexp.Regexp, 0, len(seed.PhishingPatterns))
	for _, p := range seed.PhishingPatterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			continue // a bad user-editable pattern must not take the engine down
		}
		phishing = append(phishing, re)
	}

	return &LinkChecker{
		blocked:    blocked,
		phishing:   phishing,
		shorteners: append([]string(nil), seed.URLShorteners...),
	}, nil
}

// ExtractURLs returns every http(s) URL found in the content.
func ExtractURLs(content string) []string {
	return urlPattern.FindAllString(content, -1)
}

// CheckURL evaluates a single URL. Unparseable URLs are flagged only when
// the policy runs in strict mode.
func (l *LinkChecker) CheckURL(raw string, p *models.GuildPolicy) URLCheck {
	result := URLCheck{URL: raw, Safe: true}

	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		if p.StrictMode {
			result.Safe = false
			result.Threats = append(result.Threats, "invalid url format")
			result.Severity = SeverityInvalidURL
		}
		return result
	}
	domain := strings.ToLower(u.Hostname())
	result.Domain = domain

	l.mu.RLock()
	for d := range l.blocked {
		if strings.Contains(domain, d) {
			result.Safe = false
			result.MatchedDomain = d
			result.Threats = append(result.Threats, "blocklisted domain: "+d)
			result.Severity = SeverityBlocklist
			break
		}
	}
	l.mu.RUnlock()

	for _, re := range l.phishing {
		if re.MatchString(raw) {
			result.Safe = false
			result.Threats = append(result.Threats, "phishing pattern detected")
			if result.Severity < SeverityPhishing {
				result.Severity = SeverityPhishing
			}
			break
		}
	}

	if l.isShortener(domain) {
		result.Threats = append(result.Threats, "url shortener detected")
		if p.BlockURLShorteners {
			result.Safe = false
			if result.Severity < SeverityShortener {
				result.Severity = SeverityShortener
			}
		}
	}

	return result
}

func (l *LinkChecker) isShortener(domain string) bool {
	for _, s := range l.shorteners {
		if strings.Contains(domain, s) {
			return true
		}
	}
	return false
}

// CheckContent extracts URLs from a message and turns unsafe links (plus
// the scam-keyword-with-link combination) into fired checks.
func (l *LinkChecker) CheckContent(content string, keywords *Matcher, p *models.GuildPolicy) []Check {
	urls := ExtractURLs(content)
	if len(urls) == 0 {
		return nil
	}

	var checks []Check
	unsafe := false
	for _, raw := range urls {
		res := l.CheckURL(raw, p)
		if res.Safe {
			continue
		}
		unsafe = true
		checks = append(checks, Check{
			Type:     models.ViolationScamLink,
			Severity: res.Severity,
			Reason:   strings.Join(res.Threats, ", "),
		})
	}

	// A scam keyword alone is noise; combined with any link it flags.
	if !unsafe && keywords != nil {
		if found, kw := keywords.CheckKeywords(content); found {
			checks = append(checks, Check{
				Type:     models.ViolationScamLink,
				Severity: SeverityKeywordLink,
				Reason:   "suspicious keyword with link: \"" + kw + "\"",
			})
		}
	}

	return checks
}

// AddDomain adds a user-supplied domain to the blocklist.
// Returns false if the domain is already listed.
func (l *LinkChecker) AddDomain(domain, reason string) bool {
	domain = strings.ToLower(domain)
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.blocked[domain]; ok {
		return false
	}
	l.blocked[domain] = BlockedDomain{Domain: domain, Reason: reason}
	return true
}

// RemoveDomain removes a domain from the blocklist.
func (l *LinkChecker) RemoveDomain(domain string) bool {
	domain = strings.ToLower(domain)
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.blocked[domain]; !ok {
		return false
	}
	delete(l.blocked, domain)
	return true
}

// Domains returns the blocklist sorted by domain.
func (l *LinkChecker) Domains() []BlockedDomain {
	l.mu.RLock()
	out := make([]BlockedDomain, 0, len(l.blocked))
	for _, d := range l.blocked {
		out = append(out, d)
	}
	l.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	return out
}
