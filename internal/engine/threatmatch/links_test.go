package threatmatch

import (
	"strings"
	"testing"

	"discord-security-bot/internal/models"
)

func newTestChecker(t testing.TB) *LinkChecker {
	t.Helper()
	l, err := NewLinkChecker()
	if err != nil {
		t.Fatalf("NewLinkChecker: %v", err)
	}
	return l
}

func TestExtractURLs(t *testing.T) {
	urls := ExtractURLs("check https://example.com and http://other.org/x?y=1 out")
	if len(urls) != 2 {
		t.Fatalf("Expected 2 URLs, got %v", urls)
	}
	if urls[0] != "https://example.com" {
		t.Errorf("First URL = %q", urls[0])
	}
}

func TestCheckURL_Blocklist(t *testing.T) {
	l := newTestChecker(t)
	p := models.DefaultPolicy("g1")

	res := l.CheckURL("http://discord-gift.com/free", p)
	if res.Safe {
		t.Fatal("Blocklisted domain should be unsafe")
	}
	if res.Severity != SeverityBlocklist {
		t.Errorf("Severity = %d, want %d", res.Severity, SeverityBlocklist)
	}
	if res.MatchedDomain != "discord-gift.com" {
		t.Errorf("MatchedDomain = %q", res.MatchedDomain)
	}
}

func TestCheckURL_SubdomainOfBlocklisted(t *testing.T) {
	l := newTestChecker(t)
	p := models.DefaultPolicy("g1")

	res := l.CheckURL("http://promo.discord-gift.com/x", p)
	if res.Safe {
		t.Error("Subdomain of blocklisted domain should be unsafe")
	}
}

func TestCheckURL_Phishing(t *testing.T) {
	l := newTestChecker(t)
	p := models.DefaultPolicy("g1")

	res := l.CheckURL("https://get-free.nitro.example.com/free-nitro", p)
	if res.Safe {
		t.Fatal("Phishing-style URL should be unsafe")
	}
	if res.Severity != SeverityPhishing {
		t.Errorf("Severity = %d, want %d", res.Severity, SeverityPhishing)
	}
}

func TestCheckURL_ShortenerPolicyGated(t *testing.T) {
	l := newTestChecker(t)

	p := models.DefaultPolicy("g1")
	p.BlockURLShorteners = true
	res := l.CheckURL("https://bit.ly/abc", p)
	if res.Safe || res.Severity != SeverityShortener {
		t.Errorf("Shortener with blocking on: safe=%v severity=%d", res.Safe, res.Severity)
	}

	p.BlockURLShorteners = false
	res = l.CheckURL("https://bit.ly/abc", p)
	if !res.Safe {
		t.Error("Shortener with blocking off should be safe")
	}
	if len(res.Threats) == 0 {
		t.Error("Shortener threat should still be reported for transparency")
	}
}

func TestCheckURL_InvalidStrictMode(t *testing.T) {
	l := newTestChecker(t)

	p := models.DefaultPolicy("g1")
	res := l.CheckURL("http://%zz%invalid", p)
	if !res.Safe {
		t.Error("Invalid URL should be ignored outside strict mode")
	}

	p.StrictMode = true
	res = l.CheckURL("http://%zz%invalid", p)
	if res.Safe || res.Severity != SeverityInvalidURL {
		t.Errorf("Invalid URL in strict mode: safe=%v severity=%d", res.Safe, res.Severity)
	}
}

func TestCheckURL_CleanURL(t *testing.T) {
	l := newTestChecker(t)
	p := models.DefaultPolicy("g1")

	res := l.CheckURL("https://github.com/golang/go", p)
	if !res.Safe || len(res.Threats) != 0 {
		t.Errorf("Clean URL flagged: %+v", res)
	}
}

func TestCheckContent_KeywordWithLink(t *testing.T) {
	l := newTestChecker(t)
	m := newTestMatcher(t)
	p := models.DefaultPolicy("g1")

	checks := l.CheckContent("free nitro here https://totally-legit.example.com", m, p)
	if len(checks) != 1 {
		t.Fatalf("Expected 1 check, got %v", checks)
	}
	if checks[0].Severity != SeverityKeywordLink {
		t.Errorf("Severity = %d, want %d", checks[0].Severity, SeverityKeywordLink)
	}

	// Keyword without any link is not checked here at all
	checks = l.CheckContent("free nitro for everyone", m, p)
	if len(checks) != 0 {
		t.Errorf("Keyword without link should not fire, got %v", checks)
	}
}

func TestBlocklist_AddRemoveList(t *testing.T) {
	l := newTestChecker(t)
	p := models.DefaultPolicy("g1")

	if !l.AddDomain("Evil.Example.com", "manual report") {
		t.Error("Adding new domain should succeed")
	}
	if l.AddDomain("evil.example.com", "again") {
		t.Error("Adding duplicate domain should fail")
	}

	res := l.CheckURL("https://evil.example.com/x", p)
	if res.Safe {
		t.Error("User-added domain should match")
	}

	var entry *BlockedDomain
	for _, d := range l.Domains() {
		if d.Domain == "evil.example.com" {
			tmp := d
			entry = &tmp
		}
	}
	if entry == nil {
		t.Fatal("Added domain missing from listing")
	}
	if entry.Seeded {
		t.Error("User-added domain must not carry the seeded flag")
	}

	if !l.RemoveDomain("evil.example.com") {
		t.Error("Removing existing domain should succeed")
	}
	if l.RemoveDomain("evil.example.com") {
		t.Error("Removing absent domain should fail")
	}
}

func TestSeedBlocklistMarkedSeeded(t *testing.T) {
	l := newTestChecker(t)

	for _, d := range l.Domains() {
		if !d.Seeded {
			t.Errorf("Seed domain %q should be marked seeded", d.Domain)
		}
		if strings.TrimSpace(d.Domain) == "" {
			t.Error("Empty seed domain")
		}
	}
}
