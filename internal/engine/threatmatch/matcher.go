package threatmatch

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"

	"discord-security-bot/internal/models"
)

// Severity levels per check type, matching the original moderation system.
const (
	SeverityProfanity   = 8
	SeverityCaps        = 5
	SeverityEmoji       = 6
	SeverityMention     = 9
	SeverityDuplicate   = 7
	SeverityZalgo       = 8
	SeveritySensitive   = 10
	SeverityKeywordLink = 8
)

// Fixed behavior constants
const (
	capsMinLength     = 10    // messages shorter than this never flag caps
	zalgoCharLimit    = 5     // combining marks above this flag zalgo
	duplicateWindowMs = 60000 // duplicate-text rolling history horizon
)

var (
	zalgoPattern   = regexp.MustCompile(`[\x{0300}-\x{036f}\x{0489}]`)
	customEmojiRe  = regexp.MustCompile(`<a?:\w+:\d+>`)
	userMentionRe  = regexp.MustCompile(`<@!?\d+>`)
	roleMentionRe  = regexp.MustCompile(`<@&\d+>`)
	nonAlphaRe     = regexp.MustCompile(`[^a-z]`)

	// Sensitive data patterns: platform auth token, payment-card digit
	// groups, email next to a password keyword.
	tokenPattern = regexp.MustCompile(`[MN][A-Za-z\d]{23}\.[\w-]{6}\.[\w-]{27}`)
	cardPattern  = regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`)
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
)

var passwordKeywords = []string{"password", "şifre", "pass:", "pw:"}

// Check is one fired detection with its reason preserved for logging.
type Check struct {
	Type     string
	Severity int
	Reason   string
}

// dupEntry is one remembered (content, timestamp) pair for a subject.
type dupEntry struct {
	content string
	ts      int64
}

type dupHistory struct {
	mu      sync.Mutex
	entries []dupEntry
}

// Matcher runs the stateless content checks and owns the mutable
// profanity word list plus the duplicate-text rolling history.
// All checks are independent and order-insensitive; callers aggregate
// fired checks and take the maximum severity.
type Matcher struct {
	mu    sync.RWMutex
	words []string

	history sync.Map // "guildID:userID" -> *dupHistory

	keywords []string
}

// NewMatcher builds a matcher seeded with the embedded default lists.
func NewMatcher() (*Matcher, error) {
	seed, err := loadSeed()
	if err != nil {
		return nil, err
	}
	return &Matcher{
		words:    append([]string(nil), seed.Profanity...),
		keywords: append([]string(nil), seed.SuspiciousKeywords...),
	}, nil
}

// CheckProfanity flags exact token matches against the word list and any
// token whose alphabetic-only projection contains a listed word as a
// substring (catches "a_m_k"-style obfuscation). Returns the deduplicated
// matched tokens.
func (m *Matcher) CheckProfanity(content string) (bool, []string) {
	m.mu.RLock()
	words := m.words
	m.mu.RUnlock()

	seen := make(map[string]struct{})
	var found []string

	for _, token := range strings.Fields(strings.ToLower(content)) {
		if _, dup := seen[token]; dup {
			continue
		}

		matched := false
		for _, bad := range words {
			if token == bad {
				matched = true
				break
			}
		}
		if !matched {
			normalized := nonAlphaRe.ReplaceAllString(token, "")
			for _, bad := range words {
				if normalized != "" && strings.Contains(normalized, bad) {
					matched = true
					break
				}
			}
		}
		if matched {
			seen[token] = struct{}{}
			found = append(found, token)
		}
	}

	return len(found) > 0, found
}

// CheckCaps computes uppercase-letters / total-letters. Inputs shorter
// than capsMinLength never flag.
func (m *Matcher) CheckCaps(content string, thresholdPct int) (bool, int) {
	if len(content) < capsMinLength {
		return false, 0
	}

	upper, letters := 0, 0
	for _, r := range content {
		if r >= 'A' && r <= 'Z' {
			upper++
			letters++
		} else if r >= 'a' && r <= 'z' {
			letters++
		}
	}
	if letters == 0 {
		return false, 0
	}

	pct := upper * 100 / letters
	return pct >= thresholdPct, pct
}

// CheckEmoji counts platform inline emoji references plus Unicode emoji
// code points and flags when the total exceeds the limit.
func (m *Matcher) CheckEmoji(content string, limit int) (bool, int) {
	count := len(customEmojiRe.FindAllString(content, -1))
	for _, r := range content {
		if isEmojiRune(r) {
			count++
		}
	}
	return count > limit, count
}

func isEmojiRune(r rune) bool {
	switch {
	case r >= 0x1F600 && r <= 0x1F64F: // emoticons
		return true
	case r >= 0x1F300 && r <= 0x1F5FF: // symbols and pictographs
		return true
	case r >= 0x1F680 && r <= 0x1F6FF: // transport
		return true
	case r >= 0x2600 && r <= 0x26FF: // misc symbols
		return true
	case r >= 0x2700 && r <= 0x27BF: // dingbats
		return true
	}
	return false
}

// CheckMentions counts the distinct users and roles mentioned in the
// content and flags when the count exceeds the limit or a broadcast
// mention is present. Repeating the same mention does not inflate the
// count.
func (m *Matcher) CheckMentions(content string, limit int) (flagged bool, count int, broadcast bool) {
	distinct := make(map[string]struct{})
	for _, tag := range userMentionRe.FindAllString(content, -1) {
		distinct[strings.Replace(tag, "<@!", "<@", 1)] = struct{}{}
	}
	for _, tag := range roleMentionRe.FindAllString(content, -1) {
		distinct[tag] = struct{}{}
	}
	count = len(distinct)
	broadcast = strings.Contains(content, "@everyone") || strings.Contains(content, "@here")
	return count > limit || broadcast, count, broadcast
}

// CheckDuplicate records the content in the subject's rolling history and
// flags when the same content already appeared >= limit times within the
// last 60 seconds. The history is independent of the general sliding
// windows because it also holds content.
func (m *Matcher) CheckDuplicate(guildID, userID, content string, limit int, now int64) (bool, int) {
	key := guildID + ":" + userID
	val, ok := m.history.Load(key)
	if !ok {
		val, _ = m.history.LoadOrStore(key, &dupHistory{})
	}
	h := val.(*dupHistory)

	h.mu.Lock()
	defer h.mu.Unlock()

	recent := h.entries[:0]
	same := 0
	for _, e := range h.entries {
		if now-e.ts < duplicateWindowMs {
			recent = append(recent, e)
			if e.content == content {
				same++
			}
		}
	}
	h.entries = append(recent, dupEntry{content: content, ts: now})

	return same >= limit, same + 1
}

// CheckZalgo counts Unicode combining marks and flags above the fixed
// absolute threshold.
func (m *Matcher) CheckZalgo(content string) (bool, int) {
	count := 0
	for _, r := range content {
		if unicode.Is(unicode.Mn, r) || r == 0x0489 {
			count++
		}
	}
	return count > zalgoCharLimit, count
}

// CheckSensitive scans for leaked credentials. Any match is maximum
// severity regardless of policy toggles.
func (m *Matcher) CheckSensitive(content string) (bool, string) {
	if tokenPattern.MatchString(content) {
		return true, "auth token"
	}
	if cardPattern.MatchString(content) {
		return true, "payment card"
	}
	if emailPattern.MatchString(content) {
		lower := strings.ToLower(content)
		for _, kw := range passwordKeywords {
			if strings.Contains(lower, kw) {
				return true, "email/password"
			}
		}
	}
	return false, ""
}

// CheckKeywords reports the first suspicious scam keyword found in the
// content. Only meaningful combined with a link in the same message.
func (m *Matcher) CheckKeywords(content string) (bool, string) {
	lower := strings.ToLower(content)
	for _, kw := range m.keywords {
		if strings.Contains(lower, kw) {
			return true, kw
		}
	}
	return false, ""
}

// Evaluate runs every policy-enabled content check over one message and
// returns the fired set. The sensitive-data check always runs.
func (m *Matcher) Evaluate(guildID, userID, content string, p *models.GuildPolicy, now int64) []Check {
	var checks []Check

	if p.ProfanityFilter {
		if found, words := m.CheckProfanity(content); found {
			checks = append(checks, Check{
				Type:     models.ViolationProfanity,
				Severity: SeverityProfanity,
				Reason:   "profanity detected: " + strings.Join(words, ", "),
			})
		}
	}
	if p.CapsFilter {
		if flagged, pct := m.CheckCaps(content, p.CapsThreshold); flagged {
			checks = append(checks, Check{
				Type:     models.ViolationCapsSpam,
				Severity: SeverityCaps,
				Reason:   fmt.Sprintf("excessive caps usage: %d%%", pct),
			})
		}
	}
	if p.EmojiSpamLimit > 0 {
		if flagged, count := m.CheckEmoji(content, p.EmojiSpamLimit); flagged {
			checks = append(checks, Check{
				Type:     models.ViolationEmojiSpam,
				Severity: SeverityEmoji,
				Reason:   fmt.Sprintf("excessive emoji usage: %d emojis", count),
			})
		}
	}
	if p.MentionSpamLimit > 0 {
		if flagged, count, broadcast := m.CheckMentions(content, p.MentionSpamLimit); flagged {
			reason := fmt.Sprintf("excessive mentions: %d targets", count)
			if broadcast {
				reason = "broadcast mention (@everyone/@here)"
			}
			checks = append(checks, Check{
				Type:     models.ViolationMentionSpam,
				Severity: SeverityMention,
				Reason:   reason,
			})
		}
	}
	if p.DuplicateMessageLimit > 0 {
		if flagged, count := m.CheckDuplicate(guildID, userID, content, p.DuplicateMessageLimit, now); flagged {
			checks = append(checks, Check{
				Type:     models.ViolationDuplicateSpam,
				Severity: SeverityDuplicate,
				Reason:   fmt.Sprintf("same message sent %d times", count),
			})
		}
	}
	if p.ZalgoFilter {
		if flagged, count := m.CheckZalgo(content); flagged {
			checks = append(checks, Check{
				Type:     models.ViolationZalgoSpam,
				Severity: SeverityZalgo,
				Reason:   fmt.Sprintf("zalgo/unicode spam: %d combining marks", count),
			})
		}
	}

	if found, kind := m.CheckSensitive(content); found {
		checks = append(checks, Check{
			Type:     models.ViolationSensitiveInfo,
			Severity: SeveritySensitive,
			Reason:   "sensitive data detected: " + kind,
		})
	}

	return checks
}

// MaxSeverity returns the highest severity across fired checks, 0 if none.
func MaxSeverity(checks []Check) int {
	max := 0
	for _, c := range checks {
		if c.Severity > max {
			max = c.Severity
		}
	}
	return max
}

// Reasons joins every check reason for logging.
func Reasons(checks []Check) string {
	parts := make([]string, len(checks))
	for i, c := range checks {
		parts[i] = c.Reason
	}
	return strings.Join(parts, " | ")
}

// AddWord adds a word to the profanity list. Returns false if present.
func (m *Matcher) AddWord(word string) bool {
	word = strings.ToLower(word)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.words {
		if w == word {
			return false
		}
	}
	// Readers snapshot m.words and scan it unlocked, so mutations must
	// never touch the backing array a snapshot may still reference.
	next := make([]string, 0, len(m.words)+1)
	next = append(next, m.words...)
	m.words = append(next, word)
	return true
}

// RemoveWord removes a word from the profanity list. Returns false if absent.
func (m *Matcher) RemoveWord(word string) bool {
	word = strings.ToLower(word)
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, w := range m.words {
		if w == word {
			next := make([]string, 0, len(m.words)-1)
			next = append(next, m.words[:i]...)
			next = append(next, m.words[i+1:]...)
			m.words = next
			return true
		}
	}
	return false
}

// Words returns a sorted copy of the profanity list.
func (m *Matcher) Words() []string {
	m.mu.RLock()
	out := append([]string(nil), m.words...)
	m.mu.RUnlock()
	sort.Strings(out)
	return out
}

// PruneHistory drops duplicate-text histories with no recent entries.
func (m *Matcher) PruneHistory(now int64) int {
	removed := 0
	m.history.Range(func(key, val interface{}) bool {
		h := val.(*dupHistory)
		h.mu.Lock()
		live := false
		for _, e := range h.entries {
			if now-e.ts < duplicateWindowMs {
				live = true
				break
			}
		}
		h.mu.Unlock()
		if !live {
			m.history.Delete(key)
			removed++
		}
		return true
	})
	return removed
}
