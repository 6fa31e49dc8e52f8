package threatmatch

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"discord-security-bot/internal/models"
)

func newTestMatcher(t testing.TB) *Matcher {
	t.Helper()
	m, err := NewMatcher()
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}
	return m
}

func TestCheckProfanity_ExactMatch(t *testing.T) {
	m := newTestMatcher(t)

	found, words := m.CheckProfanity("what the fuck is this")
	if !found {
		t.Fatal("Expected profanity to be found")
	}
	if len(words) != 1 || words[0] != "fuck" {
		t.Errorf("Expected [fuck], got %v", words)
	}
}

func TestCheckProfanity_Obfuscated(t *testing.T) {
	m := newTestMatcher(t)

	// Separator obfuscation collapses to a listed word
	found, words := m.CheckProfanity("f_u_c_k you")
	if !found {
		t.Fatal("Expected obfuscated profanity to be found")
	}
	if len(words) != 1 || words[0] != "f_u_c_k" {
		t.Errorf("Expected [f_u_c_k], got %v", words)
	}
}

func TestCheckProfanity_DeduplicatesTokens(t *testing.T) {
	m := newTestMatcher(t)

	_, words := m.CheckProfanity("fuck fuck fuck")
	if len(words) != 1 {
		t.Errorf("Expected deduplicated single token, got %v", words)
	}
}

func TestCheckProfanity_Clean(t *testing.T) {
	m := newTestMatcher(t)

	if found, _ := m.CheckProfanity("hello there friend"); found {
		t.Error("Clean content should not flag")
	}
}

func TestCheckCaps(t *testing.T) {
	m := newTestMatcher(t)

	// Short messages never flag
	if flagged, _ := m.CheckCaps("AAAA", 70); flagged {
		t.Error("Short message should not flag caps")
	}

	flagged, pct := m.CheckCaps("AAAAAAAAAA", 70)
	if !flagged || pct != 100 {
		t.Errorf("All-caps should flag at 100%%, got flagged=%v pct=%d", flagged, pct)
	}

	// Exactly at threshold flags (>=)
	flagged, pct = m.CheckCaps("AAAAAAAbbb", 70)
	if !flagged || pct != 70 {
		t.Errorf("70%% caps at threshold 70 should flag, got flagged=%v pct=%d", flagged, pct)
	}

	if flagged, _ = m.CheckCaps("aaaaaaaaaA", 70); flagged {
		t.Error("10%% caps should not flag at threshold 70")
	}

	// No letters at all
	if flagged, _ = m.CheckCaps("1234567890!!", 70); flagged {
		t.Error("Digit-only content should not flag caps")
	}
}

func TestCheckEmoji(t *testing.T) {
	m := newTestMatcher(t)

	// 2 custom + 2 unicode = 4, over limit 3
	flagged, count := m.CheckEmoji("<:pepe:123456> <a:dance:98765> 😀😀", 3)
	if !flagged || count != 4 {
		t.Errorf("Mixed emojis over limit should flag, got flagged=%v count=%d", flagged, count)
	}

	if flagged, _ := m.CheckEmoji("just words", 3); flagged {
		t.Error("No emojis should not flag")
	}

	flagged, count = m.CheckEmoji("😀😀😀😀😀", 4)
	if !flagged || count != 5 {
		t.Errorf("5 unicode emojis over limit 4 should flag, got flagged=%v count=%d", flagged, count)
	}

	flagged, count = m.CheckEmoji("<:a:1><:b:2><:c:3>", 2)
	if !flagged || count != 3 {
		t.Errorf("3 custom emojis over limit 2 should flag, got flagged=%v count=%d", flagged, count)
	}
}

func TestCheckMentions(t *testing.T) {
	m := newTestMatcher(t)

	flagged, count, _ := m.CheckMentions("<@111> <@222> <@&333>", 5)
	if flagged || count != 3 {
		t.Errorf("3 mentions under limit 5: flagged=%v count=%d", flagged, count)
	}

	flagged, count, _ = m.CheckMentions("<@1><@2><@3><@4><@5><@6>", 5)
	if !flagged || count != 6 {
		t.Errorf("6 mentions over limit 5 should flag, got flagged=%v count=%d", flagged, count)
	}

	// Broadcast flags regardless of count
	flagged, _, broadcast := m.CheckMentions("hey @everyone", 5)
	if !flagged || !broadcast {
		t.Errorf("@everyone should flag, got flagged=%v broadcast=%v", flagged, broadcast)
	}
}

func TestCheckMentions_RepeatedMentionCountsOnce(t *testing.T) {
	m := newTestMatcher(t)

	// Six mentions of the same user are one distinct target, not six
	flagged, count, _ := m.CheckMentions(strings.Repeat("<@111> ", 6), 5)
	if flagged || count != 1 {
		t.Errorf("Repeated mention should count once, got flagged=%v count=%d", flagged, count)
	}

	// Nickname form addresses the same user
	_, count, _ = m.CheckMentions("<@111> <@!111> <@222>", 5)
	if count != 2 {
		t.Errorf("Expected 2 distinct users, got %d", count)
	}
}

func TestCheckDuplicate(t *testing.T) {
	m := newTestMatcher(t)

	// Same content repeated; limit 3 means the 4th within the horizon flags
	for i := 0; i < 3; i++ {
		flagged, _ := m.CheckDuplicate("g1", "u1", "buy my stuff", 3, int64(1000+i))
		if flagged {
			t.Errorf("Repeat %d should not flag yet", i+1)
		}
	}
	flagged, count := m.CheckDuplicate("g1", "u1", "buy my stuff", 3, 1003)
	if !flagged || count != 4 {
		t.Errorf("4th repeat should flag, got flagged=%v count=%d", flagged, count)
	}

	// Different content never flags
	if flagged, _ := m.CheckDuplicate("g1", "u1", "something else", 3, 1004); flagged {
		t.Error("Different content should not flag")
	}

	// Old repeats age out of the 60s horizon
	if flagged, _ := m.CheckDuplicate("g1", "u1", "buy my stuff", 3, 1003+duplicateWindowMs+1); flagged {
		t.Error("Expired history should not flag")
	}
}

func TestCheckZalgo(t *testing.T) {
	m := newTestMatcher(t)

	if flagged, _ := m.CheckZalgo("normal text"); flagged {
		t.Error("Plain text should not flag zalgo")
	}

	zalgo := "h̀́̂̃ē̅̆llo"
	flagged, count := m.CheckZalgo(zalgo)
	if !flagged || count != 7 {
		t.Errorf("7 combining marks should flag, got flagged=%v count=%d", flagged, count)
	}

	// At the threshold exactly (5) does not flag, only above
	five := "à́̂̃̄"
	if flagged, _ := m.CheckZalgo(five); flagged {
		t.Error("Exactly 5 combining marks should not flag")
	}
}

func TestCheckSensitive(t *testing.T) {
	m := newTestMatcher(t)

	token := "M" + strings.Repeat("a", 23) + "." + strings.Repeat("b", 6) + "." + strings.Repeat("c", 27)
	if found, kind := m.CheckSensitive("leaked: " + token); !found || kind != "auth token" {
		t.Errorf("Token should be detected, got found=%v kind=%q", found, kind)
	}

	if found, kind := m.CheckSensitive("card 4111 1111 1111 1111 thanks"); !found || kind != "payment card" {
		t.Errorf("Card number should be detected, got found=%v kind=%q", found, kind)
	}

	if found, kind := m.CheckSensitive("login bob@example.com password: hunter2"); !found || kind != "email/password" {
		t.Errorf("Email+password should be detected, got found=%v kind=%q", found, kind)
	}

	// Email without a password keyword is fine
	if found, _ := m.CheckSensitive("mail me at bob@example.com"); found {
		t.Error("Bare email should not be flagged")
	}
}

func TestEvaluate_AggregatesIndependentChecks(t *testing.T) {
	m := newTestMatcher(t)
	p := models.DefaultPolicy("g1")

	// Caps spam and a broadcast mention in one message
	checks := m.Evaluate("g1", "u1", "EVERYONE LOOK @everyone", p, 1000)

	types := make(map[string]int)
	for _, c := range checks {
		types[c.Type] = c.Severity
	}
	if types[models.ViolationCapsSpam] != SeverityCaps {
		t.Errorf("Expected caps check with severity %d, got %v", SeverityCaps, types)
	}
	if types[models.ViolationMentionSpam] != SeverityMention {
		t.Errorf("Expected mention check with severity %d, got %v", SeverityMention, types)
	}
	if MaxSeverity(checks) != SeverityMention {
		t.Errorf("Overall severity should be max (%d), got %d", SeverityMention, MaxSeverity(checks))
	}
	if !strings.Contains(Reasons(checks), "|") {
		t.Errorf("All reasons should be preserved, got %q", Reasons(checks))
	}
}

func TestEvaluate_PolicyToggles(t *testing.T) {
	m := newTestMatcher(t)
	p := models.DefaultPolicy("g1")
	p.CapsFilter = false

	checks := m.Evaluate("g1", "u1", "AAAAAAAAAAAA", p, 1000)
	for _, c := range checks {
		if c.Type == models.ViolationCapsSpam {
			t.Error("Disabled caps filter should not fire")
		}
	}
}

func TestWordList_AddRemove(t *testing.T) {
	m := newTestMatcher(t)

	if !m.AddWord("Newbad") {
		t.Error("Adding a new word should succeed")
	}
	if m.AddWord("newbad") {
		t.Error("Adding a duplicate word should fail")
	}
	if found, _ := m.CheckProfanity("you newbad person"); !found {
		t.Error("Added word should be matched")
	}
	if !m.RemoveWord("newbad") {
		t.Error("Removing an existing word should succeed")
	}
	if m.RemoveWord("newbad") {
		t.Error("Removing an absent word should fail")
	}
}

func TestWordList_ConcurrentScanAndMutate(t *testing.T) {
	m := newTestMatcher(t)
	for i := 0; i < 50; i++ {
		m.AddWord(fmt.Sprintf("badword%d", i))
	}

	// Scans run against an unlocked snapshot, so mutations must never
	// write into a backing array a reader may still hold. Run under
	// -race to catch regressions.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				m.CheckProfanity("badword7 hello badword23")
			}
		}
	}()

	for i := 0; i < 50; i++ {
		m.RemoveWord(fmt.Sprintf("badword%d", i))
		m.AddWord(fmt.Sprintf("badword%d", i))
	}
	close(stop)
	wg.Wait()

	if found, _ := m.CheckProfanity("badword49"); !found {
		t.Error("Re-added word should still match after the churn")
	}
}

func TestPruneHistory(t *testing.T) {
	m := newTestMatcher(t)

	m.CheckDuplicate("g1", "u1", "msg", 3, 1000)
	m.CheckDuplicate("g1", "u2", "msg", 3, 500000)

	removed := m.PruneHistory(1000 + duplicateWindowMs + 1)
	if removed != 1 {
		t.Errorf("Expected 1 history evicted, got %d", removed)
	}
}

func BenchmarkEvaluate(b *testing.B) {
	m, err := NewMatcher()
	if err != nil {
		b.Fatal(err)
	}
	p := models.DefaultPolicy("g1")
	content := "This is a Fairly Normal message with a few words in it"

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		m.Evaluate("g1", "u1", content, p, int64(i))
	}
}
