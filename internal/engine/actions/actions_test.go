package actions

import (
	"errors"
	"testing"
	"time"

	"discord-security-bot/internal/models"

	"github.com/bwmarrin/discordgo"
)

type stubActioner struct {
	fail     bool
	timeouts int
	notifies []string
}

func (a *stubActioner) Timeout(guildID, userID string, d time.Duration, reason string) error {
	a.timeouts++
	if a.fail {
		return errors.New("missing permissions")
	}
	return nil
}
func (a *stubActioner) Kick(guildID, userID, reason string) error      { return nil }
func (a *stubActioner) AssignRole(guildID, userID, roleID string) error { return nil }
func (a *stubActioner) DeleteMessage(channelID, messageID string) error { return nil }
func (a *stubActioner) Notify(channelID string, e *discordgo.MessageEmbed) error {
	a.notifies = append(a.notifies, channelID)
	return nil
}

type stubRecorder struct {
	violations []*models.Violation
	stats      []string
}

func (r *stubRecorder) InsertViolation(v *models.Violation) error {
	r.violations = append(r.violations, v)
	return nil
}
func (r *stubRecorder) IncrementStat(guildID, stat string) error {
	r.stats = append(r.stats, stat)
	return nil
}

type stubAggregates struct {
	offenders int
	daily     int
	cooling   bool
	setCalls  int
}

func (a *stubAggregates) BumpOffender(guildID, userID string) error {
	a.offenders++
	return nil
}
func (a *stubAggregates) BumpDailyViolation(guildID, vtype, day string) error {
	a.daily++
	return nil
}
func (a *stubAggregates) SetNotifyCooldown(guildID, userID string, d time.Duration) error {
	a.setCalls++
	a.cooling = true
	return nil
}
func (a *stubAggregates) CheckNotifyCooldown(guildID, userID string) (time.Duration, bool) {
	if a.cooling {
		return 30 * time.Second, true
	}
	return 0, false
}

func violationTask(kind string) Task {
	return Task{
		Kind:    kind,
		GuildID: "g1",
		UserID:  "u1",
		Violation: &models.Violation{
			GuildID:   "g1",
			UserID:    "u1",
			Type:      models.ViolationSpam,
			Severity:  7,
			Action:    kind,
			Timestamp: time.Now().UnixMilli(),
		},
		Stats: []string{"total_violations"},
	}
}

func TestRecordOnlyKindsPersistWithoutPlatformCall(t *testing.T) {
	act := &stubActioner{}
	rec := &stubRecorder{}
	q := NewQueue(act, rec, nil)

	q.Push(violationTask(models.ActionWarn))
	q.Push(violationTask(models.ActionNone))
	q.Drain()

	if act.timeouts != 0 {
		t.Fatalf("record-only kinds must not hit the platform")
	}
	if len(rec.violations) != 2 {
		t.Fatalf("violations persisted = %d, want 2", len(rec.violations))
	}
}

func TestFailedActionKeepsRecordAsAttempted(t *testing.T) {
	act := &stubActioner{fail: true}
	rec := &stubRecorder{}
	q := NewQueue(act, rec, nil)

	tk := violationTask(models.ActionTimeout)
	tk.Duration = time.Minute
	q.Push(tk)
	q.Drain()

	if len(rec.violations) != 1 {
		t.Fatalf("violations persisted = %d, want 1", len(rec.violations))
	}
	if rec.violations[0].Action != models.ActionAttempted {
		t.Fatalf("action = %q, want %q", rec.violations[0].Action, models.ActionAttempted)
	}
}

func TestAggregatesBumpedPerViolation(t *testing.T) {
	act := &stubActioner{}
	rec := &stubRecorder{}
	agg := &stubAggregates{}
	q := NewQueue(act, rec, nil)
	q.Aggregates = agg

	q.Push(violationTask(models.ActionWarn))
	q.Push(violationTask(models.ActionWarn))
	q.Drain()

	if agg.offenders != 2 || agg.daily != 2 {
		t.Fatalf("offenders = %d, daily = %d, want 2 and 2", agg.offenders, agg.daily)
	}
}

func TestUserNoticesThrottledByCooldown(t *testing.T) {
	act := &stubActioner{}
	rec := &stubRecorder{}
	agg := &stubAggregates{}
	q := NewQueue(act, rec, nil)
	q.Aggregates = agg

	embed := &discordgo.MessageEmbed{Title: "notice"}
	first := violationTask(models.ActionWarn)
	first.NotifyChannel = "c1"
	first.Embed = embed
	second := violationTask(models.ActionWarn)
	second.NotifyChannel = "c1"
	second.Embed = embed

	q.Push(first)
	q.Push(second)
	q.Drain()

	if len(act.notifies) != 1 {
		t.Fatalf("notices sent = %d, want 1 (second suppressed by cooldown)", len(act.notifies))
	}
	// The suppressed task still produced a record.
	if len(rec.violations) != 2 {
		t.Fatalf("violations persisted = %d, want 2", len(rec.violations))
	}
}

func TestLogChannelEntriesBypassCooldown(t *testing.T) {
	act := &stubActioner{}
	rec := &stubRecorder{}
	agg := &stubAggregates{cooling: true}
	q := NewQueue(act, rec, nil)
	q.Aggregates = agg

	// No UserID: a log-channel entry, not a user notice.
	q.Push(Task{
		Kind:          KindRecord,
		GuildID:       "g1",
		NotifyChannel: "log",
		Embed:         &discordgo.MessageEmbed{Title: "log entry"},
	})
	q.Drain()

	if len(act.notifies) != 1 {
		t.Fatalf("log entry suppressed, want it sent")
	}
}
