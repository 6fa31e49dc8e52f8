// Package engine is the detection core: it turns inbound platform
// events into verdicts and queues enforcement tasks. All handlers are
// safe for concurrent use and never block on I/O; persistence and
// platform calls happen on the action queue's worker.
package engine

import (
	"sync"
	"time"

	"discord-security-bot/internal/engine/actions"
	"discord-security-bot/internal/engine/escalation"
	"discord-security-bot/internal/engine/policy"
	"discord-security-bot/internal/engine/raid"
	"discord-security-bot/internal/engine/suspicion"
	"discord-security-bot/internal/engine/threatmatch"
	"discord-security-bot/internal/engine/window"
	"discord-security-bot/internal/metrics"
	"discord-security-bot/internal/models"
	"discord-security-bot/internal/utils"

	"go.uber.org/zap"
)

const (
	hourMs        = int64(3600000)
	burstWindowMs = int64(60000)

	// Content at or above this severity gets a fixed timeout on top of
	// the message deletion.
	severeContentFloor = 9
	severeTimeoutMs    = int64(300000)

	// Scam links at or above this severity trigger the scam timeout
	// when the policy enables it.
	scamTimeoutFloor = 8

	// All joiners share one window per guild.
	joinSubject = "all"
)

// MessageEvent is a created or edited message.
type MessageEvent struct {
	GuildID   string
	ChannelID string
	MessageID string
	UserID    string
	Content   string
	Timestamp int64 // unix ms
}

// JoinEvent is a member arriving in a guild.
type JoinEvent struct {
	GuildID          string
	UserID           string
	Username         string
	AccountCreatedAt time.Time
	HasAvatar        bool
	Timestamp        int64 // unix ms
}

// VoiceEvent is one moderation-relevant voice action performed by an
// executor against a target (disconnect, server mute, move).
type VoiceEvent struct {
	GuildID    string
	ExecutorID string
	TargetID   string
	Action     string
	Timestamp  int64 // unix ms
}

// MessageVerdict summarises what the engine decided about a message.
type MessageVerdict struct {
	Violation *models.Violation // nil when clean
	Deleted   bool
	Action    string // models.ActionNone when nothing beyond deletion
}

// JoinVerdict summarises what the engine decided about a joiner.
type JoinVerdict struct {
	Score             int
	Reasons           []string
	RaidTriggered     bool // this join pushed the guild into raid mode
	Action            string
	NeedsVerification bool
}

// VoiceVerdict summarises what the engine decided about a voice action.
type VoiceVerdict struct {
	Violation *models.Violation // nil when within limits
	Action    string
}

type suspect struct {
	score     int
	reasons   []string
	flaggedAt int64
}

// Engine wires the detection components together. Fields are exported
// so the command layer can reach list management directly.
type Engine struct {
	Windows    *window.Tracker
	Matcher    *threatmatch.Matcher
	Links      *threatmatch.LinkChecker
	Escalation *escalation.Machine
	Raid       *raid.Controller
	Policies   *policy.Store
	Queue      *actions.Queue

	// IsPrivileged reports whether the subject holds moderation
	// permissions in the guild. Privileged subjects are observed but
	// never punished. Nil means nobody is privileged.
	IsPrivileged func(guildID, userID string) bool

	logger     *zap.Logger
	suspicious sync.Map // "guildID:userID" -> *suspect

	sweepStop chan struct{}
	sweepOnce sync.Once
}

// New assembles an engine and hooks the raid controller's transition
// callbacks into notification and window reset.
func New(policies *policy.Store, queue *actions.Queue, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	matcher, err := threatmatch.NewMatcher()
	if err != nil {
		return nil, err
	}
	links, err := threatmatch.NewLinkChecker()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		Windows:    window.NewTracker(),
		Matcher:    matcher,
		Links:      links,
		Escalation: escalation.NewMachine(),
		Raid:       raid.NewController(),
		Policies:   policies,
		Queue:      queue,
		logger:     logger,
		sweepStop:  make(chan struct{}),
	}

	e.Raid.OnEnable = func(guildID, trigger string, durationMs int64) {
		metrics.RaidActivations.WithLabelValues(trigger).Inc()
		metrics.ActiveRaidModes.Inc()
		e.logger.Warn("raid mode enabled",
			zap.String("guild_id", guildID),
			zap.String("trigger", trigger),
			zap.Int64("duration_ms", durationMs))
		p := e.Policies.Get(guildID)
		if p.LogChannel != "" {
			e.Queue.Push(actions.Task{
				Kind:          actions.KindRecord,
				GuildID:       guildID,
				NotifyChannel: p.LogChannel,
				Embed:         utils.RaidModeEmbed(true, trigger, p.RaidModeAction, durationMs),
			})
		}
	}
	e.Raid.OnExit = func(guildID, trigger string) {
		metrics.ActiveRaidModes.Dec()
		// Fresh start: stale joins must not re-trigger raid mode.
		e.Windows.ResetCategory(guildID, models.CategoryJoin)
		e.logger.Info("raid mode disabled",
			zap.String("guild_id", guildID),
			zap.String("trigger", trigger))
		p := e.Policies.Get(guildID)
		if p.LogChannel != "" {
			e.Queue.Push(actions.Task{
				Kind:          actions.KindRecord,
				GuildID:       guildID,
				NotifyChannel: p.LogChannel,
				Embed:         utils.RaidModeEmbed(false, trigger, p.RaidModeAction, 0),
			})
		}
	}

	return e, nil
}

func (e *Engine) privileged(guildID, userID string) bool {
	return e.IsPrivileged != nil && e.IsPrivileged(guildID, userID)
}

func subjectKey(guildID, userID string) string {
	return guildID + ":" + userID
}

// HandleMessage runs the spam window, content checks and link checks
// against one message and queues whatever enforcement falls out.
func (e *Engine) HandleMessage(ev MessageEvent) MessageVerdict {
	start := time.Now()
	defer func() { metrics.DetectionDuration.Observe(time.Since(start).Seconds()) }()
	metrics.EventsProcessed.WithLabelValues(models.CategoryMessage).Inc()

	p := e.Policies.Get(ev.GuildID)
	if !p.Enabled || p.IsWhitelisted(ev.UserID) {
		return MessageVerdict{Action: models.ActionNone}
	}

	count := e.Windows.Record(ev.GuildID, ev.UserID, models.CategoryMessage, ev.Timestamp, p.SpamWindowMs)
	if p.SpamThreshold > 0 && count >= p.SpamThreshold {
		// One violation per burst: the window restarts so the next
		// message starts a fresh count instead of re-triggering.
		e.Windows.Reset(ev.GuildID, ev.UserID, models.CategoryMessage)
		v, tier := e.escalate(ev.GuildID, ev.UserID, ev.ChannelID,
			models.ViolationSpam, "message rate limit exceeded", ev.Content, 7, p, ev.Timestamp)
		return MessageVerdict{Violation: v, Action: tier.Action}
	}

	var checks []threatmatch.Check
	if p.AutomodEnabled {
		checks = e.Matcher.Evaluate(ev.GuildID, ev.UserID, ev.Content, p, ev.Timestamp)
	}
	if p.LinkFilterEnabled {
		checks = append(checks, e.Links.CheckContent(ev.Content, e.Matcher, p)...)
	}
	if len(checks) == 0 {
		return MessageVerdict{Action: models.ActionNone}
	}

	severity := threatmatch.MaxSeverity(checks)
	reasons := threatmatch.Reasons(checks)
	vtype, scam := dominantType(checks)
	metrics.ViolationsDetected.WithLabelValues(vtype).Inc()

	if e.privileged(ev.GuildID, ev.UserID) {
		e.logger.Info("enforcement skipped for privileged subject",
			zap.String("guild_id", ev.GuildID),
			zap.String("user_id", ev.UserID),
			zap.String("type", vtype))
		return MessageVerdict{Action: models.ActionNone}
	}

	v := &models.Violation{
		GuildID:   ev.GuildID,
		UserID:    ev.UserID,
		Type:      vtype,
		Severity:  severity,
		Reason:    reasons,
		Action:    models.ActionDelete,
		Evidence:  utils.Truncate(ev.Content, 200),
		Timestamp: ev.Timestamp,
	}

	action := models.ActionDelete
	var timeoutMs int64
	switch {
	case severity >= severeContentFloor:
		action = models.ActionTimeout
		timeoutMs = severeTimeoutMs
	case scam && severity >= scamTimeoutFloor && p.AutoTimeoutScam:
		action = models.ActionTimeout
		timeoutMs = p.ScamTimeoutMs
	}
	v.Action = action

	stats := []string{"total_violations", "automod_triggers"}
	if scam {
		stats = append(stats, "scam_blocked")
	}
	if action == models.ActionTimeout {
		stats = append(stats, "timeouts_issued")
	}

	embed := utils.AutomodWarningEmbed(ev.UserID, vtype, severity, reasons)
	if scam {
		embed = utils.LinkBlockedEmbed(ev.UserID, reasons, severity)
	}

	e.Queue.Push(actions.Task{
		Kind:      models.ActionDelete,
		GuildID:   ev.GuildID,
		UserID:    ev.UserID,
		ChannelID: ev.ChannelID,
		MessageID: ev.MessageID,
		Reason:    reasons,
	})
	e.Queue.Push(actions.Task{
		Kind:          action,
		GuildID:       ev.GuildID,
		UserID:        ev.UserID,
		ChannelID:     ev.ChannelID,
		Duration:      time.Duration(timeoutMs) * time.Millisecond,
		Reason:        reasons,
		NotifyChannel: ev.ChannelID,
		Embed:         embed,
		Violation:     v,
		Stats:         stats,
	})
	metrics.ActionsExecuted.WithLabelValues(action).Inc()
	e.notifyLog(p, v, 0, "")

	return MessageVerdict{Violation: v, Deleted: true, Action: action}
}

// dominantType picks the violation type of the highest-severity check
// and reports whether any check was a scam link.
func dominantType(checks []threatmatch.Check) (string, bool) {
	vtype := checks[0].Type
	best := checks[0].Severity
	scam := false
	for _, c := range checks {
		if c.Type == models.ViolationScamLink {
			scam = true
		}
		if c.Severity > best {
			best = c.Severity
			vtype = c.Type
		}
	}
	return vtype, scam
}

// HandleJoin scores a joiner, manages automatic raid mode and queues
// the kick or quarantine the score demands.
func (e *Engine) HandleJoin(ev JoinEvent) JoinVerdict {
	start := time.Now()
	defer func() { metrics.DetectionDuration.Observe(time.Since(start).Seconds()) }()
	metrics.EventsProcessed.WithLabelValues(models.CategoryJoin).Inc()

	p := e.Policies.Get(ev.GuildID)
	if !p.Enabled {
		return JoinVerdict{Action: models.ActionNone}
	}

	// Every joiner gets the welcome prompt in the verification channel
	// when one is configured, regardless of how the join scores.
	if p.VerificationEnabled && p.VerificationChannel != "" {
		e.Queue.Push(actions.Task{
			Kind:          actions.KindRecord,
			GuildID:       ev.GuildID,
			NotifyChannel: p.VerificationChannel,
			Embed:         utils.VerificationWelcomeEmbed(ev.UserID, p.RulesChannel),
		})
	}

	if !p.AntiRaidEnabled {
		return JoinVerdict{Action: models.ActionNone}
	}

	// Joins are retained for an hour so the stats snapshot can report
	// longer horizons; the burst signal reads the trailing minute.
	e.Windows.Record(ev.GuildID, joinSubject, models.CategoryJoin, ev.Timestamp, hourMs)
	burst := e.Windows.Count(ev.GuildID, joinSubject, models.CategoryJoin, ev.Timestamp, burstWindowMs)

	res := suspicion.Evaluate(suspicion.Input{
		AccountCreatedAt: ev.AccountCreatedAt,
		HasAvatar:        ev.HasAvatar,
		Username:         ev.Username,
		Now:              time.UnixMilli(ev.Timestamp),
	}, burst, p.MinAccountAgeDays, p.JoinThreshold)

	verdict := JoinVerdict{Score: res.Score, Reasons: res.Reasons, Action: models.ActionNone}

	if res.JoinBurst && !e.Raid.Active(ev.GuildID) {
		verdict.RaidTriggered = e.Raid.Enable(ev.GuildID, models.TriggerAuto, p.RaidModeDurationMs)
	}
	raidActive := e.Raid.Active(ev.GuildID)

	if p.IsWhitelisted(ev.UserID) || e.privileged(ev.GuildID, ev.UserID) {
		return verdict
	}

	switch {
	case res.Score >= 7 && p.AutoKickSuspicious:
		verdict.Action = models.ActionKick
	case res.Score >= 5 && p.QuarantineRole != "":
		verdict.Action = models.ActionQuarantine
	}

	// While raid mode is active the configured raid action covers every
	// join at or above its floor. The stronger of the two outcomes wins,
	// so a score that only earns quarantine is still kicked under a
	// kick-on-raid policy.
	if raidActive && res.Score >= raid.RaidSuspicionFloor {
		raidAction := p.RaidModeAction
		if raidAction == models.RaidActionQuarantine && p.QuarantineRole == "" {
			raidAction = models.ActionNone
		}
		if actionRank(raidAction) > actionRank(verdict.Action) {
			verdict.Action = raidAction
		}
	}

	if res.Score >= p.SuspicionThreshold {
		e.suspicious.Store(subjectKey(ev.GuildID, ev.UserID), &suspect{
			score:     res.Score,
			reasons:   res.Reasons,
			flaggedAt: ev.Timestamp,
		})
		metrics.ViolationsDetected.WithLabelValues(models.ViolationSuspiciousJoin).Inc()

		v := &models.Violation{
			GuildID:   ev.GuildID,
			UserID:    ev.UserID,
			Type:      models.ViolationSuspiciousJoin,
			Severity:  res.Capped(),
			Reason:    joinReasons(res.Reasons),
			Action:    verdict.Action,
			Timestamp: ev.Timestamp,
		}
		stats := []string{"total_violations"}
		if verdict.Action == models.ActionKick {
			stats = append(stats, "kicks_issued")
		}
		e.Queue.Push(actions.Task{
			Kind:      verdict.Action,
			GuildID:   ev.GuildID,
			UserID:    ev.UserID,
			RoleID:    p.QuarantineRole,
			Reason:    joinReasons(res.Reasons),
			Violation: v,
			Stats:     stats,
		})
		if verdict.Action != models.ActionNone {
			metrics.ActionsExecuted.WithLabelValues(verdict.Action).Inc()
		}
		if p.LogChannel != "" {
			ageDays := int(time.UnixMilli(ev.Timestamp).Sub(ev.AccountCreatedAt).Hours() / 24)
			e.Queue.Push(actions.Task{
				Kind:          actions.KindRecord,
				GuildID:       ev.GuildID,
				NotifyChannel: p.LogChannel,
				Embed:         utils.SuspiciousUserEmbed(ev.UserID, res.Capped(), ageDays, res.Reasons),
			})
		}
	} else if verdict.Action != models.ActionNone {
		// Raid-mode action on a below-threshold score still executes
		// and is still recorded.
		v := &models.Violation{
			GuildID:   ev.GuildID,
			UserID:    ev.UserID,
			Type:      models.ViolationSuspiciousJoin,
			Severity:  res.Capped(),
			Reason:    "joined during raid mode: " + joinReasons(res.Reasons),
			Action:    verdict.Action,
			Timestamp: ev.Timestamp,
		}
		stats := []string{"total_violations"}
		if verdict.Action == models.ActionKick {
			stats = append(stats, "kicks_issued")
		}
		e.Queue.Push(actions.Task{
			Kind:      verdict.Action,
			GuildID:   ev.GuildID,
			UserID:    ev.UserID,
			RoleID:    p.QuarantineRole,
			Reason:    v.Reason,
			Violation: v,
			Stats:     stats,
		})
		metrics.ActionsExecuted.WithLabelValues(verdict.Action).Inc()
	}

	verdict.NeedsVerification = p.VerificationEnabled && verdict.Action == models.ActionNone &&
		(raidActive || res.Score >= p.SuspicionThreshold)
	return verdict
}

// actionRank orders join outcomes by severity so the raid-mode action
// never downgrades what the standalone tiers already decided.
func actionRank(action string) int {
	switch action {
	case models.ActionKick:
		return 2
	case models.ActionQuarantine:
		return 1
	}
	return 0
}

func joinReasons(reasons []string) string {
	if len(reasons) == 0 {
		return "suspicious join"
	}
	out := reasons[0]
	for _, r := range reasons[1:] {
		out += " | " + r
	}
	return out
}

// HandleVoice rate-limits a moderation executor's voice actions and
// escalates when the executor exceeds the policy's limit.
func (e *Engine) HandleVoice(ev VoiceEvent) VoiceVerdict {
	start := time.Now()
	defer func() { metrics.DetectionDuration.Observe(time.Since(start).Seconds()) }()
	metrics.EventsProcessed.WithLabelValues(models.CategoryVoice).Inc()

	p := e.Policies.Get(ev.GuildID)
	if !p.Enabled || p.IsWhitelisted(ev.ExecutorID) {
		return VoiceVerdict{Action: models.ActionNone}
	}

	count := e.Windows.Record(ev.GuildID, ev.ExecutorID, models.CategoryVoice, ev.Timestamp, p.VoiceWindowMs)
	if p.VoiceThreshold <= 0 || count < p.VoiceThreshold {
		return VoiceVerdict{Action: models.ActionNone}
	}
	e.Windows.Reset(ev.GuildID, ev.ExecutorID, models.CategoryVoice)

	v, tier := e.escalate(ev.GuildID, ev.ExecutorID, "",
		models.ViolationVoiceAbuse, "voice action rate limit exceeded ("+ev.Action+")", "", 7, p, ev.Timestamp)
	return VoiceVerdict{Violation: v, Action: tier.Action}
}

// escalate runs the penalty ladder for a repeat-offense violation type
// and queues the resulting tier action.
func (e *Engine) escalate(guildID, userID, channelID, vtype, reason, evidence string, severity int, p *models.GuildPolicy, now int64) (*models.Violation, escalation.Tier) {
	metrics.ViolationsDetected.WithLabelValues(vtype).Inc()

	if e.privileged(guildID, userID) {
		e.logger.Info("enforcement skipped for privileged subject",
			zap.String("guild_id", guildID),
			zap.String("user_id", userID),
			zap.String("type", vtype))
		return nil, escalation.Tier{Action: models.ActionNone}
	}

	ladder := escalation.DefaultLadder(p)
	n, tier := e.Escalation.Record(guildID, userID, ladder, now, p.ResetAfterMs)

	v := &models.Violation{
		GuildID:   guildID,
		UserID:    userID,
		Type:      vtype,
		Severity:  severity,
		Reason:    reason,
		Action:    tier.Action,
		Evidence:  utils.Truncate(evidence, 200),
		Timestamp: now,
	}

	stats := []string{"total_violations"}
	switch vtype {
	case models.ViolationSpam:
		stats = append(stats, "spam_detected")
	case models.ViolationVoiceAbuse:
		stats = append(stats, "voice_abuse_detected")
	}
	switch tier.Action {
	case models.ActionTimeout:
		stats = append(stats, "timeouts_issued")
	case models.ActionKick:
		stats = append(stats, "kicks_issued")
	}

	e.Queue.Push(actions.Task{
		Kind:      tier.Action,
		GuildID:   guildID,
		UserID:    userID,
		ChannelID: channelID,
		Duration:  time.Duration(tier.DurationMs) * time.Millisecond,
		Reason:    reason,
		Violation: v,
		Stats:     stats,
	})
	metrics.ActionsExecuted.WithLabelValues(tier.Action).Inc()
	e.notifyLog(p, v, n, tier.Label)
	return v, tier
}

func (e *Engine) notifyLog(p *models.GuildPolicy, v *models.Violation, count int, label string) {
	if p.LogChannel == "" {
		return
	}
	e.Queue.Push(actions.Task{
		Kind:          actions.KindRecord,
		GuildID:       v.GuildID,
		NotifyChannel: p.LogChannel,
		Embed:         utils.ViolationLogEmbed(v, count, label),
	})
}

// EnableRaidMode activates raid mode manually. Duration 0 keeps it on
// until disabled.
func (e *Engine) EnableRaidMode(guildID string, durationMs int64) bool {
	return e.Raid.Enable(guildID, models.TriggerManual, durationMs)
}

// DisableRaidMode ends raid mode manually.
func (e *Engine) DisableRaidMode(guildID string) bool {
	return e.Raid.Disable(guildID, models.TriggerManual)
}

// RaidStatus snapshots the guild's raid state.
func (e *Engine) RaidStatus(guildID string) raid.Status {
	return e.Raid.Status(guildID)
}

// JoinStats reports trailing join counts at the standard horizons.
func (e *Engine) JoinStats(guildID string, now int64) models.JoinStats {
	return models.JoinStats{
		LastMinute: e.Windows.Count(guildID, joinSubject, models.CategoryJoin, now, burstWindowMs),
		Last5Min:   e.Windows.Count(guildID, joinSubject, models.CategoryJoin, now, 5*burstWindowMs),
		LastHour:   e.Windows.Count(guildID, joinSubject, models.CategoryJoin, now, hourMs),
	}
}

// SuspiciousSubject is one flagged joiner as shown to moderators.
type SuspiciousSubject struct {
	UserID    string   `json:"user_id"`
	Score     int      `json:"score"`
	Reasons   []string `json:"reasons"`
	FlaggedAt int64    `json:"flagged_at"`
}

// SuspiciousSubjects lists the guild's currently flagged joiners.
func (e *Engine) SuspiciousSubjects(guildID string) []SuspiciousSubject {
	prefix := guildID + ":"
	var out []SuspiciousSubject
	e.suspicious.Range(func(k, val interface{}) bool {
		key := k.(string)
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			s := val.(*suspect)
			out = append(out, SuspiciousSubject{
				UserID:    key[len(prefix):],
				Score:     s.score,
				Reasons:   s.reasons,
				FlaggedAt: s.flaggedAt,
			})
		}
		return true
	})
	return out
}

// ClearSuspicious removes a subject from the flagged set, typically
// after manual verification.
func (e *Engine) ClearSuspicious(guildID, userID string) bool {
	_, ok := e.suspicious.LoadAndDelete(subjectKey(guildID, userID))
	return ok
}

// StartSweeper launches the periodic cleanup of expired window events,
// idle escalation counters, duplicate history and stale suspects.
func (e *Engine) StartSweeper(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				now := time.Now().UnixMilli()
				windows := e.Windows.Prune(now, hourMs)
				counters := e.Escalation.Sweep(now, 24*hourMs)
				dups := e.Matcher.PruneHistory(now)
				suspects := 0
				e.suspicious.Range(func(k, val interface{}) bool {
					if now-val.(*suspect).flaggedAt > 24*hourMs {
						e.suspicious.Delete(k)
						suspects++
					}
					return true
				})
				e.logger.Debug("sweep complete",
					zap.Int("windows_dropped", windows),
					zap.Int("counters_dropped", counters),
					zap.Int("dup_entries_dropped", dups),
					zap.Int("suspects_dropped", suspects))
			case <-e.sweepStop:
				return
			}
		}
	}()
}

// StopSweeper halts the cleanup loop. Safe to call once.
func (e *Engine) StopSweeper() {
	e.sweepOnce.Do(func() { close(e.sweepStop) })
}
