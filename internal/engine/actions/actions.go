// Package actions decouples detection from enforcement: the engine
// pushes tasks onto a buffered queue and a worker drives the platform
// adapter, so a slow or failing API call never blocks the next verdict.
package actions

import (
	"sync/atomic"
	"time"

	"discord-security-bot/internal/models"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Actioner is the platform adapter surface. Implemented over the
// Discord session by the bot package; tests use a recording fake.
type Actioner interface {
	Timeout(guildID, userID string, duration time.Duration, reason string) error
	Kick(guildID, userID, reason string) error
	AssignRole(guildID, userID, roleID string) error
	DeleteMessage(channelID, messageID string) error
	Notify(channelID string, embed *discordgo.MessageEmbed) error
}

// Recorder receives violation records and aggregate counter bumps once
// a task has been attempted. Implemented by the database package.
type Recorder interface {
	InsertViolation(v *models.Violation) error
	IncrementStat(guildID, stat string) error
}

// Aggregates is the optional Redis-backed layer: offender leaderboard,
// daily violation counters and per-user notification cooldowns.
// Best effort; nil or failing calls never affect enforcement.
type Aggregates interface {
	BumpOffender(guildID, userID string) error
	BumpDailyViolation(guildID, vtype, day string) error
	SetNotifyCooldown(guildID, userID string, duration time.Duration) error
	CheckNotifyCooldown(guildID, userID string) (time.Duration, bool)
}

// notifyCooldown throttles in-channel warnings per user. The violation
// itself is still recorded every time.
const notifyCooldown = 30 * time.Second

// Task kinds beyond the shared action constants.
const (
	KindRecord = "record" // persist only, no platform call
)

// Task is one queued enforcement step.
type Task struct {
	Kind      string // models.ActionTimeout/Kick/Quarantine/Delete or KindRecord
	GuildID   string
	UserID    string
	ChannelID string
	MessageID string
	RoleID    string
	Duration  time.Duration
	Reason    string

	// NotifyChannel/Embed, when set, are sent after the action so
	// operators see both successes and failures.
	NotifyChannel string
	Embed         *discordgo.MessageEmbed

	// Violation, when set, is persisted after the attempt. On platform
	// failure the record is kept with Action="attempted" so operators
	// can intervene manually.
	Violation *models.Violation

	// Stats columns to bump after the attempt.
	Stats []string
}

// Queue is the buffered task channel plus its single worker.
// Pushes never block: under overload tasks are dropped and counted,
// protecting detection latency.
type Queue struct {
	tasks    chan Task
	actioner Actioner
	recorder Recorder
	logger   *zap.Logger
	dropped  atomic.Uint64
	done     chan struct{}

	// Aggregates may be set before Start.
	Aggregates Aggregates
}

func NewQueue(actioner Actioner, recorder Recorder, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		tasks:    make(chan Task, 1000),
		actioner: actioner,
		recorder: recorder,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Push enqueues a task. Returns false if the buffer is full and the
// task was dropped.
func (q *Queue) Push(t Task) bool {
	select {
	case q.tasks <- t:
		return true
	default:
		q.dropped.Add(1)
		q.logger.Warn("action queue full, task dropped",
			zap.String("kind", t.Kind), zap.String("guild_id", t.GuildID))
		return false
	}
}

// Dropped returns how many tasks were lost to backpressure.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}

// Start launches the worker goroutine.
func (q *Queue) Start() {
	go func() {
		for {
			select {
			case t := <-q.tasks:
				q.execute(t)
			case <-q.done:
				return
			}
		}
	}()
}

// Stop terminates the worker. Buffered tasks are abandoned.
func (q *Queue) Stop() {
	close(q.done)
}

// Drain synchronously executes everything currently buffered.
// Test helper; the live path uses the worker.
func (q *Queue) Drain() {
	for {
		select {
		case t := <-q.tasks:
			q.execute(t)
		default:
			return
		}
	}
}

func (q *Queue) execute(t Task) {
	var err error
	switch t.Kind {
	case models.ActionTimeout:
		err = q.actioner.Timeout(t.GuildID, t.UserID, t.Duration, t.Reason)
	case models.ActionKick:
		err = q.actioner.Kick(t.GuildID, t.UserID, t.Reason)
	case models.ActionQuarantine:
		err = q.actioner.AssignRole(t.GuildID, t.UserID, t.RoleID)
	case models.ActionDelete:
		err = q.actioner.DeleteMessage(t.ChannelID, t.MessageID)
	case KindRecord, models.ActionNone, models.ActionWarn:
		// persistence only
	default:
		q.logger.Error("unknown action kind", zap.String("kind", t.Kind))
		return
	}

	if err != nil {
		// No automatic retry: the record below keeps the evidence and
		// the notification tells operators to act manually.
		q.logger.Error("enforcement action failed",
			zap.String("kind", t.Kind),
			zap.String("guild_id", t.GuildID),
			zap.String("user_id", t.UserID),
			zap.Error(err))
		if t.Violation != nil {
			t.Violation.Action = models.ActionAttempted
		}
	}

	if t.Violation != nil && q.recorder != nil {
		if dbErr := q.recorder.InsertViolation(t.Violation); dbErr != nil {
			q.logger.Error("violation persist failed", zap.Error(dbErr))
		}
	}
	if q.recorder != nil {
		for _, stat := range t.Stats {
			if dbErr := q.recorder.IncrementStat(t.GuildID, stat); dbErr != nil {
				q.logger.Error("stat increment failed",
					zap.String("stat", stat), zap.Error(dbErr))
			}
		}
	}

	if q.Aggregates != nil && t.Violation != nil {
		_ = q.Aggregates.BumpOffender(t.GuildID, t.Violation.UserID)
		_ = q.Aggregates.BumpDailyViolation(t.GuildID, t.Violation.Type,
			time.Now().UTC().Format("2006-01-02"))
	}

	if t.NotifyChannel != "" && t.Embed != nil {
		// Per-user throttle applies only to user-addressed notices; log
		// channel entries carry no user and always go out.
		if q.Aggregates != nil && t.UserID != "" {
			if _, cooling := q.Aggregates.CheckNotifyCooldown(t.GuildID, t.UserID); cooling {
				return
			}
			_ = q.Aggregates.SetNotifyCooldown(t.GuildID, t.UserID, notifyCooldown)
		}
		if nerr := q.actioner.Notify(t.NotifyChannel, t.Embed); nerr != nil {
			q.logger.Warn("notification failed",
				zap.String("channel", t.NotifyChannel), zap.Error(nerr))
		}
	}
}
