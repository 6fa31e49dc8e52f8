package models

import "fmt"

// Event categories tracked by the sliding windows
const (
	CategoryMessage = "message"
	CategoryJoin    = "join"
	CategoryVoice   = "voice"
)

// Violation type constants
const (
	ViolationSpam          = "spam"
	ViolationVoiceAbuse    = "voice_abuse"
	ViolationProfanity     = "profanity"
	ViolationCapsSpam      = "caps_spam"
	ViolationEmojiSpam     = "emoji_spam"
	ViolationMentionSpam   = "mention_spam"
	ViolationDuplicateSpam = "duplicate_spam"
	ViolationZalgoSpam     = "zalgo_spam"
	ViolationSensitiveInfo = "sensitive_info"
	ViolationScamLink      = "scam_link"
	ViolationSuspiciousJoin = "suspicious_join"
	ViolationManualWarn    = "manual_warn"
)

// Action constants - what was (or should be) done about a violation
const (
	ActionNone       = "none"
	ActionWarn       = "warn"
	ActionDelete     = "delete"
	ActionTimeout    = "timeout"
	ActionKick       = "kick"
	ActionQuarantine = "quarantine"
	ActionAttempted  = "attempted" // collaborator call failed, record kept for operators
)

// Raid mode trigger constants
const (
	TriggerManual = "manual"
	TriggerAuto   = "auto"
)

// Raid mode action choices
const (
	RaidActionKick       = "kick"
	RaidActionQuarantine = "quarantine"
)

// Violation is an immutable record of a single detected abuse event.
// Owned by the persistence layer once emitted.
type Violation struct {
	ID        int64
	GuildID   string
	UserID    string
	Type      string
	Severity  int // 0-10
	Reason    string
	Action    string
	Evidence  string // truncated offending content, may be empty
	Timestamp int64  // unix milliseconds
}

// Warning is a manually issued moderator warning.
type Warning struct {
	ID          int64
	GuildID     string
	UserID      string
	ModeratorID string
	Reason      string
	Timestamp   int64
}

// JoinStats reports recent join activity for a guild.
type JoinStats struct {
	LastMinute int `json:"last_minute"`
	Last5Min   int `json:"last_5_minutes"`
	LastHour   int `json:"last_hour"`
}

// GuildStats mirrors the per-guild aggregate counters table.
type GuildStats struct {
	GuildID            string
	TotalViolations    int64
	SpamDetected       int64
	VoiceAbuseDetected int64
	TimeoutsIssued     int64
	KicksIssued        int64
	ScamBlocked        int64
	AutomodTriggers    int64
	WarningsIssued     int64
}

// GuildPolicy is the fully-defaulted per-guild configuration record.
// Treated as immutable once resolved for an event; updates go through
// policy.Store which produces a fresh copy.
type GuildPolicy struct {
	GuildID string
	Enabled bool

	// Spam / voice rate limits
	SpamThreshold int
	SpamWindowMs  int64
	VoiceThreshold int
	VoiceWindowMs  int64

	// Escalation ladder timeouts + inactivity reset
	Timeout1Ms   int64
	Timeout2Ms   int64
	ResetAfterMs int64

	// Channels
	LogChannel          string
	VerificationChannel string
	RulesChannel        string

	Whitelist []string

	// Anti-raid
	AntiRaidEnabled     bool
	JoinThreshold       int
	MinAccountAgeDays   int
	SuspicionThreshold  int
	AutoKickSuspicious  bool
	QuarantineRole      string
	RaidModeAction      string // kick | quarantine
	RaidModeDurationMs  int64  // 0 = no auto-expiry
	VerificationEnabled bool

	// Link filter
	LinkFilterEnabled  bool
	BlockURLShorteners bool
	StrictMode         bool
	AutoTimeoutScam    bool
	ScamTimeoutMs      int64

	// Auto moderation
	AutomodEnabled        bool
	ProfanityFilter       bool
	CapsFilter            bool
	CapsThreshold         int // percentage
	EmojiSpamLimit        int
	MentionSpamLimit      int
	DuplicateMessageLimit int
	ZalgoFilter           bool

	// Warning system
	WarningSystemEnabled bool
	MaxWarnings          int
}

// DefaultPolicy returns the hard-coded defaults applied to a guild on
// first contact. Values match the original deployment's settings schema.
func DefaultPolicy(guildID string) *GuildPolicy {
	return &GuildPolicy{
		GuildID: guildID,
		Enabled: true,

		SpamThreshold:  5,
		SpamWindowMs:   5000,
		VoiceThreshold: 3,
		VoiceWindowMs:  10000,

		Timeout1Ms:   60000,   // 1 minute
		Timeout2Ms:   3600000, // 1 hour
		ResetAfterMs: 300000,  // 5 minutes

		AntiRaidEnabled:    true,
		JoinThreshold:      5,
		MinAccountAgeDays:  7,
		SuspicionThreshold: 5,
		AutoKickSuspicious: true,
		RaidModeAction:     RaidActionQuarantine,
		RaidModeDurationMs: 600000, // 10 minutes

		LinkFilterEnabled:  true,
		BlockURLShorteners: true,
		AutoTimeoutScam:    true,
		ScamTimeoutMs:      600000,

		AutomodEnabled:        true,
		ProfanityFilter:       true,
		CapsFilter:            true,
		CapsThreshold:         70,
		EmojiSpamLimit:        10,
		MentionSpamLimit:      5,
		DuplicateMessageLimit: 3,
		ZalgoFilter:           true,

		WarningSystemEnabled: true,
		MaxWarnings:          3,
	}
}

// IsWhitelisted reports whether a subject is exempt from enforcement.
func (p *GuildPolicy) IsWhitelisted(userID string) bool {
	for _, id := range p.Whitelist {
		if id == userID {
			return true
		}
	}
	return false
}

// FormatDuration renders a millisecond duration for embeds and reasons.
func FormatDuration(ms int64) string {
	switch {
	case ms <= 0:
		return "until manually disabled"
	case ms < 60000:
		return fmt.Sprintf("%d seconds", ms/1000)
	case ms < 3600000:
		return fmt.Sprintf("%d minutes", ms/60000)
	default:
		return fmt.Sprintf("%d hours", ms/3600000)
	}
}
