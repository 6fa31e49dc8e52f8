package policy

import "discord-security-bot/internal/models"

// Update carries a partial policy change: nil fields are left untouched.
// Replaces the original system's habit of spreading duck-typed settings
// objects with an explicit typed merge.
type Update struct {
	Enabled *bool

	SpamThreshold  *int
	SpamWindowMs   *int64
	VoiceThreshold *int
	VoiceWindowMs  *int64

	Timeout1Ms   *int64
	Timeout2Ms   *int64
	ResetAfterMs *int64

	LogChannel          *string
	VerificationChannel *string
	RulesChannel        *string

	Whitelist *[]string

	AntiRaidEnabled     *bool
	JoinThreshold       *int
	MinAccountAgeDays   *int
	SuspicionThreshold  *int
	AutoKickSuspicious  *bool
	QuarantineRole      *string
	RaidModeAction      *string
	RaidModeDurationMs  *int64
	VerificationEnabled *bool

	LinkFilterEnabled  *bool
	BlockURLShorteners *bool
	StrictMode         *bool
	AutoTimeoutScam    *bool
	ScamTimeoutMs      *int64

	AutomodEnabled        *bool
	ProfanityFilter       *bool
	CapsFilter            *bool
	CapsThreshold         *int
	EmojiSpamLimit        *int
	MentionSpamLimit      *int
	DuplicateMessageLimit *int
	ZalgoFilter           *bool

	WarningSystemEnabled *bool
	MaxWarnings          *int
}

// Merge produces a fresh policy with the update applied. The input is
// not mutated so cached copies stay immutable.
func Merge(base *models.GuildPolicy, u Update) *models.GuildPolicy {
	p := *base
	p.Whitelist = append([]string(nil), base.Whitelist...)

	setBool(&p.Enabled, u.Enabled)

	setInt(&p.SpamThreshold, u.SpamThreshold)
	setInt64(&p.SpamWindowMs, u.SpamWindowMs)
	setInt(&p.VoiceThreshold, u.VoiceThreshold)
	setInt64(&p.VoiceWindowMs, u.VoiceWindowMs)

	setInt64(&p.Timeout1Ms, u.Timeout1Ms)
	setInt64(&p.Timeout2Ms, u.Timeout2Ms)
	setInt64(&p.ResetAfterMs, u.ResetAfterMs)

	setString(&p.LogChannel, u.LogChannel)
	setString(&p.VerificationChannel, u.VerificationChannel)
	setString(&p.RulesChannel, u.RulesChannel)

	if u.Whitelist != nil {
		p.Whitelist = append([]string(nil), (*u.Whitelist)...)
	}

	setBool(&p.AntiRaidEnabled, u.AntiRaidEnabled)
	setInt(&p.JoinThreshold, u.JoinThreshold)
	setInt(&p.MinAccountAgeDays, u.MinAccountAgeDays)
	setInt(&p.SuspicionThreshold, u.SuspicionThreshold)
	setBool(&p.AutoKickSuspicious, u.AutoKickSuspicious)
	setString(&p.QuarantineRole, u.QuarantineRole)
	setString(&p.RaidModeAction, u.RaidModeAction)
	setInt64(&p.RaidModeDurationMs, u.RaidModeDurationMs)
	setBool(&p.VerificationEnabled, u.VerificationEnabled)

	setBool(&p.LinkFilterEnabled, u.LinkFilterEnabled)
	setBool(&p.BlockURLShorteners, u.BlockURLShorteners)
	setBool(&p.StrictMode, u.StrictMode)
	setBool(&p.AutoTimeoutScam, u.AutoTimeoutScam)
	setInt64(&p.ScamTimeoutMs, u.ScamTimeoutMs)

	setBool(&p.AutomodEnabled, u.AutomodEnabled)
	setBool(&p.ProfanityFilter, u.ProfanityFilter)
	setBool(&p.CapsFilter, u.CapsFilter)
	setInt(&p.CapsThreshold, u.CapsThreshold)
	setInt(&p.EmojiSpamLimit, u.EmojiSpamLimit)
	setInt(&p.MentionSpamLimit, u.MentionSpamLimit)
	setInt(&p.DuplicateMessageLimit, u.DuplicateMessageLimit)
	setBool(&p.ZalgoFilter, u.ZalgoFilter)

	setBool(&p.WarningSystemEnabled, u.WarningSystemEnabled)
	setInt(&p.MaxWarnings, u.MaxWarnings)

	return &p
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setInt64(dst *int64, src *int64) {
	if src != nil {
		*dst = *src
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
