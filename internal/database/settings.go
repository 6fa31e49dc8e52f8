package database

import (
	"database/sql"
	"fmt"
	"time"

	"discord-security-bot/internal/models"

	"github.com/goccy/go-json"
)

const settingsColumns = `
	guild_id, enabled,
	spam_threshold, spam_window_ms, voice_threshold, voice_window_ms,
	timeout1_ms, timeout2_ms, reset_after_ms,
	log_channel, verification_channel, rules_channel, whitelist,
	antiraid_enabled, join_threshold, min_account_age_days, suspicion_threshold,
	auto_kick_suspicious, quarantine_role, raid_mode_action, raid_mode_duration_ms,
	verification_enabled,
	link_filter_enabled, block_url_shorteners, strict_mode, auto_timeout_scam, scam_timeout_ms,
	automod_enabled, profanity_filter, caps_filter, caps_threshold,
	emoji_spam_limit, mention_spam_limit, duplicate_message_limit, zalgo_filter,
	warning_system_enabled, max_warnings`

// GetGuildSettings loads one guild's policy row. The second return is
// false when the guild has never been configured.
func (d *Database) GetGuildSettings(guildID string) (*models.GuildPolicy, bool, error) {
	// Settings reads happen on every event, so the prepared statement
	// carries the load; a stale statement falls back to a fresh query.
	if ps := d.PreparedStmts; ps != nil && ps.getGuildSettings != nil {
		p, err := scanSettings(ps.getGuildSettings.QueryRow(guildID))
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		if err == nil {
			return p, true, nil
		}
		if !isBadPreparedStatement(err) {
			return nil, false, fmt.Errorf("get guild settings: %w", err)
		}
	}

	query := `SELECT ` + settingsColumns + ` FROM guild_settings WHERE guild_id = $1`

	p, err := scanSettings(d.db.QueryRow(query, guildID))
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get guild settings: %w", err)
	}
	return p, true, nil
}

func scanSettings(row *sql.Row) (*models.GuildPolicy, error) {
	var p models.GuildPolicy
	var whitelist string
	err := row.Scan(
		&p.GuildID, &p.Enabled,
		&p.SpamThreshold, &p.SpamWindowMs, &p.VoiceThreshold, &p.VoiceWindowMs,
		&p.Timeout1Ms, &p.Timeout2Ms, &p.ResetAfterMs,
		&p.LogChannel, &p.VerificationChannel, &p.RulesChannel, &whitelist,
		&p.AntiRaidEnabled, &p.JoinThreshold, &p.MinAccountAgeDays, &p.SuspicionThreshold,
		&p.AutoKickSuspicious, &p.QuarantineRole, &p.RaidModeAction, &p.RaidModeDurationMs,
		&p.VerificationEnabled,
		&p.LinkFilterEnabled, &p.BlockURLShorteners, &p.StrictMode, &p.AutoTimeoutScam, &p.ScamTimeoutMs,
		&p.AutomodEnabled, &p.ProfanityFilter, &p.CapsFilter, &p.CapsThreshold,
		&p.EmojiSpamLimit, &p.MentionSpamLimit, &p.DuplicateMessageLimit, &p.ZalgoFilter,
		&p.WarningSystemEnabled, &p.MaxWarnings,
	)
	if err != nil {
		return nil, err
	}
	if whitelist != "" {
		if jerr := json.Unmarshal([]byte(whitelist), &p.Whitelist); jerr != nil {
			p.Whitelist = nil
		}
	}
	return &p, nil
}

// UpsertGuildSettings writes the full policy row, creating it on first
// contact.
func (d *Database) UpsertGuildSettings(p *models.GuildPolicy) error {
	whitelist, err := json.Marshal(p.Whitelist)
	if err != nil {
		return fmt.Errorf("marshal whitelist: %w", err)
	}
	now := time.Now().UnixMilli()

	query := `
		INSERT INTO guild_settings (` + settingsColumns + `, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29,
			$30, $31, $32, $33, $34, $35, $36, $37, $38, $39)
		ON CONFLICT (guild_id) DO UPDATE SET
			enabled = $2,
			spam_threshold = $3, spam_window_ms = $4, voice_threshold = $5, voice_window_ms = $6,
			timeout1_ms = $7, timeout2_ms = $8, reset_after_ms = $9,
			log_channel = $10, verification_channel = $11, rules_channel = $12, whitelist = $13,
			antiraid_enabled = $14, join_threshold = $15, min_account_age_days = $16,
			suspicion_threshold = $17, auto_kick_suspicious = $18, quarantine_role = $19,
			raid_mode_action = $20, raid_mode_duration_ms = $21, verification_enabled = $22,
			link_filter_enabled = $23, block_url_shorteners = $24, strict_mode = $25,
			auto_timeout_scam = $26, scam_timeout_ms = $27,
			automod_enabled = $28, profanity_filter = $29, caps_filter = $30, caps_threshold = $31,
			emoji_spam_limit = $32, mention_spam_limit = $33, duplicate_message_limit = $34,
			zalgo_filter = $35, warning_system_enabled = $36, max_warnings = $37,
			updated_at = $39
	`

	_, err = d.db.Exec(query,
		p.GuildID, p.Enabled,
		p.SpamThreshold, p.SpamWindowMs, p.VoiceThreshold, p.VoiceWindowMs,
		p.Timeout1Ms, p.Timeout2Ms, p.ResetAfterMs,
		p.LogChannel, p.VerificationChannel, p.RulesChannel, string(whitelist),
		p.AntiRaidEnabled, p.JoinThreshold, p.MinAccountAgeDays, p.SuspicionThreshold,
		p.AutoKickSuspicious, p.QuarantineRole, p.RaidModeAction, p.RaidModeDurationMs,
		p.VerificationEnabled,
		p.LinkFilterEnabled, p.BlockURLShorteners, p.StrictMode, p.AutoTimeoutScam, p.ScamTimeoutMs,
		p.AutomodEnabled, p.ProfanityFilter, p.CapsFilter, p.CapsThreshold,
		p.EmojiSpamLimit, p.MentionSpamLimit, p.DuplicateMessageLimit, p.ZalgoFilter,
		p.WarningSystemEnabled, p.MaxWarnings,
		now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert guild settings: %w", err)
	}
	return nil
}
