package utils

import (
	"fmt"
	"time"

	"discord-security-bot/internal/models"

	"github.com/bwmarrin/discordgo"
)

func severityColor(severity int) int {
	if severity >= 8 {
		return ColorRed
	}
	return ColorOrange
}

// AutomodWarningEmbed is the in-channel notice shown when a message is
// removed by content moderation.
func AutomodWarningEmbed(userID string, types string, severity int, reasons string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "⚠️ Auto Moderation",
		Description: fmt.Sprintf("<@%s>, your message was removed by auto moderation.", userID),
		Color:       severityColor(severity),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Violation", Value: types, Inline: true},
			{Name: "Severity", Value: fmt.Sprintf("%d/10", severity), Inline: true},
			{Name: "Reason", Value: reasons},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: "Please read the server rules."},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// ViolationLogEmbed goes to the guild's log channel for every
// enforcement action.
func ViolationLogEmbed(v *models.Violation, violationCount int, penaltyLabel string) *discordgo.MessageEmbed {
	title := "⏱️ Timeout Applied"
	color := ColorOrange
	switch v.Action {
	case models.ActionKick:
		title = "👢 Member Kicked"
		color = ColorRed
	case models.ActionQuarantine:
		title = "🔒 Member Quarantined"
	case models.ActionWarn, models.ActionDelete:
		title = "🤖 Auto Moderation Triggered"
	case models.ActionAttempted:
		title = "❗ Action Failed (manual intervention needed)"
		color = ColorRed
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "User", Value: fmt.Sprintf("<@%s> (%s)", v.UserID, v.UserID), Inline: true},
		{Name: "Type", Value: v.Type, Inline: true},
		{Name: "Severity", Value: fmt.Sprintf("%d/10", v.Severity), Inline: true},
		{Name: "Reason", Value: v.Reason},
	}
	if violationCount > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: "Violation Count", Value: fmt.Sprintf("%d", violationCount), Inline: true,
		})
	}
	if penaltyLabel != "" {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: "Penalty", Value: penaltyLabel, Inline: true,
		})
	}
	if v.Evidence != "" {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: "Content", Value: "```" + Truncate(v.Evidence, 200) + "```",
		})
	}

	return &discordgo.MessageEmbed{
		Title:     title,
		Color:     color,
		Fields:    fields,
		Timestamp: time.Now().Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: "Security Engine"},
	}
}

// SuspiciousUserEmbed reports a flagged joiner to the log channel.
func SuspiciousUserEmbed(userID string, score int, accountAgeDays int, reasons []string) *discordgo.MessageEmbed {
	color := ColorYellow
	if score >= 7 {
		color = ColorRed
	} else if score >= 5 {
		color = ColorOrange
	}

	reasonText := ""
	for i, r := range reasons {
		if i > 0 {
			reasonText += "\n"
		}
		reasonText += r
	}

	return &discordgo.MessageEmbed{
		Title:       "⚠️ Suspicious User Detected",
		Description: fmt.Sprintf("<@%s> was flagged on join.", userID),
		Color:       color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "User", Value: fmt.Sprintf("<@%s> (%s)", userID, userID), Inline: true},
			{Name: "Suspicion Score", Value: fmt.Sprintf("%d/10", score), Inline: true},
			{Name: "Account Age", Value: fmt.Sprintf("%d days", accountAgeDays), Inline: true},
			{Name: "Signals", Value: reasonText},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// RaidModeEmbed announces a raid-mode transition.
func RaidModeEmbed(enabled bool, trigger, action string, durationMs int64) *discordgo.MessageEmbed {
	how := "manually"
	if trigger == models.TriggerAuto {
		how = "automatically"
	}

	if !enabled {
		return &discordgo.MessageEmbed{
			Title:       "✅ Raid Mode Disabled",
			Description: fmt.Sprintf("Raid protection was %s disabled. Join tracking restarted.", how),
			Color:       ColorGreen,
			Timestamp:   time.Now().Format(time.RFC3339),
		}
	}

	actionText := "Suspicious accounts are quarantined"
	if action == models.RaidActionKick {
		actionText = "Suspicious accounts are kicked automatically"
	}
	return &discordgo.MessageEmbed{
		Title:       "🚨 RAID MODE ACTIVE",
		Description: fmt.Sprintf("Raid protection was %s enabled.", how),
		Color:       ColorRed,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Status", Value: "All new members face strict checks"},
			{Name: "Action", Value: actionText},
			{Name: "Duration", Value: models.FormatDuration(durationMs)},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// LinkBlockedEmbed is the in-channel notice for a removed malicious link.
func LinkBlockedEmbed(userID, reason string, threatLevel int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "⛔ Dangerous Link Detected",
		Description: fmt.Sprintf("<@%s>, your message was removed for malicious content.", userID),
		Color:       ColorRed,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Reason", Value: reason},
			{Name: "Threat Level", Value: fmt.Sprintf("%d/10", threatLevel), Inline: true},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: "Contact the moderators if you believe this is an error."},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// VerificationPromptEmbed welcomes a joiner into the verification flow.
func VerificationPromptEmbed(username, rulesChannel string) *discordgo.MessageEmbed {
	rules := "Please read the rules."
	if rulesChannel != "" {
		rules = fmt.Sprintf("<#%s>", rulesChannel)
	}
	return &discordgo.MessageEmbed{
		Title:       "🔐 Welcome!",
		Description: fmt.Sprintf("**%s**, welcome to the server!\n\nComplete the verification below to continue.", username),
		Color:       ColorBlurple,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Rules", Value: rules},
			{Name: "Time Limit", Value: "You have 5 minutes to verify"},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// VerificationWelcomeEmbed is posted in the verification channel for
// every new joiner, pointing them at the rules before they verify.
func VerificationWelcomeEmbed(userID, rulesChannel string) *discordgo.MessageEmbed {
	rules := "Please read the rules."
	if rulesChannel != "" {
		rules = fmt.Sprintf("Read <#%s> first.", rulesChannel)
	}
	return &discordgo.MessageEmbed{
		Title:       "👋 Welcome!",
		Description: fmt.Sprintf("<@%s>, welcome to the server! Verify yourself here to unlock the rest of the channels.", userID),
		Color:       ColorBlurple,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Rules", Value: rules},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// Truncate shortens content for embeds and evidence columns.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
