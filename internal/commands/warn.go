package commands

import (
	"fmt"
	"time"

	"discord-security-bot/internal/database"
	"discord-security-bot/internal/engine"
	"discord-security-bot/internal/engine/actions"
	"discord-security-bot/internal/models"
	"discord-security-bot/internal/utils"

	"github.com/bwmarrin/discordgo"
)

var Warn = &discordgo.ApplicationCommand{
	Name:        "warn",
	Description: "Issue a warning to a user",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: "User to warn",
			Required:    true,
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "reason",
			Description: "Reason for the warning",
			Required:    true,
		},
	},
}

var Warnings = &discordgo.ApplicationCommand{
	Name:        "warnings",
	Description: "Show a user's warnings",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: "User to look up",
			Required:    true,
		},
	},
}

var Unwarn = &discordgo.ApplicationCommand{
	Name:        "unwarn",
	Description: "Remove a single warning by its id",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "warning_id",
			Description: "Warning id shown by /warnings",
			Required:    true,
		},
	},
}

var ClearWarnings = &discordgo.ApplicationCommand{
	Name:        "clearwarnings",
	Description: "Clear all warnings for a user",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: "User to clear",
			Required:    true,
		},
	},
}

func HandleWarn(s *discordgo.Session, i *discordgo.InteractionCreate, db *database.Database, eng *engine.Engine) {
	if !requireModerateMembers(s, i) {
		return
	}

	guildID := i.GuildID
	p := eng.Policies.Get(guildID)
	if !p.WarningSystemEnabled {
		utils.SendError(s, i, "The warning system is disabled on this server.")
		return
	}

	opts := optMap(i.ApplicationCommandData().Options)
	target := opts["user"].UserValue(s)
	reason := opts["reason"].StringValue()

	if target.Bot {
		utils.SendError(s, i, "Bots cannot be warned.")
		return
	}

	if _, err := db.AddWarning(guildID, target.ID, i.Member.User.ID, reason); err != nil {
		utils.SendError(s, i, "Failed to save the warning. Try again shortly.")
		return
	}
	count, err := db.CountWarnings(guildID, target.ID)
	if err != nil {
		count = 1
	}

	now := time.Now().UnixMilli()
	v := &models.Violation{
		GuildID:   guildID,
		UserID:    target.ID,
		Type:      models.ViolationManualWarn,
		Severity:  3,
		Reason:    reason,
		Action:    models.ActionWarn,
		Timestamp: now,
	}
	task := actions.Task{
		Kind:      models.ActionWarn,
		GuildID:   guildID,
		UserID:    target.ID,
		Reason:    reason,
		Violation: v,
		Stats:     []string{"total_violations", "warnings_issued"},
	}

	// Hitting the warning cap converts the record into a real timeout.
	capped := count >= p.MaxWarnings
	if capped {
		v.Action = models.ActionTimeout
		v.Reason = fmt.Sprintf("reached %d warnings, last: %s", count, reason)
		task.Kind = models.ActionTimeout
		task.Duration = time.Duration(p.Timeout2Ms) * time.Millisecond
		task.Stats = append(task.Stats, "timeouts_issued")
	}
	if p.LogChannel != "" {
		task.NotifyChannel = p.LogChannel
		task.Embed = utils.ViolationLogEmbed(v, count, fmt.Sprintf("warning %d/%d", count, p.MaxWarnings))
	}
	eng.Queue.Push(task)

	if capped {
		utils.SendSuccess(s, i, fmt.Sprintf("<@%s> reached %d/%d warnings and has been timed out for %s.",
			target.ID, count, p.MaxWarnings, models.FormatDuration(p.Timeout2Ms)))
		return
	}
	utils.SendSuccess(s, i, fmt.Sprintf("Warned <@%s> (%d/%d).", target.ID, count, p.MaxWarnings))
}

func HandleWarnings(s *discordgo.Session, i *discordgo.InteractionCreate, db *database.Database) {
	if !requireModerateMembers(s, i) {
		return
	}

	target := optMap(i.ApplicationCommandData().Options)["user"].UserValue(s)
	warnings, err := db.GetWarnings(i.GuildID, target.ID)
	if err != nil {
		utils.SendError(s, i, "Failed to load warnings. Try again shortly.")
		return
	}
	if len(warnings) == 0 {
		utils.SendSuccess(s, i, "<@"+target.ID+"> has no warnings.")
		return
	}

	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("Warnings for %s", target.Username),
		Color: utils.ColorYellow,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("%d warning(s)", len(warnings)),
		},
	}
	for idx, w := range warnings {
		if idx >= 10 {
			break
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   fmt.Sprintf("Warning #%d", w.ID),
			Value:  fmt.Sprintf("%s\n*by <@%s> <t:%d:R>*", utils.Truncate(w.Reason, 200), w.ModeratorID, w.Timestamp/1000),
			Inline: false,
		})
	}

	// Warnings are manual calls; the automated record alongside them
	// tells the moderator whether this user keeps tripping the engine.
	dayAgo := time.Now().Add(-24 * time.Hour).UnixMilli()
	if recent, err := db.CountViolationsSince(i.GuildID, target.ID, dayAgo); err == nil && recent > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Violations (24h)",
			Value:  fmt.Sprintf("%d", recent),
			Inline: true,
		})
	}
	if violations, err := db.GetRecentViolations(i.GuildID, target.ID, 3); err == nil && len(violations) > 0 {
		var lines string
		for _, v := range violations {
			lines += fmt.Sprintf("`%s` %s <t:%d:R>\n", v.Type, v.Action, v.Timestamp/1000)
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Recent Violations",
			Value:  lines,
			Inline: false,
		})
	}
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
}

func HandleUnwarn(s *discordgo.Session, i *discordgo.InteractionCreate, db *database.Database) {
	if !requireModerateMembers(s, i) {
		return
	}

	id := optMap(i.ApplicationCommandData().Options)["warning_id"].IntValue()
	removed, err := db.RemoveWarning(i.GuildID, id)
	if err != nil {
		utils.SendError(s, i, "Failed to remove the warning. Try again shortly.")
		return
	}
	if !removed {
		utils.SendError(s, i, fmt.Sprintf("No warning #%d on this server.", id))
		return
	}
	utils.SendSuccess(s, i, fmt.Sprintf("Removed warning #%d.", id))
}

func HandleClearWarnings(s *discordgo.Session, i *discordgo.InteractionCreate, db *database.Database) {
	if !requireModerateMembers(s, i) {
		return
	}

	target := optMap(i.ApplicationCommandData().Options)["user"].UserValue(s)
	removed, err := db.ClearWarnings(i.GuildID, target.ID)
	if err != nil {
		utils.SendError(s, i, "Failed to clear warnings. Try again shortly.")
		return
	}
	if removed == 0 {
		utils.SendError(s, i, "<@"+target.ID+"> has no warnings to clear.")
		return
	}
	utils.SendSuccess(s, i, fmt.Sprintf("Cleared %d warning(s) for <@%s>.", removed, target.ID))
}
