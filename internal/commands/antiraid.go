package commands

import (
	"fmt"
	"time"

	"discord-security-bot/internal/engine"
	"discord-security-bot/internal/engine/policy"
	"discord-security-bot/internal/models"
	"discord-security-bot/internal/utils"

	"github.com/bwmarrin/discordgo"
)

var AntiRaid = &discordgo.ApplicationCommand{
	Name:        "antiraid",
	Description: "Configure join-burst and suspicious-account protection",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "enable",
			Description: "Enable anti-raid protection",
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "disable",
			Description: "Disable anti-raid protection",
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "config",
			Description: "Change anti-raid settings",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "join_threshold",
					Description: "Joins per minute that trigger raid mode",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "min_account_age",
					Description: "Minimum account age in days before a join is considered young",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "suspicion_threshold",
					Description: "Suspicion score at which a joiner gets flagged",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "auto_kick",
					Description: "Automatically kick highly suspicious joiners",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionRole,
					Name:        "quarantine_role",
					Description: "Role assigned to quarantined joiners",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "raid_action",
					Description: "What to do with suspicious joiners while raid mode is active",
					Required:    false,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Kick", Value: models.RaidActionKick},
						{Name: "Quarantine", Value: models.RaidActionQuarantine},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "raid_duration",
					Description: "How long automatic raid mode stays on (e.g. 10m, 1h)",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "verification",
					Description: "DM a captcha to flagged joiners instead of acting immediately",
					Required:    false,
				},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "status",
			Description: "Show the current anti-raid configuration",
		},
	},
}

func HandleAntiRaid(s *discordgo.Session, i *discordgo.InteractionCreate, eng *engine.Engine) {
	if !requireManageGuild(s, i) {
		return
	}

	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		utils.SendError(s, i, "Missing subcommand.")
		return
	}

	guildID := i.GuildID
	sub := data.Options[0]

	switch sub.Name {
	case "enable", "disable":
		enabled := sub.Name == "enable"
		if _, err := eng.Policies.Update(guildID, policy.Update{AntiRaidEnabled: &enabled}); err != nil {
			utils.SendError(s, i, "Failed to save settings. Try again shortly.")
			return
		}
		utils.SendSuccess(s, i, "Anti-raid protection "+onOff(enabled)+".")

	case "config":
		opts := optMap(sub.Options)
		var u policy.Update
		changed := 0

		if o := opts["join_threshold"]; o != nil {
			v := int(o.IntValue())
			if v < 2 || v > 100 {
				utils.SendError(s, i, "Join threshold must be between 2 and 100.")
				return
			}
			u.JoinThreshold = &v
			changed++
		}
		if o := opts["min_account_age"]; o != nil {
			v := int(o.IntValue())
			if v < 0 || v > 365 {
				utils.SendError(s, i, "Minimum account age must be between 0 and 365 days.")
				return
			}
			u.MinAccountAgeDays = &v
			changed++
		}
		if o := opts["suspicion_threshold"]; o != nil {
			v := int(o.IntValue())
			if v < 1 || v > 10 {
				utils.SendError(s, i, "Suspicion threshold must be between 1 and 10.")
				return
			}
			u.SuspicionThreshold = &v
			changed++
		}
		if o := opts["auto_kick"]; o != nil {
			v := o.BoolValue()
			u.AutoKickSuspicious = &v
			changed++
		}
		if o := opts["quarantine_role"]; o != nil {
			v := o.RoleValue(s, guildID).ID
			u.QuarantineRole = &v
			changed++
		}
		if o := opts["raid_action"]; o != nil {
			v := o.StringValue()
			u.RaidModeAction = &v
			changed++
		}
		if o := opts["raid_duration"]; o != nil {
			ms, err := parseDuration(o.StringValue())
			if err != nil {
				utils.SendError(s, i, "Invalid duration. Use formats like `10m` or `1h`.")
				return
			}
			u.RaidModeDurationMs = &ms
			changed++
		}
		if o := opts["verification"]; o != nil {
			v := o.BoolValue()
			u.VerificationEnabled = &v
			changed++
		}

		if changed == 0 {
			utils.SendError(s, i, "Provide at least one setting to change.")
			return
		}
		if _, err := eng.Policies.Update(guildID, u); err != nil {
			utils.SendError(s, i, "Failed to save settings. Try again shortly.")
			return
		}
		utils.SendSuccess(s, i, fmt.Sprintf("Updated %d anti-raid setting(s).", changed))

	case "status":
		p := eng.Policies.Get(guildID)
		quarantine := "not set"
		if p.QuarantineRole != "" {
			quarantine = "<@&" + p.QuarantineRole + ">"
		}
		embed := &discordgo.MessageEmbed{
			Title: "Anti-Raid Configuration",
			Color: utils.ColorDark,
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Protection", Value: onOff(p.AntiRaidEnabled), Inline: true},
				{Name: "Join Threshold", Value: fmt.Sprintf("`%d`/min", p.JoinThreshold), Inline: true},
				{Name: "Min Account Age", Value: fmt.Sprintf("`%d` days", p.MinAccountAgeDays), Inline: true},
				{Name: "Suspicion Threshold", Value: fmt.Sprintf("`%d`", p.SuspicionThreshold), Inline: true},
				{Name: "Auto-Kick Suspicious", Value: onOff(p.AutoKickSuspicious), Inline: true},
				{Name: "Quarantine Role", Value: quarantine, Inline: true},
				{Name: "Raid Action", Value: "`" + p.RaidModeAction + "`", Inline: true},
				{Name: "Raid Duration", Value: models.FormatDuration(p.RaidModeDurationMs), Inline: true},
				{Name: "Verification", Value: onOff(p.VerificationEnabled), Inline: true},
			},
			Timestamp: time.Now().Format(time.RFC3339),
		}
		s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Embeds: []*discordgo.MessageEmbed{embed},
			},
		})

	default:
		utils.SendError(s, i, "Unknown subcommand.")
	}
}
