package commands

import (
	"fmt"
	"time"

	"discord-security-bot/internal/engine"
	"discord-security-bot/internal/models"
	"discord-security-bot/internal/utils"

	"github.com/bwmarrin/discordgo"
)

var RaidMode = &discordgo.ApplicationCommand{
	Name:        "raidmode",
	Description: "Manually control raid mode",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "enable",
			Description: "Enable raid mode",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "duration",
					Description: "Auto-disable after this long (e.g. 10m, 1h). Omit to keep it on.",
					Required:    false,
				},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "disable",
			Description: "Disable raid mode",
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "status",
			Description: "Show raid mode status and recent join activity",
		},
	},
}

func HandleRaidMode(s *discordgo.Session, i *discordgo.InteractionCreate, eng *engine.Engine) {
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
	case "enable":
		var durationMs int64
		if opts := optMap(sub.Options); opts["duration"] != nil {
			ms, err := parseDuration(opts["duration"].StringValue())
			if err != nil {
				utils.SendError(s, i, "Invalid duration. Use formats like `30s`, `10m`, `1h`.")
				return
			}
			durationMs = ms
		}
		if !eng.EnableRaidMode(guildID, durationMs) {
			utils.SendError(s, i, "Raid mode is already active.")
			return
		}
		p := eng.Policies.Get(guildID)
		s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Embeds: []*discordgo.MessageEmbed{
					utils.RaidModeEmbed(true, models.TriggerManual, p.RaidModeAction, durationMs),
				},
			},
		})

	case "disable":
		if !eng.DisableRaidMode(guildID) {
			utils.SendError(s, i, "Raid mode is not active.")
			return
		}
		utils.SendSuccess(s, i, "Raid mode disabled. The join window has been cleared.")

	case "status":
		now := time.Now().UnixMilli()
		st := eng.RaidStatus(guildID)
		js := eng.JoinStats(guildID, now)

		state := utils.EmojiTick + " Normal"
		if st.Active {
			state = utils.EmojiAlert + " **RAID MODE ACTIVE** (" + st.Trigger + ")"
		}
		embed := &discordgo.MessageEmbed{
			Title: "Raid Mode Status",
			Color: utils.ColorDark,
			Fields: []*discordgo.MessageEmbedField{
				{Name: "State", Value: state, Inline: false},
				{Name: "Joins (1m)", Value: fmt.Sprintf("`%d`", js.LastMinute), Inline: true},
				{Name: "Joins (5m)", Value: fmt.Sprintf("`%d`", js.Last5Min), Inline: true},
				{Name: "Joins (1h)", Value: fmt.Sprintf("`%d`", js.LastHour), Inline: true},
			},
			Timestamp: time.Now().Format(time.RFC3339),
		}
		if st.Active {
			embed.Color = utils.ColorRed
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name:   "Activated",
				Value:  fmt.Sprintf("<t:%d:R>", st.ActivatedAt/1000),
				Inline: true,
			})
			if st.ExpiresAt > 0 {
				embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
					Name:   "Expires",
					Value:  fmt.Sprintf("<t:%d:R>", st.ExpiresAt/1000),
					Inline: true,
				})
			}
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
