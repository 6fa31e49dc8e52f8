package commands

import (
	"fmt"
	"sort"
	"strings"

	"discord-security-bot/internal/engine"
	"discord-security-bot/internal/utils"

	"github.com/bwmarrin/discordgo"
)

var Suspicious = &discordgo.ApplicationCommand{
	Name:        "suspicious",
	Description: "Review joiners flagged by the suspicion scorer",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "list",
			Description: "Show currently flagged users",
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "clear",
			Description: "Clear a user's flag after manual review",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "User to clear",
					Required:    true,
				},
			},
		},
	},
}

func HandleSuspicious(s *discordgo.Session, i *discordgo.InteractionCreate, eng *engine.Engine) {
	if !requireModerateMembers(s, i) {
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
	case "list":
		subjects := eng.SuspiciousSubjects(guildID)
		if len(subjects) == 0 {
			utils.SendSuccess(s, i, "No users are currently flagged.")
			return
		}
		sort.Slice(subjects, func(a, b int) bool {
			return subjects[a].Score > subjects[b].Score
		})

		embed := &discordgo.MessageEmbed{
			Title: utils.EmojiAlert + " Flagged Users",
			Color: utils.ColorOrange,
			Footer: &discordgo.MessageEmbedFooter{
				Text: fmt.Sprintf("%d flagged", len(subjects)),
			},
		}
		for idx, subj := range subjects {
			if idx >= 15 {
				break
			}
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name: fmt.Sprintf("Score %d/10", subj.Score),
				Value: fmt.Sprintf("<@%s> flagged <t:%d:R>\n%s",
					subj.UserID, subj.FlaggedAt/1000, strings.Join(subj.Reasons, ", ")),
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

	case "clear":
		userID := optMap(sub.Options)["user"].UserValue(s).ID
		if !eng.ClearSuspicious(guildID, userID) {
			utils.SendError(s, i, "<@"+userID+"> is not flagged.")
			return
		}
		utils.SendSuccess(s, i, "Cleared the flag on <@"+userID+">.")

	default:
		utils.SendError(s, i, "Unknown subcommand.")
	}
}
