package commands

import (
	"fmt"
	"strings"

	"discord-security-bot/internal/engine"
	"discord-security-bot/internal/engine/policy"
	"discord-security-bot/internal/utils"

	"github.com/bwmarrin/discordgo"
)

var Whitelist = &discordgo.ApplicationCommand{
	Name:        "whitelist",
	Description: "Manage users exempt from enforcement",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "add",
			Description: "Exempt a user from all checks",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "User to exempt",
					Required:    true,
				},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "remove",
			Description: "Remove a user's exemption",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "User to remove",
					Required:    true,
				},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "list",
			Description: "Show whitelisted users",
		},
	},
}

func HandleWhitelist(s *discordgo.Session, i *discordgo.InteractionCreate, eng *engine.Engine) {
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
	p := eng.Policies.Get(guildID)

	switch sub.Name {
	case "add":
		userID := optMap(sub.Options)["user"].UserValue(s).ID
		if p.IsWhitelisted(userID) {
			utils.SendError(s, i, "<@"+userID+"> is already whitelisted.")
			return
		}
		list := append(append([]string{}, p.Whitelist...), userID)
		if _, err := eng.Policies.Update(guildID, policy.Update{Whitelist: &list}); err != nil {
			utils.SendError(s, i, "Failed to save the whitelist. Try again shortly.")
			return
		}
		utils.SendSuccess(s, i, "<@"+userID+"> is now exempt from enforcement.")

	case "remove":
		userID := optMap(sub.Options)["user"].UserValue(s).ID
		if !p.IsWhitelisted(userID) {
			utils.SendError(s, i, "<@"+userID+"> is not whitelisted.")
			return
		}
		list := make([]string, 0, len(p.Whitelist))
		for _, id := range p.Whitelist {
			if id != userID {
				list = append(list, id)
			}
		}
		if _, err := eng.Policies.Update(guildID, policy.Update{Whitelist: &list}); err != nil {
			utils.SendError(s, i, "Failed to save the whitelist. Try again shortly.")
			return
		}
		utils.SendSuccess(s, i, "Removed <@"+userID+"> from the whitelist.")

	case "list":
		if len(p.Whitelist) == 0 {
			utils.SendSuccess(s, i, "No users are whitelisted.")
			return
		}
		var mentions []string
		for _, id := range p.Whitelist {
			mentions = append(mentions, "<@"+id+">")
		}
		embed := &discordgo.MessageEmbed{
			Title:       "Whitelisted Users",
			Description: utils.Truncate(strings.Join(mentions, "\n"), 3800),
			Color:       utils.ColorDark,
			Footer: &discordgo.MessageEmbedFooter{
				Text: fmt.Sprintf("%d user(s)", len(p.Whitelist)),
			},
		}
		s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Embeds: []*discordgo.MessageEmbed{embed},
				Flags:  discordgo.MessageFlagsEphemeral,
			},
		})

	default:
		utils.SendError(s, i, "Unknown subcommand.")
	}
}
