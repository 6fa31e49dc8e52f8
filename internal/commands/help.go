package commands

import (
	"discord-security-bot/internal/commands/framework"

	"github.com/bwmarrin/discordgo"
)

var Help = &discordgo.ApplicationCommand{
	Name:        "help",
	Description: "Show available commands",
}

func HelpCmd(ctx framework.Context) {
	embed := &discordgo.MessageEmbed{
		Title:       "Security Bot Commands",
		Description: "Commands marked with * need the **Manage Server** permission.",
		Color:       0x2b2d31, // Dark theme background (clean/colorless look)
		Fields: []*discordgo.MessageEmbedField{
			{
				Name: "Raid Protection",
				Value: "`/raidmode enable|disable|status` * - manual raid mode control\n" +
					"`/antiraid enable|disable|config|status` * - join-burst and account checks\n" +
					"`/suspicious list|clear` - review flagged joiners",
				Inline: false,
			},
			{
				Name: "Content Moderation",
				Value: "`/automod enable|disable|config|test` * - spam and content checks\n" +
					"`/automod word add|remove|list` * - custom word filter\n" +
					"`/linkfilter enable|disable|config|check` * - scam link detection\n" +
					"`/linkfilter blacklist add|remove|list` * - blocked domains",
				Inline: false,
			},
			{
				Name: "Moderation",
				Value: "`/warn` - warn a user\n" +
					"`/warnings` - show a user's warnings\n" +
					"`/unwarn` - remove one warning by id\n" +
					"`/clearwarnings` - clear a user's warnings\n" +
					"`/whitelist add|remove|list` * - enforcement exemptions",
				Inline: false,
			},
			{
				Name:   "Utility",
				Value:  "`/security-stats` - detection statistics\n`/ping` - latency check",
				Inline: false,
			},
		},
	}

	ctx.ReplyEmbed(embed)
}

func HandleHelp(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := framework.NewSlashContext(s, i)
	HelpCmd(ctx)
}
