package commands

import (
	"fmt"
	"strings"
	"time"

	"discord-security-bot/internal/database"
	"discord-security-bot/internal/engine"
	"discord-security-bot/internal/engine/policy"
	"discord-security-bot/internal/engine/threatmatch"
	"discord-security-bot/internal/utils"

	"github.com/bwmarrin/discordgo"
)

var Automod = &discordgo.ApplicationCommand{
	Name:        "automod",
	Description: "Configure content moderation checks",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "enable",
			Description: "Enable automod checks",
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "disable",
			Description: "Disable automod checks",
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "config",
			Description: "Toggle individual checks and limits",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "profanity",
					Description: "Filter profanity",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "caps",
					Description: "Filter excessive capital letters",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "caps_threshold",
					Description: "Percentage of capitals that counts as shouting (50-100)",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "emoji_limit",
					Description: "Maximum emoji per message",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "mention_limit",
					Description: "Maximum user mentions per message",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "duplicate_limit",
					Description: "Identical messages allowed before flagging",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "zalgo",
					Description: "Filter zalgo / combining-character spam",
					Required:    false,
				},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
			Name:        "word",
			Description: "Manage the custom profanity list",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "Add a word to the filter",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "word",
							Description: "Word to filter",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove",
					Description: "Remove a word from the filter",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "word",
							Description: "Word to remove",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "Show the custom word list",
				},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "test",
			Description: "Run a message through the checks without acting on it",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "message",
					Description: "Message content to test",
					Required:    true,
				},
			},
		},
	},
}

func HandleAutomod(s *discordgo.Session, i *discordgo.InteractionCreate, eng *engine.Engine, db *database.Database) {
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
		if _, err := eng.Policies.Update(guildID, policy.Update{AutomodEnabled: &enabled}); err != nil {
			utils.SendError(s, i, "Failed to save settings. Try again shortly.")
			return
		}
		utils.SendSuccess(s, i, "Automod "+onOff(enabled)+".")

	case "config":
		opts := optMap(sub.Options)
		var u policy.Update
		changed := 0

		if o := opts["profanity"]; o != nil {
			v := o.BoolValue()
			u.ProfanityFilter = &v
			changed++
		}
		if o := opts["caps"]; o != nil {
			v := o.BoolValue()
			u.CapsFilter = &v
			changed++
		}
		if o := opts["caps_threshold"]; o != nil {
			v := int(o.IntValue())
			if v < 50 || v > 100 {
				utils.SendError(s, i, "Caps threshold must be between 50 and 100.")
				return
			}
			u.CapsThreshold = &v
			changed++
		}
		if o := opts["emoji_limit"]; o != nil {
			v := int(o.IntValue())
			if v < 1 || v > 100 {
				utils.SendError(s, i, "Emoji limit must be between 1 and 100.")
				return
			}
			u.EmojiSpamLimit = &v
			changed++
		}
		if o := opts["mention_limit"]; o != nil {
			v := int(o.IntValue())
			if v < 1 || v > 50 {
				utils.SendError(s, i, "Mention limit must be between 1 and 50.")
				return
			}
			u.MentionSpamLimit = &v
			changed++
		}
		if o := opts["duplicate_limit"]; o != nil {
			v := int(o.IntValue())
			if v < 2 || v > 20 {
				utils.SendError(s, i, "Duplicate limit must be between 2 and 20.")
				return
			}
			u.DuplicateMessageLimit = &v
			changed++
		}
		if o := opts["zalgo"]; o != nil {
			v := o.BoolValue()
			u.ZalgoFilter = &v
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
		utils.SendSuccess(s, i, fmt.Sprintf("Updated %d automod setting(s).", changed))

	case "word":
		handleAutomodWord(s, i, eng, db, sub)

	case "test":
		opts := optMap(sub.Options)
		content := opts["message"].StringValue()
		p := eng.Policies.Get(guildID)

		// A synthetic subject keeps the duplicate-history of real users
		// out of the dry run.
		checks := eng.Matcher.Evaluate(guildID, "dryrun:"+i.Member.User.ID, content, p, time.Now().UnixMilli())
		if len(checks) == 0 {
			utils.SendSuccess(s, i, "No checks triggered. That message would pass.")
			return
		}
		var lines []string
		for _, c := range checks {
			lines = append(lines, fmt.Sprintf("`%s` (severity %d): %s", c.Type, c.Severity, c.Reason))
		}
		embed := &discordgo.MessageEmbed{
			Title:       utils.EmojiAlert + " Automod Test Result",
			Description: strings.Join(lines, "\n"),
			Color:       utils.ColorOrange,
			Footer: &discordgo.MessageEmbedFooter{
				Text: fmt.Sprintf("Highest severity: %d", threatmatch.MaxSeverity(checks)),
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

func handleAutomodWord(s *discordgo.Session, i *discordgo.InteractionCreate, eng *engine.Engine, db *database.Database, group *discordgo.ApplicationCommandInteractionDataOption) {
	if len(group.Options) == 0 {
		utils.SendError(s, i, "Missing subcommand.")
		return
	}
	sub := group.Options[0]
	guildID := i.GuildID

	switch sub.Name {
	case "add":
		word := strings.ToLower(strings.TrimSpace(optMap(sub.Options)["word"].StringValue()))
		if len(word) < 2 {
			utils.SendError(s, i, "Words must be at least 2 characters.")
			return
		}
		added, err := db.AddProfanityWord(guildID, word, i.Member.User.ID)
		if err != nil {
			utils.SendError(s, i, "Failed to save the word. Try again shortly.")
			return
		}
		if !added {
			utils.SendError(s, i, "That word is already on the list.")
			return
		}
		eng.Matcher.AddWord(word)
		utils.SendSuccess(s, i, "Added `"+word+"` to the word filter.")

	case "remove":
		word := strings.ToLower(strings.TrimSpace(optMap(sub.Options)["word"].StringValue()))
		removed, err := db.RemoveProfanityWord(guildID, word)
		if err != nil {
			utils.SendError(s, i, "Failed to remove the word. Try again shortly.")
			return
		}
		if !removed {
			utils.SendError(s, i, "That word is not on the list.")
			return
		}
		eng.Matcher.RemoveWord(word)
		utils.SendSuccess(s, i, "Removed `"+word+"` from the word filter.")

	case "list":
		words, err := db.GetProfanityWords(guildID)
		if err != nil {
			utils.SendError(s, i, "Failed to load the word list. Try again shortly.")
			return
		}
		if len(words) == 0 {
			utils.SendSuccess(s, i, "No custom words configured. The built-in list still applies.")
			return
		}
		embed := &discordgo.MessageEmbed{
			Title:       "Custom Word Filter",
			Description: utils.Truncate("`"+strings.Join(words, "`, `")+"`", 3800),
			Color:       utils.ColorDark,
			Footer: &discordgo.MessageEmbedFooter{
				Text: fmt.Sprintf("%d word(s)", len(words)),
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
