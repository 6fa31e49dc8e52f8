package commands

import (
	"fmt"
	"strings"

	"discord-security-bot/internal/database"
	"discord-security-bot/internal/engine"
	"discord-security-bot/internal/engine/policy"
	"discord-security-bot/internal/utils"

	"github.com/bwmarrin/discordgo"
)

var LinkFilter = &discordgo.ApplicationCommand{
	Name:        "linkfilter",
	Description: "Configure scam and phishing link detection",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "enable",
			Description: "Enable the link filter",
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "disable",
			Description: "Disable the link filter",
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "config",
			Description: "Change link filter settings",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "block_shorteners",
					Description: "Flag URL shorteners like bit.ly",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "strict",
					Description: "Also flag malformed or unparseable URLs",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "auto_timeout",
					Description: "Time out users who post scam links",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "timeout_duration",
					Description: "Scam timeout length (e.g. 10m, 1h)",
					Required:    false,
				},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
			Name:        "blacklist",
			Description: "Manage blocked domains",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "Block a domain",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "domain",
							Description: "Domain to block (e.g. free-nitro.xyz)",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "reason",
							Description: "Why the domain is blocked",
							Required:    false,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove",
					Description: "Unblock a domain",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "domain",
							Description: "Domain to unblock",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "Show blocked domains",
				},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "check",
			Description: "Check how a URL would be classified",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "url",
					Description: "URL to classify",
					Required:    true,
				},
			},
		},
	},
}

func HandleLinkFilter(s *discordgo.Session, i *discordgo.InteractionCreate, eng *engine.Engine, db *database.Database) {
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
		if _, err := eng.Policies.Update(guildID, policy.Update{LinkFilterEnabled: &enabled}); err != nil {
			utils.SendError(s, i, "Failed to save settings. Try again shortly.")
			return
		}
		utils.SendSuccess(s, i, "Link filter "+onOff(enabled)+".")

	case "config":
		opts := optMap(sub.Options)
		var u policy.Update
		changed := 0

		if o := opts["block_shorteners"]; o != nil {
			v := o.BoolValue()
			u.BlockURLShorteners = &v
			changed++
		}
		if o := opts["strict"]; o != nil {
			v := o.BoolValue()
			u.StrictMode = &v
			changed++
		}
		if o := opts["auto_timeout"]; o != nil {
			v := o.BoolValue()
			u.AutoTimeoutScam = &v
			changed++
		}
		if o := opts["timeout_duration"]; o != nil {
			ms, err := parseDuration(o.StringValue())
			if err != nil {
				utils.SendError(s, i, "Invalid duration. Use formats like `10m` or `1h`.")
				return
			}
			u.ScamTimeoutMs = &ms
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
		utils.SendSuccess(s, i, fmt.Sprintf("Updated %d link filter setting(s).", changed))

	case "blacklist":
		handleLinkBlacklist(s, i, eng, db, sub)

	case "check":
		raw := optMap(sub.Options)["url"].StringValue()
		p := eng.Policies.Get(guildID)
		check := eng.Links.CheckURL(raw, p)

		if check.Safe {
			utils.SendSuccess(s, i, "`"+utils.Truncate(raw, 100)+"` looks clean under the current settings.")
			return
		}
		embed := &discordgo.MessageEmbed{
			Title: utils.EmojiAlert + " URL Flagged",
			Color: utils.ColorRed,
			Fields: []*discordgo.MessageEmbedField{
				{Name: "URL", Value: "`" + utils.Truncate(raw, 200) + "`", Inline: false},
				{Name: "Domain", Value: "`" + check.Domain + "`", Inline: true},
				{Name: "Threat Level", Value: fmt.Sprintf("`%d/10`", check.Severity), Inline: true},
				{Name: "Threats", Value: strings.Join(check.Threats, ", "), Inline: false},
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

func handleLinkBlacklist(s *discordgo.Session, i *discordgo.InteractionCreate, eng *engine.Engine, db *database.Database, group *discordgo.ApplicationCommandInteractionDataOption) {
	if len(group.Options) == 0 {
		utils.SendError(s, i, "Missing subcommand.")
		return
	}
	sub := group.Options[0]
	guildID := i.GuildID

	switch sub.Name {
	case "add":
		opts := optMap(sub.Options)
		domain := strings.ToLower(strings.TrimSpace(opts["domain"].StringValue()))
		domain = strings.TrimPrefix(strings.TrimPrefix(domain, "https://"), "http://")
		domain = strings.TrimSuffix(domain, "/")
		if !strings.Contains(domain, ".") {
			utils.SendError(s, i, "That does not look like a domain.")
			return
		}
		reason := "manually blocked"
		if opts["reason"] != nil {
			reason = opts["reason"].StringValue()
		}
		added, err := db.AddBlockedDomain(guildID, domain, reason, i.Member.User.ID)
		if err != nil {
			utils.SendError(s, i, "Failed to save the domain. Try again shortly.")
			return
		}
		if !added {
			utils.SendError(s, i, "That domain is already blocked.")
			return
		}
		eng.Links.AddDomain(domain, reason)
		utils.SendSuccess(s, i, "Blocked `"+domain+"`.")

	case "remove":
		domain := strings.ToLower(strings.TrimSpace(optMap(sub.Options)["domain"].StringValue()))
		removed, err := db.RemoveBlockedDomain(guildID, domain)
		if err != nil {
			utils.SendError(s, i, "Failed to remove the domain. Try again shortly.")
			return
		}
		if !removed {
			utils.SendError(s, i, "That domain is not on the blocklist.")
			return
		}
		eng.Links.RemoveDomain(domain)
		utils.SendSuccess(s, i, "Unblocked `"+domain+"`.")

	case "list":
		rows, err := db.GetBlockedDomains(guildID)
		if err != nil {
			utils.SendError(s, i, "Failed to load the blocklist. Try again shortly.")
			return
		}
		if len(rows) == 0 {
			utils.SendSuccess(s, i, "No custom domains blocked. The built-in blocklist still applies.")
			return
		}
		var lines []string
		for _, r := range rows {
			lines = append(lines, fmt.Sprintf("`%s` - %s", r.Domain, r.Reason))
		}
		embed := &discordgo.MessageEmbed{
			Title:       "Blocked Domains",
			Description: utils.Truncate(strings.Join(lines, "\n"), 3800),
			Color:       utils.ColorDark,
			Footer: &discordgo.MessageEmbedFooter{
				Text: fmt.Sprintf("%d domain(s)", len(rows)),
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
