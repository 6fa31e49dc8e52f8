package commands

import (
	"fmt"
	"strconv"
	"strings"

	"discord-security-bot/internal/utils"

	"github.com/bwmarrin/discordgo"
)

func parseDuration(str string) (int64, error) {
	str = strings.ToLower(str)
	if len(str) < 2 {
		return 0, fmt.Errorf("invalid length")
	}
	unit := str[len(str)-1]
	valStr := str[:len(str)-1]

	val, err := strconv.Atoi(valStr)
	if err != nil {
		return 0, err
	}

	switch unit {
	case 's':
		return int64(val * 1000), nil
	case 'm':
		return int64(val * 60 * 1000), nil
	case 'h':
		return int64(val * 60 * 60 * 1000), nil
	case 'd':
		return int64(val * 24 * 60 * 60 * 1000), nil
	default:
		return 0, fmt.Errorf("unknown unit")
	}
}

// optMap flattens a slice of interaction options into a name lookup.
func optMap(opts []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, o := range opts {
		m[o.Name] = o
	}
	return m
}

// requireManageGuild gates configuration commands behind the Manage
// Server permission. Replies with an ephemeral error when denied.
func requireManageGuild(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	if i.Member == nil || i.Member.Permissions&discordgo.PermissionManageGuild == 0 {
		utils.SendError(s, i, "You need the **Manage Server** permission to use this command.")
		return false
	}
	return true
}

// requireModerateMembers gates enforcement commands (warn, clear).
func requireModerateMembers(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	if i.Member == nil || i.Member.Permissions&(discordgo.PermissionModerateMembers|discordgo.PermissionManageGuild) == 0 {
		utils.SendError(s, i, "You need the **Timeout Members** permission to use this command.")
		return false
	}
	return true
}

func onOff(b bool) string {
	if b {
		return utils.EmojiTick + " enabled"
	}
	return utils.EmojiCross + " disabled"
}
