package bot

import (
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Permissions that exempt a member from enforcement.
const moderatorPerms = discordgo.PermissionAdministrator |
	discordgo.PermissionManageGuild |
	discordgo.PermissionModerateMembers |
	discordgo.PermissionKickMembers |
	discordgo.PermissionBanMembers

// isPrivileged reports whether a member holds moderation permissions.
// Results are cached in Redis for a minute; role changes mid-raid are
// rare enough that the stale window is acceptable.
func (b *Bot) isPrivileged(guildID, userID string) bool {
	cacheKey := "priv:" + guildID + ":" + userID
	if val, err := b.Redis.Get(cacheKey); err == nil && val != "" {
		return val == "1"
	}

	privileged := b.checkPrivileged(guildID, userID)

	val := "0"
	if privileged {
		val = "1"
	}
	if err := b.Redis.Set(cacheKey, val, time.Minute); err != nil {
		b.Logger.Debug("privilege cache write failed", zap.Error(err))
	}
	return privileged
}

func (b *Bot) checkPrivileged(guildID, userID string) bool {
	guild, err := b.Session.Guild(guildID)
	if err != nil {
		b.Logger.Debug("guild fetch failed",
			zap.String("guild_id", guildID), zap.Error(err))
		return false
	}
	if guild.OwnerID == userID {
		return true
	}

	member, err := b.Session.GuildMember(guildID, userID)
	if err != nil {
		return false
	}

	roles := make(map[string]*discordgo.Role, len(guild.Roles))
	for _, r := range guild.Roles {
		roles[r.ID] = r
	}
	for _, roleID := range member.Roles {
		r, ok := roles[roleID]
		if !ok {
			continue
		}
		if r.Permissions&int64(moderatorPerms) != 0 {
			return true
		}
	}
	return false
}
