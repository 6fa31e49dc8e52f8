package bot

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
)

// SessionActioner drives enforcement through the Discord session. It is
// the live implementation of the action queue's platform surface.
type SessionActioner struct {
	Session *discordgo.Session
}

func (a *SessionActioner) Timeout(guildID, userID string, duration time.Duration, reason string) error {
	until := time.Now().Add(duration)
	if err := a.Session.GuildMemberTimeout(guildID, userID, &until); err != nil {
		return fmt.Errorf("timeout %s in %s: %w", userID, guildID, err)
	}
	return nil
}

func (a *SessionActioner) Kick(guildID, userID, reason string) error {
	if err := a.Session.GuildMemberDeleteWithReason(guildID, userID, reason); err != nil {
		return fmt.Errorf("kick %s from %s: %w", userID, guildID, err)
	}
	return nil
}

func (a *SessionActioner) AssignRole(guildID, userID, roleID string) error {
	if roleID == "" {
		return fmt.Errorf("no quarantine role configured for %s", guildID)
	}
	if err := a.Session.GuildMemberRoleAdd(guildID, userID, roleID); err != nil {
		return fmt.Errorf("assign role %s to %s: %w", roleID, userID, err)
	}
	return nil
}

func (a *SessionActioner) DeleteMessage(channelID, messageID string) error {
	if err := a.Session.ChannelMessageDelete(channelID, messageID); err != nil {
		return fmt.Errorf("delete message %s: %w", messageID, err)
	}
	return nil
}

func (a *SessionActioner) Notify(channelID string, embed *discordgo.MessageEmbed) error {
	_, err := a.Session.ChannelMessageSendEmbed(channelID, embed)
	if err != nil {
		return fmt.Errorf("notify %s: %w", channelID, err)
	}
	return nil
}
