package bot

import (
	"log"
	"strings"
	"time"

	"discord-security-bot/internal/commands"
	"discord-security-bot/internal/engine"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func (b *Bot) Ready(s *discordgo.Session, r *discordgo.Ready) {
	// Manually populate state user since state tracking is disabled
	if s.State.User == nil {
		s.State.User = r.User
	}

	log.Printf("Logged in as: %v#%v", r.User.Username, r.User.Discriminator)
	log.Printf("Serving %d guilds", len(r.Guilds))

	// Register commands for each guild to ensure instant updates
	for _, guild := range r.Guilds {
		if _, err := s.ApplicationCommandBulkOverwrite(r.User.ID, guild.ID, commands.Commands); err != nil {
			log.Printf("Failed to register commands for guild %s: %v", guild.ID, err)
		}
	}
}

func (b *Bot) GuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	log.Printf("Guild joined/loaded: %s (%s)", g.Name, g.ID)

	// Warm the policy cache so the first event does not pay the DB trip
	p := b.Engine.Policies.Get(g.ID)

	// A restart inside an active raid must not drop the guard; the Redis
	// flag outlives the in-memory controller.
	if trigger, ok := b.Redis.GetRaidFlag(g.ID); ok {
		if b.Engine.Raid.Enable(g.ID, trigger, p.RaidModeDurationMs) {
			log.Printf("Restored active raid mode for guild %s (trigger: %s)", g.ID, trigger)
		}
	}

	if _, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, g.ID, commands.Commands); err != nil {
		log.Printf("Failed to register commands for guild %s: %v", g.ID, err)
	}
}

func (b *Bot) InteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	switch i.ApplicationCommandData().Name {
	case "raidmode":
		commands.HandleRaidMode(s, i, b.Engine)
	case "antiraid":
		commands.HandleAntiRaid(s, i, b.Engine)
	case "automod":
		commands.HandleAutomod(s, i, b.Engine, b.DB)
	case "linkfilter":
		commands.HandleLinkFilter(s, i, b.Engine, b.DB)
	case "whitelist":
		commands.HandleWhitelist(s, i, b.Engine)
	case "warn":
		commands.HandleWarn(s, i, b.DB, b.Engine)
	case "warnings":
		commands.HandleWarnings(s, i, b.DB)
	case "unwarn":
		commands.HandleUnwarn(s, i, b.DB)
	case "clearwarnings":
		commands.HandleClearWarnings(s, i, b.DB)
	case "suspicious":
		commands.HandleSuspicious(s, i, b.Engine)
	case "security-stats":
		commands.HandleStats(s, i, b.DB, b.Redis, b.Engine, b.StartTime)
	case "ping":
		commands.HandlePing(s, i, b.DB, b.Redis)
	case "help":
		commands.HandleHelp(s, i)
	}
}

func (b *Bot) MessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	// DMs only matter for pending verification answers.
	if m.GuildID == "" {
		b.handleVerificationReply(m)
		return
	}

	b.Engine.HandleMessage(engine.MessageEvent{
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		MessageID: m.ID,
		UserID:    m.Author.ID,
		Content:   m.Content,
		Timestamp: time.Now().UnixMilli(),
	})
}

// MessageUpdate re-runs content checks: editing a clean message into a
// scam link is a classic evasion.
func (b *Bot) MessageUpdate(s *discordgo.Session, m *discordgo.MessageUpdate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" || m.Content == "" {
		return
	}

	b.Engine.HandleMessage(engine.MessageEvent{
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		MessageID: m.ID,
		UserID:    m.Author.ID,
		Content:   m.Content,
		Timestamp: time.Now().UnixMilli(),
	})
}

func (b *Bot) GuildMemberAdd(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if m.User == nil || m.User.Bot {
		return
	}

	created, err := discordgo.SnowflakeTimestamp(m.User.ID)
	if err != nil {
		created = time.Now()
	}

	verdict := b.Engine.HandleJoin(engine.JoinEvent{
		GuildID:          m.GuildID,
		UserID:           m.User.ID,
		Username:         m.User.Username,
		AccountCreatedAt: created,
		HasAvatar:        m.User.Avatar != "",
		Timestamp:        time.Now().UnixMilli(),
	})

	if verdict.NeedsVerification {
		b.startVerification(m.GuildID, m.User)
	}
}

// VoiceStateUpdate watches for mass moderation abuse in voice channels.
// A disconnect has no executor on the gateway event, so the audit log
// supplies the attribution.
func (b *Bot) VoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if v.BeforeUpdate == nil || v.BeforeUpdate.ChannelID == "" || v.ChannelID != "" {
		return
	}

	entry, ok := b.lastDisconnectEntry(v.GuildID, v.UserID)
	if !ok {
		return
	}

	b.Engine.HandleVoice(engine.VoiceEvent{
		GuildID:    v.GuildID,
		ExecutorID: entry,
		TargetID:   v.UserID,
		Action:     "disconnect",
		Timestamp:  time.Now().UnixMilli(),
	})
}

// lastDisconnectEntry attributes a voice disconnect via the audit log.
func (b *Bot) lastDisconnectEntry(guildID, targetID string) (string, bool) {
	audit, err := b.Session.GuildAuditLog(guildID, "", "",
		int(discordgo.AuditLogActionMemberDisconnect), 5)
	if err != nil {
		b.Logger.Debug("audit log fetch failed",
			zap.String("guild_id", guildID), zap.Error(err))
		return "", false
	}

	for _, e := range audit.AuditLogEntries {
		if e.UserID == "" || e.UserID == b.Session.State.User.ID {
			continue
		}
		// Disconnect entries carry no target; take the newest recent one.
		ts, terr := discordgo.SnowflakeTimestamp(e.ID)
		if terr != nil || time.Since(ts) > 15*time.Second {
			continue
		}
		return e.UserID, true
	}
	return "", false
}

// RawEvent counts every gateway frame on the fast path without a full
// unmarshal; a sudden flood of one event type is visible on the
// dashboard before the engine feels it.
func (b *Bot) RawEvent(s *discordgo.Session, e *discordgo.Event) {
	if e.Type == "" || strings.HasPrefix(e.Type, "__") {
		return
	}
	countGatewayFrame(e)
}
