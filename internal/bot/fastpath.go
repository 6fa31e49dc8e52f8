package bot

import (
	"discord-security-bot/internal/metrics"

	"github.com/bwmarrin/discordgo"
	"github.com/tidwall/gjson"
)

// Frame types worth per-guild visibility. Everything else is counted
// under its event name only.
var watchedFrames = map[string]bool{
	"MESSAGE_CREATE":     true,
	"GUILD_MEMBER_ADD":   true,
	"VOICE_STATE_UPDATE": true,
	"GUILD_BAN_ADD":      true,
}

func countGatewayFrame(e *discordgo.Event) {
	metrics.GatewayFrames.WithLabelValues(e.Type).Inc()

	if !watchedFrames[e.Type] || len(e.RawData) == 0 {
		return
	}

	// gjson peeks the guild id out of the raw frame without paying for
	// a full decode; on a hot gateway this path runs thousands of
	// times a second.
	if gid := gjson.GetBytes(e.RawData, "guild_id"); gid.Exists() {
		metrics.GuildFrames.WithLabelValues(e.Type, gid.String()).Inc()
	}
}
