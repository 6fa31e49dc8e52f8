package commands

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"discord-security-bot/internal/database"
	"discord-security-bot/internal/engine"
	"discord-security-bot/internal/redis"
	"discord-security-bot/internal/utils"

	"github.com/bwmarrin/discordgo"
)

var Stats = &discordgo.ApplicationCommand{
	Name:        "security-stats",
	Description: "Show detection and enforcement statistics for this server",
}

func HandleStats(s *discordgo.Session, i *discordgo.InteractionCreate, db *database.Database, rdb *redis.Client, eng *engine.Engine, startTime time.Time) {
	if !requireModerateMembers(s, i) {
		return
	}

	guildID := i.GuildID
	now := time.Now()

	stats, err := db.GetGuildStats(guildID)
	if err != nil {
		utils.SendError(s, i, "Failed to load statistics. Try again shortly.")
		return
	}
	js := eng.JoinStats(guildID, now.UnixMilli())
	raidState := "normal"
	if eng.RaidStatus(guildID).Active {
		raidState = utils.EmojiAlert + " raid mode"
	}

	embed := &discordgo.MessageEmbed{
		Title: "Security Statistics",
		Color: utils.ColorDark,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Total Violations", Value: fmt.Sprintf("`%d`", stats.TotalViolations), Inline: true},
			{Name: "Spam", Value: fmt.Sprintf("`%d`", stats.SpamDetected), Inline: true},
			{Name: "Voice Abuse", Value: fmt.Sprintf("`%d`", stats.VoiceAbuseDetected), Inline: true},
			{Name: "Automod Triggers", Value: fmt.Sprintf("`%d`", stats.AutomodTriggers), Inline: true},
			{Name: "Scam Links Blocked", Value: fmt.Sprintf("`%d`", stats.ScamBlocked), Inline: true},
			{Name: "Warnings Issued", Value: fmt.Sprintf("`%d`", stats.WarningsIssued), Inline: true},
			{Name: "Timeouts", Value: fmt.Sprintf("`%d`", stats.TimeoutsIssued), Inline: true},
			{Name: "Kicks", Value: fmt.Sprintf("`%d`", stats.KicksIssued), Inline: true},
			{Name: "State", Value: raidState, Inline: true},
			{Name: "Joins (1m / 5m / 1h)", Value: fmt.Sprintf("`%d` / `%d` / `%d`", js.LastMinute, js.Last5Min, js.LastHour), Inline: false},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Uptime: %s", now.Sub(startTime).Round(time.Second)),
		},
		Timestamp: now.Format(time.RFC3339),
	}

	// Leaderboard is best effort; Redis being down should not hide the
	// rest of the stats.
	if offenders, err := rdb.TopOffenders(guildID, 5); err == nil && len(offenders) > 0 {
		type row struct {
			id    string
			count int64
		}
		rows := make([]row, 0, len(offenders))
		for id, n := range offenders {
			rows = append(rows, row{id, n})
		}
		sort.Slice(rows, func(a, b int) bool { return rows[a].count > rows[b].count })
		var lines []string
		for _, r := range rows {
			lines = append(lines, fmt.Sprintf("<@%s> - `%d`", r.id, r.count))
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Top Offenders",
			Value:  strings.Join(lines, "\n"),
			Inline: false,
		})
	}
	if daily, err := rdb.GetDailyViolations(guildID, now.UTC().Format("2006-01-02")); err == nil && len(daily) > 0 {
		types := make([]string, 0, len(daily))
		for t := range daily {
			types = append(types, t)
		}
		sort.Strings(types)
		var lines []string
		for _, t := range types {
			lines = append(lines, fmt.Sprintf("`%s` - `%d`", t, daily[t]))
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Today",
			Value:  strings.Join(lines, "\n"),
			Inline: false,
		})
	}

	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
}
