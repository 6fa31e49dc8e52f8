package commands

import "github.com/bwmarrin/discordgo"

// Commands is the full slash-command surface, registered per guild on
// Ready and bulk-overwritten globally on startup.
var Commands = []*discordgo.ApplicationCommand{
	RaidMode,
	AntiRaid,
	Automod,
	LinkFilter,
	Whitelist,
	Warn,
	Warnings,
	Unwarn,
	ClearWarnings,
	Suspicious,
	Stats,
	Ping,
	Help,
}
