package utils

const (
	// Emojis
	EmojiTick  = "✅"
	EmojiCross = "❌"
	EmojiAlert = "🚨"
	EmojiVoice = "🔊"

	// Colors
	ColorDark    = 0x2f3136
	ColorGreen   = 0x00FF00
	ColorRed     = 0xFF0000
	ColorOrange  = 0xFFA500
	ColorYellow  = 0xFFCC00
	ColorBlurple = 0x5865F2
)
