package bot

import (
	"bytes"
	"strings"
	"sync"
	"time"

	"discord-security-bot/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const verificationWindow = 5 * time.Minute

type verificationSession struct {
	guildID string
	code    string
	timer   *time.Timer
}

// verificationTracker holds pending captcha sessions keyed by user id.
// A user can only verify for one guild at a time; a second join
// replaces the first session.
type verificationTracker struct {
	mu       sync.Mutex
	sessions map[string]*verificationSession
}

func newVerificationTracker() *verificationTracker {
	return &verificationTracker{sessions: make(map[string]*verificationSession)}
}

func (t *verificationTracker) put(userID string, s *verificationSession) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if old, ok := t.sessions[userID]; ok {
		old.timer.Stop()
	}
	t.sessions[userID] = s
}

func (t *verificationTracker) take(userID string) (*verificationSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[userID]
	if ok {
		s.timer.Stop()
		delete(t.sessions, userID)
	}
	return s, ok
}

func (t *verificationTracker) expire(userID string) (*verificationSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[userID]
	if ok {
		delete(t.sessions, userID)
	}
	return s, ok
}

// startVerification DMs a captcha to a flagged joiner. No answer inside
// the window means a kick; a correct answer clears the suspicion flag.
func (b *Bot) startVerification(guildID string, user *discordgo.User) {
	captcha, err := utils.GenerateCaptcha()
	if err != nil {
		b.Logger.Error("captcha generation failed", zap.Error(err))
		return
	}

	dm, err := b.Session.UserChannelCreate(user.ID)
	if err != nil {
		// Closed DMs. Can't verify someone unreachable; leave them
		// flagged for moderators.
		b.Logger.Info("verification DM failed, user unreachable",
			zap.String("guild_id", guildID), zap.String("user_id", user.ID))
		return
	}

	p := b.Engine.Policies.Get(guildID)
	_, err = b.Session.ChannelMessageSendComplex(dm.ID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{utils.VerificationPromptEmbed(user.Username, p.RulesChannel)},
		Files: []*discordgo.File{{
			Name:        "captcha.png",
			ContentType: "image/png",
			Reader:      bytes.NewReader(captcha.Image),
		}},
	})
	if err != nil {
		b.Logger.Warn("verification prompt send failed", zap.Error(err))
		return
	}

	session := &verificationSession{guildID: guildID, code: captcha.Code}
	session.timer = time.AfterFunc(verificationWindow, func() {
		if _, ok := b.verification.expire(user.ID); !ok {
			return
		}
		b.Logger.Info("verification timed out, kicking",
			zap.String("guild_id", guildID), zap.String("user_id", user.ID))
		if err := b.Session.GuildMemberDeleteWithReason(guildID, user.ID,
			"verification not completed"); err != nil {
			b.Logger.Warn("verification kick failed", zap.Error(err))
		}
	})
	b.verification.put(user.ID, session)
}

// handleVerificationReply checks a DM against the pending captcha.
func (b *Bot) handleVerificationReply(m *discordgo.MessageCreate) {
	session, ok := b.verification.take(m.Author.ID)
	if !ok {
		return
	}

	if !strings.EqualFold(strings.TrimSpace(m.Content), session.code) {
		// One shot per prompt; keep the clock running on a fresh code.
		b.Session.ChannelMessageSend(m.ChannelID, utils.EmojiCross+" Wrong code. A new captcha is on its way.")
		user := m.Author
		b.startVerification(session.guildID, user)
		return
	}

	b.Engine.ClearSuspicious(session.guildID, m.Author.ID)
	b.Session.ChannelMessageSend(m.ChannelID, utils.EmojiTick+" Verified. Welcome aboard!")
	b.Logger.Info("verification passed",
		zap.String("guild_id", session.guildID), zap.String("user_id", m.Author.ID))
}
