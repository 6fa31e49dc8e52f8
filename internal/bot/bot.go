package bot

import (
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // Register pprof handlers
	"os"
	"os/signal"
	"syscall"
	"time"

	"discord-security-bot/internal/commands"
	"discord-security-bot/internal/database"
	"discord-security-bot/internal/engine"
	"discord-security-bot/internal/redis"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Bot struct {
	Session   *discordgo.Session
	DB        *database.Database
	Redis     *redis.Client
	Engine    *engine.Engine
	StartTime time.Time
	Logger    *zap.Logger

	verification *verificationTracker
}

func New(token string, db *database.Database, rdb *redis.Client, eng *engine.Engine, logger *zap.Logger) (*Bot, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("session error: %w", err)
	}

	// Pooled HTTP/2 transport so enforcement REST calls reuse warm
	// connections. A kick that waits on a TLS handshake is a kick that
	// lands after the raid moved on.
	tr := &http.Transport{
		MaxIdleConns:          500,
		MaxIdleConnsPerHost:   100,
		IdleConnTimeout:       120 * time.Second,
		ForceAttemptHTTP2:     true,
		DisableCompression:    true, // Trade bandwidth for latency
		DisableKeepAlives:     false,
		MaxConnsPerHost:       100,
		ResponseHeaderTimeout: 5 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		WriteBufferSize:       32 * 1024,
		ReadBufferSize:        32 * 1024,
	}

	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsMessageContent |
		discordgo.IntentsGuildBans | // Required for moderation audit events
		discordgo.IntentsDirectMessages // Verification replies arrive in DMs

	// Low-latency WebSocket configuration
	s.Identify.Compress = false

	s.Client = &http.Client{
		Transport: &metricsTransport{base: tr},
		Timeout:   15 * time.Second,
	}

	// Minimal state tracking for lowest overhead; handlers carry the
	// data they need and anything else is fetched on demand.
	s.StateEnabled = false

	s.ShouldReconnectOnError = true
	s.ShouldRetryOnRateLimit = true
	s.MaxRestRetries = 3
	s.Compress = false

	b := &Bot{
		Session:      s,
		DB:           db,
		Redis:        rdb,
		Engine:       eng,
		StartTime:    time.Now(),
		Logger:       logger,
		verification: newVerificationTracker(),
	}

	// The engine owes the bot two callbacks: how to act and who is exempt.
	eng.IsPrivileged = b.isPrivileged

	// Mirror raid transitions into Redis so dashboards and a restarted
	// process can see them. The engine's own transition work runs first.
	prevEnable := eng.Raid.OnEnable
	eng.Raid.OnEnable = func(guildID, trigger string, durationMs int64) {
		prevEnable(guildID, trigger, durationMs)
		ttl := time.Duration(durationMs) * time.Millisecond
		if durationMs <= 0 {
			ttl = 24 * time.Hour
		}
		if err := rdb.SetRaidFlag(guildID, trigger, ttl); err != nil {
			logger.Warn("raid flag mirror failed", zap.String("guild_id", guildID), zap.Error(err))
		}
	}
	prevExit := eng.Raid.OnExit
	eng.Raid.OnExit = func(guildID, trigger string) {
		prevExit(guildID, trigger)
		if err := rdb.ClearRaidFlag(guildID); err != nil {
			logger.Warn("raid flag clear failed", zap.String("guild_id", guildID), zap.Error(err))
		}
	}

	s.AddHandler(b.Ready)
	s.AddHandler(b.GuildCreate)
	s.AddHandler(b.InteractionCreate)
	s.AddHandler(b.MessageCreate)
	s.AddHandler(b.MessageUpdate)
	s.AddHandler(b.GuildMemberAdd)
	s.AddHandler(b.VoiceStateUpdate)
	s.AddHandler(b.RawEvent)

	return b, nil
}

func (b *Bot) Start() error {
	log.Println("⚡ Connecting to Discord Gateway...")

	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("gateway connection failed: %w", err)
	}
	log.Println("✓ Connected to Discord Gateway")

	// Ensure we have the bot user (since state is disabled)
	if b.Session.State.User == nil {
		u, err := b.Session.User("@me")
		if err != nil {
			return fmt.Errorf("failed to get bot user: %w", err)
		}
		b.Session.State.User = u
	}
	log.Printf("✓ Logged in as: %s (ID: %s)",
		b.Session.State.User.Username, b.Session.State.User.ID)

	go b.monitorHeartbeat()

	log.Println("Registering commands...")
	_, err := b.Session.ApplicationCommandBulkOverwrite(b.Session.State.User.ID, "", commands.Commands)
	if err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}
	log.Printf("✓ Registered %d commands", len(commands.Commands))

	log.Println("\n🚀 Security engine is running!")

	// Start pprof server
	go func() {
		log.Println("Starting pprof server on localhost:6060")
		log.Println(http.ListenAndServe("localhost:6060", nil))
	}()

	// Wait for interrupt
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	return b.Close()
}

func (b *Bot) Close() error {
	log.Println("Shutting down...")
	if b.Logger != nil {
		b.Logger.Sync()
	}
	b.Engine.StopSweeper()
	b.DB.Close()
	b.Redis.Close()
	return b.Session.Close()
}

// monitorHeartbeat logs WebSocket heartbeat latency periodically.
func (b *Bot) monitorHeartbeat() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		latencyMs := b.Session.HeartbeatLatency().Milliseconds()
		if latencyMs > 100 {
			b.Logger.Warn("gateway latency high", zap.Int64("latency_ms", latencyMs))
		} else {
			b.Logger.Debug("gateway latency", zap.Int64("latency_ms", latencyMs))
		}
	}
}
