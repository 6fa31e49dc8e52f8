package main

import (
	"context"
	"log"
	"os"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"discord-security-bot/internal/bot"
	"discord-security-bot/internal/cache"
	"discord-security-bot/internal/database"
	"discord-security-bot/internal/engine"
	"discord-security-bot/internal/engine/actions"
	"discord-security-bot/internal/engine/policy"
	"discord-security-bot/internal/redis"
	"discord-security-bot/internal/web"
)

type Config struct {
	Token    string                  `json:"token"`
	Redis    redis.Config            `json:"redis"`
	Postgres database.PostgresConfig `json:"postgres"`
	WebAddr  string                  `json:"web_addr"`
}

func main() {
	// CRITICAL Performance optimizations for low latency
	numCPU := runtime.NumCPU()
	runtime.GOMAXPROCS(numCPU) // Use all available CPU cores

	// Aggressive GC tuning for real-time performance
	// Higher GC percentage = less frequent GC = lower latency spikes
	gcPercent := 400
	debug.SetGCPercent(gcPercent)

	// Set memory limit to prevent OOM on 4GB RAM
	memoryLimit := int64(3 * 1024 * 1024 * 1024) // 3GB limit (leave 1GB for OS)
	debug.SetMemoryLimit(memoryLimit)

	log.Println("🚀 Runtime optimized for low latency:")
	log.Printf("   • GOMAXPROCS: %d cores", numCPU)
	log.Printf("   • GC Percent: %d (reduced GC frequency)", gcPercent)
	log.Printf("   • Memory Limit: %d MB", memoryLimit/(1024*1024))

	// Load config
	file, err := os.ReadFile("config.json")
	if err != nil {
		log.Fatalf("Error reading config.json: %v", err)
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		log.Fatalf("Error parsing config.json: %v", err)
	}
	if config.WebAddr == "" {
		config.WebAddr = ":8080"
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Error initializing logger: %v", err)
	}
	defer logger.Sync()

	// Initialize Redis
	rdb, err := redis.New(config.Redis)
	if err != nil {
		log.Fatalf("Error initializing Redis: %v", err)
	}

	// Initialize Database
	db, err := database.NewDatabase(config.Postgres)
	if err != nil {
		log.Fatalf("Error initializing Database: %v", err)
	}
	db.StartPreparedStatementRefresher(context.Background())

	// Policy store with the two-layer cache in front of Postgres
	policyCache, err := cache.NewCache(rdb, cache.Config{DefaultTTL: 5 * time.Minute})
	if err != nil {
		log.Fatalf("Error initializing cache: %v", err)
	}
	policies := policy.NewStore(db, policyCache, logger)

	// The actioner gets its session after the bot is built; the queue
	// worker does not start until then, so tasks never see a nil session.
	actioner := &bot.SessionActioner{}
	queue := actions.NewQueue(actioner, db, logger)
	queue.Aggregates = rdb

	eng, err := engine.New(policies, queue, logger)
	if err != nil {
		log.Fatalf("Error initializing engine: %v", err)
	}

	// Warm the in-memory lists with every guild addition on record
	if words, err := db.AllProfanityWords(); err != nil {
		logger.Warn("word list warm failed", zap.Error(err))
	} else {
		for _, w := range words {
			eng.Matcher.AddWord(w)
		}
		log.Printf("✓ Loaded %d custom words", len(words))
	}
	if domains, err := db.AllBlockedDomains(); err != nil {
		logger.Warn("blocklist warm failed", zap.Error(err))
	} else {
		for _, d := range domains {
			eng.Links.AddDomain(d.Domain, d.Reason)
		}
		log.Printf("✓ Loaded %d blocked domains", len(domains))
	}

	// Initialize bot
	b, err := bot.New(config.Token, db, rdb, eng, logger)
	if err != nil {
		log.Fatalf("Error initializing bot: %v", err)
	}
	actioner.Session = b.Session

	queue.Start()
	eng.StartSweeper(time.Minute)

	// Violation retention: one prune on boot clears any backlog, then
	// a daily sweep keeps the table at 90 days.
	go func() {
		for {
			cutoff := time.Now().Add(-90 * 24 * time.Hour).UnixMilli()
			if n, err := db.PruneViolations(cutoff); err != nil {
				logger.Warn("violation prune failed", zap.Error(err))
			} else if n > 0 {
				logger.Info("pruned old violations", zap.Int64("removed", n))
			}
			time.Sleep(24 * time.Hour)
		}
	}()

	// Operator HTTP surface (status, health, Prometheus)
	srv := web.NewServer(config.WebAddr, db, rdb, eng, policyCache, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("web server failed", zap.Error(err))
		}
	}()

	// Blocks until SIGINT/SIGTERM
	if err := b.Start(); err != nil {
		log.Fatalf("Bot error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
	queue.Stop()
}
