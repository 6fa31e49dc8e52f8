package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq"
)

type Database struct {
	db               *sql.DB
	PreparedPingStmt *sql.Stmt
	PreparedStmts    *PreparedStatements
	// Cache for ping results
	lastPingTime   time.Time
	lastPingError  error
	pingCacheMutex sync.RWMutex
}

type PostgresConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"sslmode"`
}

const schema = `
-- Guild settings table: one fully-defaulted policy row per guild
CREATE TABLE IF NOT EXISTS guild_settings (
    guild_id TEXT PRIMARY KEY,
    enabled BOOLEAN DEFAULT TRUE,

    spam_threshold INTEGER DEFAULT 5,
    spam_window_ms BIGINT DEFAULT 5000,
    voice_threshold INTEGER DEFAULT 3,
    voice_window_ms BIGINT DEFAULT 10000,

    timeout1_ms BIGINT DEFAULT 60000,
    timeout2_ms BIGINT DEFAULT 3600000,
    reset_after_ms BIGINT DEFAULT 300000,

    log_channel TEXT DEFAULT '',
    verification_channel TEXT DEFAULT '',
    rules_channel TEXT DEFAULT '',
    whitelist TEXT DEFAULT '[]',

    antiraid_enabled BOOLEAN DEFAULT TRUE,
    join_threshold INTEGER DEFAULT 5,
    min_account_age_days INTEGER DEFAULT 7,
    suspicion_threshold INTEGER DEFAULT 5,
    auto_kick_suspicious BOOLEAN DEFAULT TRUE,
    quarantine_role TEXT DEFAULT '',
    raid_mode_action TEXT DEFAULT 'quarantine',
    raid_mode_duration_ms BIGINT DEFAULT 600000,
    verification_enabled BOOLEAN DEFAULT FALSE,

    link_filter_enabled BOOLEAN DEFAULT TRUE,
    block_url_shorteners BOOLEAN DEFAULT TRUE,
    strict_mode BOOLEAN DEFAULT FALSE,
    auto_timeout_scam BOOLEAN DEFAULT TRUE,
    scam_timeout_ms BIGINT DEFAULT 600000,

    automod_enabled BOOLEAN DEFAULT TRUE,
    profanity_filter BOOLEAN DEFAULT TRUE,
    caps_filter BOOLEAN DEFAULT TRUE,
    caps_threshold INTEGER DEFAULT 70,
    emoji_spam_limit INTEGER DEFAULT 10,
    mention_spam_limit INTEGER DEFAULT 5,
    duplicate_message_limit INTEGER DEFAULT 3,
    zalgo_filter BOOLEAN DEFAULT TRUE,

    warning_system_enabled BOOLEAN DEFAULT TRUE,
    max_warnings INTEGER DEFAULT 3,

    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL
);

-- Violations table: immutable enforcement records
CREATE TABLE IF NOT EXISTS violations (
    id SERIAL PRIMARY KEY,
    guild_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    type TEXT NOT NULL,
    severity INTEGER DEFAULT 0,
    reason TEXT DEFAULT '',
    action TEXT DEFAULT 'none',
    evidence TEXT DEFAULT '',
    timestamp BIGINT NOT NULL
);

-- Per-guild aggregate counters
CREATE TABLE IF NOT EXISTS guild_stats (
    guild_id TEXT PRIMARY KEY,
    total_violations BIGINT DEFAULT 0,
    spam_detected BIGINT DEFAULT 0,
    voice_abuse_detected BIGINT DEFAULT 0,
    timeouts_issued BIGINT DEFAULT 0,
    kicks_issued BIGINT DEFAULT 0,
    scam_blocked BIGINT DEFAULT 0,
    automod_triggers BIGINT DEFAULT 0,
    warnings_issued BIGINT DEFAULT 0
);

-- Moderator-issued warnings
CREATE TABLE IF NOT EXISTS warnings (
    id SERIAL PRIMARY KEY,
    guild_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    moderator_id TEXT NOT NULL,
    reason TEXT DEFAULT '',
    timestamp BIGINT NOT NULL
);

-- Guild additions to the domain blocklist
CREATE TABLE IF NOT EXISTS blocklist_domains (
    id SERIAL PRIMARY KEY,
    guild_id TEXT NOT NULL,
    domain TEXT NOT NULL,
    reason TEXT DEFAULT '',
    added_by TEXT DEFAULT '',
    created_at BIGINT NOT NULL,
    UNIQUE(guild_id, domain)
);

-- Guild additions to the profanity word list
CREATE TABLE IF NOT EXISTS profanity_words (
    id SERIAL PRIMARY KEY,
    guild_id TEXT NOT NULL,
    word TEXT NOT NULL,
    added_by TEXT DEFAULT '',
    created_at BIGINT NOT NULL,
    UNIQUE(guild_id, word)
);

-- Create indexes for better performance
CREATE INDEX IF NOT EXISTS idx_violations_guild ON violations(guild_id);
CREATE INDEX IF NOT EXISTS idx_violations_guild_user ON violations(guild_id, user_id);
CREATE INDEX IF NOT EXISTS idx_violations_timestamp ON violations(timestamp);
CREATE INDEX IF NOT EXISTS idx_warnings_guild_user ON warnings(guild_id, user_id);
CREATE INDEX IF NOT EXISTS idx_blocklist_guild ON blocklist_domains(guild_id);
CREATE INDEX IF NOT EXISTS idx_profanity_guild ON profanity_words(guild_id);
`

func NewDatabase(cfg PostgresConfig) (*Database, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	// Add TCP_NODELAY for ultra-low latency
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s tcp_user_timeout=1000",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, sslMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	// Configure connection pool for ultra-low latency
	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(50)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(1 * time.Hour)

	// Execute schema
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	// Prepare the ping statement for ultra-low latency
	pingStmt, err := db.Prepare("SELECT 1")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare ping statement: %w", err)
	}

	d := &Database{
		db:               db,
		PreparedPingStmt: pingStmt,
	}

	// Pre-warm connections by executing the prepared statement
	for i := 0; i < 20; i++ {
		var result int
		pingStmt.QueryRow().Scan(&result)
	}

	// Initialize prepared statements for fast queries
	if err := d.InitPreparedStatements(); err != nil {
		return nil, fmt.Errorf("failed to init prepared statements: %w", err)
	}

	// Start automatic re-preparation on DB reconnect
	d.StartPreparedStatementRefresher(context.Background())

	return d, nil
}

func (d *Database) Close() error {
	if d.PreparedPingStmt != nil {
		d.PreparedPingStmt.Close()
	}
	d.ClosePreparedStatements()
	return d.db.Close()
}

func (d *Database) Ping() error {
	// Use prepared statement for fastest possible ping
	var err error
	if d.PreparedPingStmt != nil {
		var result int
		err = d.PreparedPingStmt.QueryRow().Scan(&result)
	} else {
		err = d.db.Ping()
	}
	return err
}

// PingCached returns the last ping result if fresh, re-pinging at most
// once per second. Used by the health endpoint.
func (d *Database) PingCached() error {
	d.pingCacheMutex.RLock()
	if time.Since(d.lastPingTime) < time.Second {
		err := d.lastPingError
		d.pingCacheMutex.RUnlock()
		return err
	}
	d.pingCacheMutex.RUnlock()

	err := d.Ping()
	d.pingCacheMutex.Lock()
	d.lastPingTime = time.Now()
	d.lastPingError = err
	d.pingCacheMutex.Unlock()
	return err
}
