package policy

import (
	"context"
	"sync"
	"time"

	"discord-security-bot/internal/models"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

const cacheTTL = 5 * time.Minute

// Backend is the persistence surface the store needs. Implemented by
// the database package; tests substitute an in-memory fake.
type Backend interface {
	GetGuildSettings(guildID string) (*models.GuildPolicy, bool, error)
	UpsertGuildSettings(p *models.GuildPolicy) error
}

// CacheLayer is the optional read-through cache in front of the backend.
// Values are stored as JSON strings so the L2 (Redis) layer can hold
// them unchanged. Satisfied by internal/cache.Cache.
type CacheLayer interface {
	Get(ctx context.Context, key string, fetch func() (interface{}, error)) (interface{}, error)
	Delete(key string)
}

// Store resolves fully-defaulted guild policies. A guild unknown to the
// backend gets the hard-coded defaults created and persisted on first
// access; a backend failure degrades to defaults rather than surfacing
// an error, so event processing never stalls on configuration.
type Store struct {
	backend Backend
	cache   CacheLayer
	logger  *zap.Logger

	mu sync.Mutex // serializes read-merge-write update cycles
}

func NewStore(backend Backend, cache CacheLayer, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{backend: backend, cache: cache, logger: logger}
}

func cacheKey(guildID string) string {
	return "policy:" + guildID
}

// Get returns the resolved policy for a guild. Never fails and never
// returns a partially-populated record.
func (s *Store) Get(guildID string) *models.GuildPolicy {
	if s.cache == nil {
		return s.fetch(guildID)
	}

	val, err := s.cache.Get(context.Background(), cacheKey(guildID), func() (interface{}, error) {
		raw, err := json.Marshal(s.fetch(guildID))
		return string(raw), err
	})
	if err != nil {
		s.logger.Warn("policy cache fetch failed, using defaults",
			zap.String("guild_id", guildID), zap.Error(err))
		return models.DefaultPolicy(guildID)
	}

	raw, ok := val.(string)
	if !ok {
		return s.fetch(guildID)
	}
	var p models.GuildPolicy
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		s.logger.Warn("corrupt cached policy, refetching",
			zap.String("guild_id", guildID), zap.Error(err))
		s.cache.Delete(cacheKey(guildID))
		return s.fetch(guildID)
	}
	return &p
}

// fetch loads from the backend, lazily creating the default record.
func (s *Store) fetch(guildID string) *models.GuildPolicy {
	p, found, err := s.backend.GetGuildSettings(guildID)
	if err != nil {
		s.logger.Error("settings read failed, using defaults",
			zap.String("guild_id", guildID), zap.Error(err))
		return models.DefaultPolicy(guildID)
	}
	if !found {
		p = models.DefaultPolicy(guildID)
		if err := s.backend.UpsertGuildSettings(p); err != nil {
			s.logger.Error("default settings persist failed",
				zap.String("guild_id", guildID), zap.Error(err))
		}
	}
	return p
}

// Update applies a partial merge and persists the result. Out-of-range
// values are accepted as-is; degenerate thresholds are the operator's
// choice, not an error.
func (s *Store) Update(guildID string, u Update) (*models.GuildPolicy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := Merge(s.fetch(guildID), u)
	if err := s.backend.UpsertGuildSettings(merged); err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Delete(cacheKey(guildID))
	}
	return merged, nil
}

// Invalidate drops the cached policy for a guild.
func (s *Store) Invalidate(guildID string) {
	if s.cache != nil {
		s.cache.Delete(cacheKey(guildID))
	}
}
