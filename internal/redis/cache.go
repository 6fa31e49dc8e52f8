package redis

import (
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Notification cooldowns. A spamming user triggers the same automod
// notice many times in a burst; the cooldown keeps the channel readable.

func (c *Client) SetNotifyCooldown(guildID, userID string, duration time.Duration) error {
	key := fmt.Sprintf("notify:%s:%s", guildID, userID)
	return c.Set(key, 1, duration)
}

func (c *Client) CheckNotifyCooldown(guildID, userID string) (time.Duration, bool) {
	key := fmt.Sprintf("notify:%s:%s", guildID, userID)
	ttl := c.client.TTL(ctx, key).Val()
	if ttl <= 0 {
		return 0, false
	}
	return ttl, true
}

// Raid mode flag. Mirrored to Redis so dashboards and sibling
// processes can see it without asking the bot.

func (c *Client) SetRaidFlag(guildID, trigger string, duration time.Duration) error {
	key := fmt.Sprintf("raid:%s", guildID)
	return c.Set(key, trigger, duration)
}

func (c *Client) ClearRaidFlag(guildID string) error {
	return c.Del(fmt.Sprintf("raid:%s", guildID))
}

func (c *Client) GetRaidFlag(guildID string) (string, bool) {
	val, err := c.Get(fmt.Sprintf("raid:%s", guildID))
	if err != nil || val == "" {
		return "", false
	}
	return val, true
}

// Offender leaderboard. Sorted set per guild, scored by cumulative
// violation count, so moderators can pull the worst offenders fast.

func (c *Client) BumpOffender(guildID, userID string) error {
	key := fmt.Sprintf("offenders:%s", guildID)
	_, err := c.ZIncrBy(key, 1, userID)
	return err
}

func (c *Client) TopOffenders(guildID string, limit int) (map[string]int64, error) {
	key := fmt.Sprintf("offenders:%s", guildID)
	results, err := c.ZRevRangeWithScores(key, 0, int64(limit-1))
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(results))
	for _, z := range results {
		if member, ok := z.Member.(string); ok {
			out[member] = int64(z.Score)
		}
	}
	return out, nil
}

// Daily violation counters, kept as a hash per guild and day so the
// dashboard can chart activity without touching Postgres.

func (c *Client) BumpDailyViolation(guildID, vtype string, day string) error {
	key := fmt.Sprintf("violations:%s:%s", guildID, day)
	return c.ExecutePipeline(func(pipe goredis.Pipeliner) error {
		pipe.HIncrBy(ctx, key, vtype, 1)
		pipe.Expire(ctx, key, 48*time.Hour)
		return nil
	})
}

func (c *Client) GetDailyViolations(guildID, day string) (map[string]int64, error) {
	key := fmt.Sprintf("violations:%s:%s", guildID, day)
	raw, err := c.HGetAll(key)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(raw))
	for k, v := range raw {
		n, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil {
			continue
		}
		out[k] = n
	}
	return out, nil
}
