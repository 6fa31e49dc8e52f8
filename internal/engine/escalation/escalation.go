// Package escalation drives the per-subject penalty ladder:
// Clean -> Escalating(n) -> Terminal (entry removed after a kick).
package escalation

import (
	"sync"

	"discord-security-bot/internal/models"
)

// Tier is one rung of the penalty ladder.
type Tier struct {
	Action     string // models.ActionTimeout or models.ActionKick
	DurationMs int64  // only meaningful for timeouts
	Label      string
}

// Ladder is an ordered penalty sequence. Violation n applies tier
// min(n, len(ladder)); the last tier is terminal by convention.
type Ladder []Tier

// DefaultLadder builds the standard ladder from a guild policy:
// short timeout, long timeout, kick.
func DefaultLadder(p *models.GuildPolicy) Ladder {
	return Ladder{
		{Action: models.ActionTimeout, DurationMs: p.Timeout1Ms, Label: "1st offense timeout"},
		{Action: models.ActionTimeout, DurationMs: p.Timeout2Ms, Label: "2nd offense timeout"},
		{Action: models.ActionKick, Label: "repeat offender kick"},
	}
}

// Tier returns the rung for the nth violation (1-based), clamped to the
// terminal tier.
func (l Ladder) Tier(n int) Tier {
	if n < 1 {
		n = 1
	}
	if n > len(l) {
		n = len(l)
	}
	return l[n-1]
}

type counter struct {
	mu    sync.Mutex
	count int
	last  int64 // unix ms of last violation
}

// Machine tracks violation counts per (guild, subject). Entries expire
// lazily: a counter whose last violation is older than the reset horizon
// is treated as Clean on the next lookup. A periodic sweep bounds memory
// but is not needed for correctness.
type Machine struct {
	counters sync.Map // "guildID:userID" -> *counter
}

func NewMachine() *Machine {
	return &Machine{}
}

// Record registers a confirmed violation and returns the new count and
// the ladder tier to apply. When the tier is a kick the entry is removed
// immediately (Terminal). The caller is responsible for privilege
// exemption and for submitting each physical event exactly once.
func (m *Machine) Record(guildID, userID string, ladder Ladder, now, resetAfterMs int64) (int, Tier) {
	key := guildID + ":" + userID
	val, ok := m.counters.Load(key)
	if !ok {
		val, _ = m.counters.LoadOrStore(key, &counter{})
	}
	c := val.(*counter)

	c.mu.Lock()
	if c.count > 0 && now-c.last > resetAfterMs {
		c.count = 0 // inactivity reset: treated as Clean
	}
	c.count++
	c.last = now
	n := c.count
	c.mu.Unlock()

	tier := ladder.Tier(n)
	if tier.Action == models.ActionKick {
		m.counters.Delete(key)
	}
	return n, tier
}

// Count returns the current violation count, honoring lazy expiry.
// Zero means Clean.
func (m *Machine) Count(guildID, userID string, now, resetAfterMs int64) int {
	val, ok := m.counters.Load(guildID + ":" + userID)
	if !ok {
		return 0
	}
	c := val.(*counter)

	c.mu.Lock()
	defer c.mu.Unlock()
	if now-c.last > resetAfterMs {
		return 0
	}
	return c.count
}

// Reset removes a subject's counter (used after a manual pardon).
func (m *Machine) Reset(guildID, userID string) {
	m.counters.Delete(guildID + ":" + userID)
}

// Sweep removes counters idle past the reset horizon. Returns the number
// of entries evicted.
func (m *Machine) Sweep(now, resetAfterMs int64) int {
	removed := 0
	m.counters.Range(func(key, val interface{}) bool {
		c := val.(*counter)
		c.mu.Lock()
		stale := now-c.last > resetAfterMs
		c.mu.Unlock()
		if stale {
			m.counters.Delete(key)
			removed++
		}
		return true
	})
	return removed
}
