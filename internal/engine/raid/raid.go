// Package raid implements the per-guild raid-mode state machine:
// Normal -> Active(trigger, expiresAt?) -> Normal, with a cancellable
// timed auto-disable.
package raid

import (
	"sync"
	"time"
)

// RaidSuspicionFloor is the secondary suspicion threshold applied to
// every join while raid mode is active. Lower than the standalone
// suspicion threshold on purpose.
const RaidSuspicionFloor = 3

// Status is a snapshot of one guild's raid state.
type Status struct {
	Active      bool   `json:"active"`
	Trigger     string `json:"trigger,omitempty"`
	ActivatedAt int64  `json:"activated_at,omitempty"` // unix ms
	ExpiresAt   int64  `json:"expires_at,omitempty"`   // unix ms, 0 = manual only
}

type state struct {
	trigger     string
	activatedAt int64
	expiresAt   int64
	timer       *time.Timer // nil when no auto-expiry scheduled
}

// Controller owns raid-mode state for every guild. Enable and Disable
// are idempotent; the timed auto-disable races cleanly with a manual
// disable because both run under the same lock and the loser sees the
// state already gone, so only one exit notification is ever emitted.
type Controller struct {
	mu     sync.Mutex
	states map[string]*state

	// OnEnable and OnExit are invoked outside enforcement hot paths,
	// after a successful state transition. OnExit must clear the
	// guild's join window for a fresh start.
	OnEnable func(guildID, trigger string, durationMs int64)
	OnExit   func(guildID, trigger string)
}

func NewController() *Controller {
	return &Controller{states: make(map[string]*state)}
}

// Enable activates raid mode. Returns false (no-op) if already active.
// A positive duration schedules an automatic disable; the schedule is
// cancelled if a manual disable happens first.
func (c *Controller) Enable(guildID, trigger string, durationMs int64) bool {
	c.mu.Lock()
	if _, active := c.states[guildID]; active {
		c.mu.Unlock()
		return false
	}

	now := time.Now().UnixMilli()
	st := &state{trigger: trigger, activatedAt: now}
	if durationMs > 0 {
		st.expiresAt = now + durationMs
		st.timer = time.AfterFunc(time.Duration(durationMs)*time.Millisecond, func() {
			c.Disable(guildID, "auto")
		})
	}
	c.states[guildID] = st
	c.mu.Unlock()

	if c.OnEnable != nil {
		c.OnEnable(guildID, trigger, durationMs)
	}
	return true
}

// Disable deactivates raid mode. Returns false (no-op) if already
// Normal. Cancels any pending auto-disable.
func (c *Controller) Disable(guildID, trigger string) bool {
	c.mu.Lock()
	st, active := c.states[guildID]
	if !active {
		c.mu.Unlock()
		return false
	}
	if st.timer != nil {
		st.timer.Stop()
	}
	delete(c.states, guildID)
	c.mu.Unlock()

	if c.OnExit != nil {
		c.OnExit(guildID, trigger)
	}
	return true
}

// Active reports whether raid mode is on for the guild.
func (c *Controller) Active(guildID string) bool {
	c.mu.Lock()
	_, active := c.states[guildID]
	c.mu.Unlock()
	return active
}

// Status returns the current raid state snapshot.
func (c *Controller) Status(guildID string) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, active := c.states[guildID]
	if !active {
		return Status{}
	}
	return Status{
		Active:      true,
		Trigger:     st.trigger,
		ActivatedAt: st.activatedAt,
		ExpiresAt:   st.expiresAt,
	}
}
