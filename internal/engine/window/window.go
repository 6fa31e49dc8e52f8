package window

import (
	"strings"
	"sync"
)

// entry holds the in-window timestamps for one (guild, subject, category)
// key. The slice is pruned on every access so a count never includes an
// expired event.
type entry struct {
	mu sync.Mutex
	ts []int64 // unix milliseconds, append order
}

// Tracker is a keyed sliding-window event counter.
// Keys are "guildID:category:subjectID"; per-key mutual exclusion means
// two near-simultaneous events for the same subject never read the same
// pre-increment count. Different keys never contend.
type Tracker struct {
	windows sync.Map // key -> *entry
}

func NewTracker() *Tracker {
	return &Tracker{}
}

func key(guildID, category, subjectID string) string {
	return guildID + ":" + category + ":" + subjectID
}

// Record appends an event timestamp and returns the in-window count
// including the new event. Timestamps are accepted as-is; the tracker
// does not validate external clocks.
func (t *Tracker) Record(guildID, subjectID, category string, ts, horizonMs int64) int {
	k := key(guildID, category, subjectID)
	val, ok := t.windows.Load(k)
	if !ok {
		val, _ = t.windows.LoadOrStore(k, &entry{})
	}
	e := val.(*entry)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.prune(ts, horizonMs)
	e.ts = append(e.ts, ts)
	return len(e.ts)
}

// Count returns the number of recorded events with now-t < horizon,
// without recording anything.
func (t *Tracker) Count(guildID, subjectID, category string, now, horizonMs int64) int {
	val, ok := t.windows.Load(key(guildID, category, subjectID))
	if !ok {
		return 0
	}
	e := val.(*entry)

	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, ts := range e.ts {
		if now-ts < horizonMs {
			n++
		}
	}
	return n
}

// Reset drops a single window.
func (t *Tracker) Reset(guildID, subjectID, category string) {
	t.windows.Delete(key(guildID, category, subjectID))
}

// ResetCategory drops every window of one category for a guild.
// Used when raid mode exits: the join window starts fresh.
func (t *Tracker) ResetCategory(guildID, category string) {
	prefix := guildID + ":" + category + ":"
	t.windows.Range(func(k, _ interface{}) bool {
		if s, ok := k.(string); ok && strings.HasPrefix(s, prefix) {
			t.windows.Delete(s)
		}
		return true
	})
}

// Prune removes expired timestamps from every window and evicts keys
// that end up empty. Called by the periodic sweeper to bound memory;
// correctness never depends on it because access-path pruning is exact.
func (t *Tracker) Prune(now, horizonMs int64) int {
	removed := 0
	t.windows.Range(func(k, val interface{}) bool {
		e := val.(*entry)
		e.mu.Lock()
		e.prune(now, horizonMs)
		empty := len(e.ts) == 0
		e.mu.Unlock()
		if empty {
			t.windows.Delete(k)
			removed++
		}
		return true
	})
	return removed
}

// Stats returns the number of live windows and buffered timestamps.
func (t *Tracker) Stats() (windows int, events int) {
	t.windows.Range(func(_, val interface{}) bool {
		e := val.(*entry)
		e.mu.Lock()
		windows++
		events += len(e.ts)
		e.mu.Unlock()
		return true
	})
	return
}

// prune drops entries with now-t >= horizon. A full filter rather than a
// prefix cut: recorded timestamps are not guaranteed monotonic, so an
// expired entry can sit behind a live one. Caller holds e.mu.
func (e *entry) prune(now, horizonMs int64) {
	live := e.ts[:0]
	for _, ts := range e.ts {
		if now-ts < horizonMs {
			live = append(live, ts)
		}
	}
	e.ts = live
}
