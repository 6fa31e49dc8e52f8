package escalation

import (
	"sync"
	"testing"

	"discord-security-bot/internal/models"
)

func testLadder() Ladder {
	return DefaultLadder(models.DefaultPolicy("g1"))
}

func TestMachine_OrderedTiers(t *testing.T) {
	m := NewMachine()
	ladder := testLadder()

	n, tier := m.Record("g1", "u1", ladder, 1000, 300000)
	if n != 1 || tier.Action != models.ActionTimeout || tier.DurationMs != 60000 {
		t.Errorf("Violation 1: n=%d tier=%+v", n, tier)
	}

	n, tier = m.Record("g1", "u1", ladder, 2000, 300000)
	if n != 2 || tier.Action != models.ActionTimeout || tier.DurationMs != 3600000 {
		t.Errorf("Violation 2: n=%d tier=%+v", n, tier)
	}

	n, tier = m.Record("g1", "u1", ladder, 3000, 300000)
	if n != 3 || tier.Action != models.ActionKick {
		t.Errorf("Violation 3: n=%d tier=%+v", n, tier)
	}

	// Kick is terminal: the entry is removed immediately
	if c := m.Count("g1", "u1", 3001, 300000); c != 0 {
		t.Errorf("Count after kick = %d, want 0 (Clean)", c)
	}

	// Next violation starts the ladder over
	n, tier = m.Record("g1", "u1", ladder, 4000, 300000)
	if n != 1 || tier.DurationMs != 60000 {
		t.Errorf("Post-kick violation: n=%d tier=%+v", n, tier)
	}
}

func TestMachine_LadderClamp(t *testing.T) {
	ladder := Ladder{
		{Action: models.ActionTimeout, DurationMs: 1000, Label: "t1"},
		{Action: models.ActionTimeout, DurationMs: 2000, Label: "t2"},
	}

	// Tier beyond the ladder clamps to the last rung
	if tier := ladder.Tier(7); tier.Label != "t2" {
		t.Errorf("Tier(7) = %+v, want t2", tier)
	}
	if tier := ladder.Tier(0); tier.Label != "t1" {
		t.Errorf("Tier(0) = %+v, want t1", tier)
	}
}

func TestMachine_InactivityReset(t *testing.T) {
	m := NewMachine()
	ladder := testLadder()

	m.Record("g1", "u1", ladder, 1000, 300000)
	m.Record("g1", "u1", ladder, 2000, 300000)

	// Within the horizon the count holds
	if c := m.Count("g1", "u1", 2000+300000, 300000); c != 2 {
		t.Errorf("Count within horizon = %d, want 2", c)
	}

	// Past the horizon the subject reads as Clean
	if c := m.Count("g1", "u1", 2000+300001, 300000); c != 0 {
		t.Errorf("Count past horizon = %d, want 0", c)
	}

	// And a new violation restarts from tier 1
	n, tier := m.Record("g1", "u1", ladder, 2000+300001, 300000)
	if n != 1 || tier.DurationMs != 60000 {
		t.Errorf("Post-expiry violation: n=%d tier=%+v", n, tier)
	}
}

func TestMachine_IndependentSubjects(t *testing.T) {
	m := NewMachine()
	ladder := testLadder()

	m.Record("g1", "u1", ladder, 1000, 300000)
	m.Record("g1", "u1", ladder, 1001, 300000)
	n, _ := m.Record("g1", "u2", ladder, 1002, 300000)
	if n != 1 {
		t.Errorf("u2 first violation n=%d, want 1", n)
	}
	n, _ = m.Record("g2", "u1", ladder, 1003, 300000)
	if n != 1 {
		t.Errorf("Other guild first violation n=%d, want 1", n)
	}
}

func TestMachine_Sweep(t *testing.T) {
	m := NewMachine()
	ladder := testLadder()

	m.Record("g1", "u1", ladder, 1000, 300000)
	m.Record("g1", "u2", ladder, 500000, 300000)

	if removed := m.Sweep(1000+300001, 300000); removed != 1 {
		t.Errorf("Sweep removed %d, want 1", removed)
	}
	if c := m.Count("g1", "u2", 500001, 300000); c != 1 {
		t.Errorf("Fresh entry survived sweep with count %d, want 1", c)
	}
}

func TestMachine_ConcurrentSameSubject(t *testing.T) {
	m := NewMachine()
	ladder := Ladder{{Action: models.ActionTimeout, DurationMs: 1000, Label: "only"}}

	// Two violations racing for the same subject must not read the same
	// pre-increment count.
	const workers = 50
	counts := make([]int, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			n, _ := m.Record("g1", "u1", ladder, 1000, 1<<40)
			counts[i] = n
		}(i)
	}
	wg.Wait()

	seen := make(map[int]bool)
	for _, n := range counts {
		if seen[n] {
			t.Fatalf("Duplicate violation count %d observed", n)
		}
		seen[n] = true
	}
}
