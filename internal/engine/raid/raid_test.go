package raid

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"discord-security-bot/internal/models"
)

func TestController_EnableDisable(t *testing.T) {
	c := NewController()

	if c.Active("g1") {
		t.Fatal("Fresh guild should be Normal")
	}
	if !c.Enable("g1", models.TriggerManual, 0) {
		t.Fatal("First enable should transition")
	}
	if !c.Active("g1") {
		t.Fatal("Guild should be Active")
	}

	st := c.Status("g1")
	if !st.Active || st.Trigger != models.TriggerManual || st.ExpiresAt != 0 {
		t.Errorf("Status = %+v", st)
	}

	if !c.Disable("g1", models.TriggerManual) {
		t.Fatal("Disable on active guild should transition")
	}
	if c.Active("g1") {
		t.Fatal("Guild should be Normal again")
	}
}

func TestController_Idempotent(t *testing.T) {
	c := NewController()
	var enables, exits atomic.Int32
	c.OnEnable = func(string, string, int64) { enables.Add(1) }
	c.OnExit = func(string, string) { exits.Add(1) }

	c.Enable("g1", models.TriggerManual, 0)
	if c.Enable("g1", models.TriggerAuto, 0) {
		t.Error("Second enable should be a no-op")
	}
	if got := enables.Load(); got != 1 {
		t.Errorf("OnEnable fired %d times, want 1", got)
	}
	// Original trigger survives the no-op enable
	if st := c.Status("g1"); st.Trigger != models.TriggerManual {
		t.Errorf("Trigger = %q, want manual", st.Trigger)
	}

	c.Disable("g1", models.TriggerManual)
	if c.Disable("g1", models.TriggerManual) {
		t.Error("Second disable should be a no-op")
	}
	if got := exits.Load(); got != 1 {
		t.Errorf("OnExit fired %d times, want 1", got)
	}
}

func TestController_AutoExpiry(t *testing.T) {
	c := NewController()
	exitTrigger := make(chan string, 1)
	c.OnExit = func(_, trigger string) { exitTrigger <- trigger }

	c.Enable("g1", models.TriggerAuto, 30)

	st := c.Status("g1")
	if st.ExpiresAt == 0 {
		t.Fatal("Timed enable should schedule an expiry")
	}

	select {
	case trigger := <-exitTrigger:
		if trigger != "auto" {
			t.Errorf("Exit trigger = %q, want auto", trigger)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Auto-disable never fired")
	}
	if c.Active("g1") {
		t.Error("Guild should be Normal after auto-expiry")
	}
}

func TestController_ManualDisableCancelsTimer(t *testing.T) {
	c := NewController()
	var exits atomic.Int32
	c.OnExit = func(string, string) { exits.Add(1) }

	c.Enable("g1", models.TriggerManual, 50)
	c.Disable("g1", models.TriggerManual)

	// Give the cancelled timer a chance to misfire
	time.Sleep(150 * time.Millisecond)

	if got := exits.Load(); got != 1 {
		t.Errorf("Exactly one disable notification expected, got %d", got)
	}
}

func TestController_ConcurrentDisableRace(t *testing.T) {
	c := NewController()
	var exits atomic.Int32
	c.OnExit = func(string, string) { exits.Add(1) }

	c.Enable("g1", models.TriggerAuto, 20)

	// Manual disables racing the auto-expiry: whoever wins, only one
	// notification comes out.
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Disable("g1", models.TriggerManual)
		}()
	}
	wg.Wait()
	time.Sleep(100 * time.Millisecond)

	if got := exits.Load(); got != 1 {
		t.Errorf("Exactly one disable notification expected, got %d", got)
	}
}

func TestController_IndependentGuilds(t *testing.T) {
	c := NewController()

	c.Enable("g1", models.TriggerManual, 0)
	if c.Active("g2") {
		t.Error("Other guild should stay Normal")
	}
	c.Enable("g2", models.TriggerAuto, 0)
	c.Disable("g1", models.TriggerManual)
	if !c.Active("g2") {
		t.Error("Disabling g1 must not touch g2")
	}
}
