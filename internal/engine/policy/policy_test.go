package policy

import (
	"errors"
	"sync"
	"testing"

	"discord-security-bot/internal/models"
)

// fakeBackend is an in-memory settings table.
type fakeBackend struct {
	mu       sync.Mutex
	rows     map[string]*models.GuildPolicy
	failGets bool
	upserts  int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{rows: make(map[string]*models.GuildPolicy)}
}

func (f *fakeBackend) GetGuildSettings(guildID string) (*models.GuildPolicy, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGets {
		return nil, false, errors.New("connection refused")
	}
	p, ok := f.rows[guildID]
	if !ok {
		return nil, false, nil
	}
	cp := *p
	return &cp, true, nil
}

func (f *fakeBackend) UpsertGuildSettings(p *models.GuildPolicy) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	cp := *p
	f.rows[p.GuildID] = &cp
	return nil
}

func TestStore_LazyDefaultCreation(t *testing.T) {
	backend := newFakeBackend()
	s := NewStore(backend, nil, nil)

	p := s.Get("g1")
	if p.SpamThreshold != 5 || p.JoinThreshold != 5 || p.CapsThreshold != 70 {
		t.Errorf("Defaults not applied: %+v", p)
	}
	if backend.upserts != 1 {
		t.Errorf("Default record should be persisted once, upserts=%d", backend.upserts)
	}

	// Second read hits the stored row, no new upsert
	s.Get("g1")
	if backend.upserts != 1 {
		t.Errorf("Re-read should not re-persist, upserts=%d", backend.upserts)
	}
}

func TestStore_BackendFailureDegradesToDefaults(t *testing.T) {
	backend := newFakeBackend()
	backend.failGets = true
	s := NewStore(backend, nil, nil)

	p := s.Get("g1")
	if p == nil || p.GuildID != "g1" || p.SpamThreshold != 5 {
		t.Errorf("Expected defaults on backend failure, got %+v", p)
	}
}

func TestStore_UpdateRoundTrip(t *testing.T) {
	backend := newFakeBackend()
	s := NewStore(backend, nil, nil)

	v := 9
	if _, err := s.Update("g1", Update{SpamThreshold: &v}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	p := s.Get("g1")
	if p.SpamThreshold != 9 {
		t.Errorf("SpamThreshold = %d, want 9", p.SpamThreshold)
	}
	// Untouched fields keep their values
	if p.JoinThreshold != 5 || p.CapsThreshold != 70 || !p.AutomodEnabled {
		t.Errorf("Unrelated fields changed: %+v", p)
	}
}

func TestStore_UpdateEveryFieldKind(t *testing.T) {
	backend := newFakeBackend()
	s := NewStore(backend, nil, nil)

	enabled := false
	window := int64(12345)
	channel := "log-channel-id"
	action := models.RaidActionKick
	wl := []string{"u1", "u2"}

	_, err := s.Update("g1", Update{
		AutomodEnabled: &enabled,
		SpamWindowMs:   &window,
		LogChannel:     &channel,
		RaidModeAction: &action,
		Whitelist:      &wl,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	p := s.Get("g1")
	if p.AutomodEnabled {
		t.Error("AutomodEnabled should be false")
	}
	if p.SpamWindowMs != 12345 {
		t.Errorf("SpamWindowMs = %d", p.SpamWindowMs)
	}
	if p.LogChannel != "log-channel-id" {
		t.Errorf("LogChannel = %q", p.LogChannel)
	}
	if p.RaidModeAction != models.RaidActionKick {
		t.Errorf("RaidModeAction = %q", p.RaidModeAction)
	}
	if len(p.Whitelist) != 2 || !p.IsWhitelisted("u2") {
		t.Errorf("Whitelist = %v", p.Whitelist)
	}
}

func TestStore_PermissiveOutOfRange(t *testing.T) {
	backend := newFakeBackend()
	s := NewStore(backend, nil, nil)

	zero := 0
	if _, err := s.Update("g1", Update{SpamThreshold: &zero}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if p := s.Get("g1"); p.SpamThreshold != 0 {
		t.Errorf("Degenerate threshold should be stored as-is, got %d", p.SpamThreshold)
	}
}

func TestMerge_DoesNotMutateBase(t *testing.T) {
	base := models.DefaultPolicy("g1")
	base.Whitelist = []string{"keep"}

	v := 99
	wl := []string{"other"}
	merged := Merge(base, Update{SpamThreshold: &v, Whitelist: &wl})

	if base.SpamThreshold != 5 || len(base.Whitelist) != 1 || base.Whitelist[0] != "keep" {
		t.Errorf("Base mutated: %+v", base)
	}
	if merged.SpamThreshold != 99 || merged.Whitelist[0] != "other" {
		t.Errorf("Merge result wrong: %+v", merged)
	}
}
