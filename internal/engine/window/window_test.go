package window

import (
	"fmt"
	"testing"
)

func TestTracker_Basic(t *testing.T) {
	tr := NewTracker()

	for i := 0; i < 5; i++ {
		count := tr.Record("guild1", "user1", "message", int64(1000+i), 5000)
		if count != i+1 {
			t.Errorf("Expected count %d, got %d", i+1, count)
		}
	}

	if c := tr.Count("guild1", "user1", "message", 1004, 5000); c != 5 {
		t.Errorf("Expected count 5, got %d", c)
	}
}

func TestTracker_SlidingWindow(t *testing.T) {
	tr := NewTracker()

	// 5 events at t=0..4, window 1000ms
	for i := 0; i < 5; i++ {
		tr.Record("guild1", "user1", "message", int64(i), 1000)
	}

	// At t=999 all 5 still visible
	if c := tr.Count("guild1", "user1", "message", 999, 1000); c != 5 {
		t.Errorf("Expected 5 before expiry, got %d", c)
	}

	// At t=1002 events 0,1,2 have aged out (now-t >= horizon)
	if c := tr.Count("guild1", "user1", "message", 1002, 1000); c != 2 {
		t.Errorf("Expected 2 after partial expiry, got %d", c)
	}

	// Far future: nothing left, never negative
	if c := tr.Count("guild1", "user1", "message", 99999, 1000); c != 0 {
		t.Errorf("Expected 0 after full expiry, got %d", c)
	}
}

func TestTracker_RecordPrunesExpired(t *testing.T) {
	tr := NewTracker()

	tr.Record("guild1", "user1", "message", 0, 1000)
	tr.Record("guild1", "user1", "message", 100, 1000)

	// New event well past the horizon only counts itself
	if c := tr.Record("guild1", "user1", "message", 5000, 1000); c != 1 {
		t.Errorf("Expected count 1 after expiry, got %d", c)
	}
}

func TestTracker_OutOfOrderTimestamps(t *testing.T) {
	tr := NewTracker()

	tr.Record("guild1", "user1", "message", 10000, 5000)
	// Late delivery: an already-expired timestamp lands behind a live one
	tr.Record("guild1", "user1", "message", 3000, 5000)

	// Record and Count agree: the stale middle entry is gone
	if c := tr.Record("guild1", "user1", "message", 8500, 5000); c != 2 {
		t.Errorf("Expected 2 live events from Record, got %d", c)
	}
	if c := tr.Count("guild1", "user1", "message", 8500, 5000); c != 2 {
		t.Errorf("Expected 2 live events from Count, got %d", c)
	}
}

func TestTracker_IndependentKeys(t *testing.T) {
	tr := NewTracker()

	tr.Record("guild1", "user1", "message", 10, 5000)
	tr.Record("guild1", "user1", "message", 20, 5000)
	tr.Record("guild1", "user2", "message", 30, 5000)
	tr.Record("guild1", "user1", "voice", 40, 5000)
	tr.Record("guild2", "user1", "message", 50, 5000)

	if c := tr.Count("guild1", "user1", "message", 60, 5000); c != 2 {
		t.Errorf("user1 message count = %d, want 2", c)
	}
	if c := tr.Count("guild1", "user2", "message", 60, 5000); c != 1 {
		t.Errorf("user2 message count = %d, want 1", c)
	}
	if c := tr.Count("guild1", "user1", "voice", 60, 5000); c != 1 {
		t.Errorf("voice count = %d, want 1", c)
	}
	if c := tr.Count("guild2", "user1", "message", 60, 5000); c != 1 {
		t.Errorf("guild2 count = %d, want 1", c)
	}
}

func TestTracker_ResetCategory(t *testing.T) {
	tr := NewTracker()

	tr.Record("guild1", "", "join", 10, 3600000)
	tr.Record("guild1", "", "join", 20, 3600000)
	tr.Record("guild1", "user1", "message", 30, 5000)

	tr.ResetCategory("guild1", "join")

	if c := tr.Count("guild1", "", "join", 40, 3600000); c != 0 {
		t.Errorf("join count after reset = %d, want 0", c)
	}
	if c := tr.Count("guild1", "user1", "message", 40, 5000); c != 1 {
		t.Errorf("message count after join reset = %d, want 1", c)
	}
}

func TestTracker_Prune(t *testing.T) {
	tr := NewTracker()

	tr.Record("guild1", "user1", "message", 0, 1000)
	tr.Record("guild1", "user2", "message", 5000, 1000)

	removed := tr.Prune(5500, 1000)
	if removed != 1 {
		t.Errorf("Expected 1 window evicted, got %d", removed)
	}

	windows, events := tr.Stats()
	if windows != 1 || events != 1 {
		t.Errorf("Stats = (%d, %d), want (1, 1)", windows, events)
	}
}

func TestTracker_Concurrent(t *testing.T) {
	tr := NewTracker()
	done := make(chan bool)

	for g := 0; g < 10; g++ {
		go func(g int) {
			guild := fmt.Sprintf("guild%d", g)
			for i := 0; i < 1000; i++ {
				tr.Record(guild, "user1", "message", int64(i), 1<<40)
			}
			done <- true
		}(g)
	}
	for g := 0; g < 10; g++ {
		<-done
	}

	for g := 0; g < 10; g++ {
		guild := fmt.Sprintf("guild%d", g)
		if c := tr.Count(guild, "user1", "message", 1000, 1<<40); c != 1000 {
			t.Errorf("%s count = %d, want 1000", guild, c)
		}
	}
}

func BenchmarkTracker_Record(b *testing.B) {
	tr := NewTracker()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		tr.Record("guild123", "user456", "message", int64(i), 5000)
	}
}

func BenchmarkTracker_Concurrent(b *testing.B) {
	tr := NewTracker()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			guild := "guild" + string(rune('0'+i%10))
			tr.Record(guild, "user1", "message", int64(i), 5000)
			i++
		}
	})
}
