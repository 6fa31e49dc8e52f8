package suspicion

import (
	"strings"
	"testing"
	"time"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestEvaluate_CleanJoiner(t *testing.T) {
	res := Evaluate(Input{
		AccountCreatedAt: now.AddDate(-2, 0, 0),
		HasAvatar:        true,
		Username:         "regular_person",
		Now:              now,
	}, 1, 7, 5)

	if res.Score != 0 {
		t.Errorf("Clean joiner score = %d, want 0", res.Score)
	}
	if len(res.Reasons) != 0 {
		t.Errorf("Clean joiner reasons = %v", res.Reasons)
	}
	if res.JoinBurst {
		t.Error("No burst expected")
	}
}

func TestEvaluate_YoungAccount(t *testing.T) {
	res := Evaluate(Input{
		AccountCreatedAt: now.Add(-48 * time.Hour),
		HasAvatar:        true,
		Username:         "normalname",
		Now:              now,
	}, 1, 7, 5)

	if res.Score != WeightYoungAccount {
		t.Errorf("Score = %d, want %d", res.Score, WeightYoungAccount)
	}
	if len(res.Reasons) != 1 || !strings.Contains(res.Reasons[0], "2 days") {
		t.Errorf("Reason should carry computed age, got %v", res.Reasons)
	}
}

func TestEvaluate_AllSignals(t *testing.T) {
	res := Evaluate(Input{
		AccountCreatedAt: now.Add(-24 * time.Hour),
		HasAvatar:        false,
		Username:         "12345678",
		Now:              now,
	}, 6, 7, 5)

	want := WeightYoungAccount + WeightNoAvatar + WeightRandomUsername + WeightJoinBurst
	if res.Score != want {
		t.Errorf("Score = %d, want %d (uncapped)", res.Score, want)
	}
	if res.Capped() != DecisionCap {
		t.Errorf("Capped = %d, want %d", res.Capped(), DecisionCap)
	}
	if !res.JoinBurst {
		t.Error("Join burst should be set")
	}
	if len(res.Reasons) != 4 {
		t.Errorf("Expected 4 reasons, got %v", res.Reasons)
	}
}

func TestEvaluate_BurstThreshold(t *testing.T) {
	in := Input{
		AccountCreatedAt: now.AddDate(-1, 0, 0),
		HasAvatar:        true,
		Username:         "oldtimer",
		Now:              now,
	}

	if res := Evaluate(in, 4, 7, 5); res.JoinBurst {
		t.Error("4 joins under threshold 5 should not burst")
	}
	res := Evaluate(in, 5, 7, 5)
	if !res.JoinBurst || res.Score != WeightJoinBurst {
		t.Errorf("5 joins at threshold 5 should burst with score %d, got %+v", WeightJoinBurst, res)
	}
}

func TestHasRandomUsername(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"john", false},
		{"jane_doe", false},
		{"a_b_c", true},           // 3 underscores
		{"user1234567", true},     // 7 digits
		{"user123456", false},     // 6 digits
		{"98431234", true},        // purely numeric
		{"", true},            // missing username is worst-case
		{"x_y__z99", true},    // 3 underscores
		{"abc99xyz", false},
	}
	for _, c := range cases {
		if got := HasRandomUsername(c.name); got != c.want {
			t.Errorf("HasRandomUsername(%q) = %v, want %v", c.name, got, c.want)
		}
	}
}
