// Package suspicion scores join events on a 0-10 scale from account-age,
// avatar, username and join-burst signals. The scorer is pure and total
// over its inputs: missing avatar or username is treated as worst-case.
package suspicion

import (
	"fmt"
	"time"
)

// Score weights per signal.
const (
	WeightYoungAccount   = 3
	WeightNoAvatar       = 2
	WeightRandomUsername = 2
	WeightJoinBurst      = 5
)

// DecisionCap is the ceiling used for decisions; Result.Score itself is
// reported uncapped for transparency.
const DecisionCap = 10

// Input describes one join event.
type Input struct {
	AccountCreatedAt time.Time
	HasAvatar        bool
	Username         string
	Now              time.Time
}

// Result is the ephemeral per-join verdict. JoinBurst is surfaced
// separately because it alone requests automatic raid mode.
type Result struct {
	Score     int
	Reasons   []string
	JoinBurst bool
}

// Capped returns the score clamped to the 0-10 decision scale.
func (r Result) Capped() int {
	if r.Score > DecisionCap {
		return DecisionCap
	}
	return r.Score
}

// Evaluate computes the additive suspicion score. joinCount is the
// guild's trailing 60-second join count including this event.
func Evaluate(in Input, joinCount, minAccountAgeDays, joinThreshold int) Result {
	var res Result

	ageDays := int(in.Now.Sub(in.AccountCreatedAt).Hours() / 24)
	if ageDays < minAccountAgeDays {
		res.Score += WeightYoungAccount
		res.Reasons = append(res.Reasons, fmt.Sprintf("new account (%d days)", ageDays))
	}

	if !in.HasAvatar {
		res.Score += WeightNoAvatar
		res.Reasons = append(res.Reasons, "default avatar")
	}

	if HasRandomUsername(in.Username) {
		res.Score += WeightRandomUsername
		res.Reasons = append(res.Reasons, "suspicious username")
	}

	if joinThreshold > 0 && joinCount >= joinThreshold {
		res.Score += WeightJoinBurst
		res.JoinBurst = true
		res.Reasons = append(res.Reasons, fmt.Sprintf("join burst (%d joins/60s)", joinCount))
	}

	return res
}

// HasRandomUsername flags throwaway-looking names: more than six digits,
// three or more underscores, or purely numeric. An empty username counts
// as purely numeric (worst-case for missing data).
func HasRandomUsername(username string) bool {
	digits, underscores := 0, 0
	onlyDigits := true
	for _, r := range username {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '_':
			underscores++
			onlyDigits = false
		default:
			onlyDigits = false
		}
	}
	return digits > 6 || underscores >= 3 || onlyDigits
}
