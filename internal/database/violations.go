package database

import (
	"database/sql"
	"fmt"

	"discord-security-bot/internal/models"
)

// statColumns whitelists the aggregate counters IncrementStat may bump.
// Keeps the column name out of reach of any input.
var statColumns = map[string]bool{
	"total_violations":     true,
	"spam_detected":        true,
	"voice_abuse_detected": true,
	"timeouts_issued":      true,
	"kicks_issued":         true,
	"scam_blocked":         true,
	"automod_triggers":     true,
	"warnings_issued":      true,
}

// InsertViolation persists one enforcement record.
func (d *Database) InsertViolation(v *models.Violation) error {
	if ps := d.PreparedStmts; ps != nil && ps.insertViolation != nil {
		err := ps.insertViolation.QueryRow(
			v.GuildID, v.UserID, v.Type, v.Severity, v.Reason, v.Action, v.Evidence, v.Timestamp,
		).Scan(&v.ID)
		if err == nil {
			return nil
		}
		if !isBadPreparedStatement(err) {
			return fmt.Errorf("insert violation: %w", err)
		}
	}

	query := `
		INSERT INTO violations (guild_id, user_id, type, severity, reason, action, evidence, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := d.db.QueryRow(query,
		v.GuildID, v.UserID, v.Type, v.Severity, v.Reason, v.Action, v.Evidence, v.Timestamp,
	).Scan(&v.ID)
	if err != nil {
		return fmt.Errorf("insert violation: %w", err)
	}
	return nil
}

// IncrementStat bumps one aggregate counter, creating the stats row on
// first use.
func (d *Database) IncrementStat(guildID, stat string) error {
	if !statColumns[stat] {
		return fmt.Errorf("unknown stat column %q", stat)
	}
	query := fmt.Sprintf(`
		INSERT INTO guild_stats (guild_id, %s) VALUES ($1, 1)
		ON CONFLICT (guild_id) DO UPDATE SET %s = guild_stats.%s + 1
	`, stat, stat, stat)
	if _, err := d.db.Exec(query, guildID); err != nil {
		return fmt.Errorf("increment stat %s: %w", stat, err)
	}
	return nil
}

// GetGuildStats loads the aggregate counters, zeroed when absent.
func (d *Database) GetGuildStats(guildID string) (*models.GuildStats, error) {
	s := &models.GuildStats{GuildID: guildID}
	query := `
		SELECT total_violations, spam_detected, voice_abuse_detected, timeouts_issued,
			kicks_issued, scam_blocked, automod_triggers, warnings_issued
		FROM guild_stats WHERE guild_id = $1
	`
	err := d.db.QueryRow(query, guildID).Scan(
		&s.TotalViolations, &s.SpamDetected, &s.VoiceAbuseDetected, &s.TimeoutsIssued,
		&s.KicksIssued, &s.ScamBlocked, &s.AutomodTriggers, &s.WarningsIssued,
	)
	if err == sql.ErrNoRows {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get guild stats: %w", err)
	}
	return s, nil
}

// GetRecentViolations returns a user's newest violations, capped by limit.
func (d *Database) GetRecentViolations(guildID, userID string, limit int) ([]*models.Violation, error) {
	query := `
		SELECT id, guild_id, user_id, type, severity, reason, action, evidence, timestamp
		FROM violations WHERE guild_id = $1 AND user_id = $2
		ORDER BY timestamp DESC LIMIT $3
	`
	rows, err := d.db.Query(query, guildID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("get violations: %w", err)
	}
	defer rows.Close()

	var out []*models.Violation
	for rows.Next() {
		var v models.Violation
		if err := rows.Scan(&v.ID, &v.GuildID, &v.UserID, &v.Type, &v.Severity,
			&v.Reason, &v.Action, &v.Evidence, &v.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}

// CountViolationsSince counts a user's violations newer than a cutoff.
func (d *Database) CountViolationsSince(guildID, userID string, sinceMs int64) (int, error) {
	var count int
	if ps := d.PreparedStmts; ps != nil && ps.countViolations != nil {
		err := ps.countViolations.QueryRow(guildID, userID, sinceMs).Scan(&count)
		if err == nil {
			return count, nil
		}
		if !isBadPreparedStatement(err) {
			return 0, fmt.Errorf("count violations: %w", err)
		}
	}
	err := d.db.QueryRow(
		"SELECT COUNT(*) FROM violations WHERE guild_id = $1 AND user_id = $2 AND timestamp > $3",
		guildID, userID, sinceMs,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count violations: %w", err)
	}
	return count, nil
}

// PruneViolations deletes records older than the cutoff and reports how
// many went away. Run from the maintenance sweeper.
func (d *Database) PruneViolations(beforeMs int64) (int64, error) {
	res, err := d.db.Exec("DELETE FROM violations WHERE timestamp < $1", beforeMs)
	if err != nil {
		return 0, fmt.Errorf("prune violations: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
