package database

import (
	"fmt"
	"time"

	"discord-security-bot/internal/models"
)

// AddWarning records a moderator warning and returns its id.
func (d *Database) AddWarning(guildID, userID, moderatorID, reason string) (int64, error) {
	var id int64
	err := d.db.QueryRow(`
		INSERT INTO warnings (guild_id, user_id, moderator_id, reason, timestamp)
		VALUES ($1, $2, $3, $4, $5) RETURNING id
	`, guildID, userID, moderatorID, reason, time.Now().UnixMilli()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("add warning: %w", err)
	}
	return id, nil
}

// GetWarnings lists a user's warnings, newest first.
func (d *Database) GetWarnings(guildID, userID string) ([]*models.Warning, error) {
	rows, err := d.db.Query(`
		SELECT id, guild_id, user_id, moderator_id, reason, timestamp
		FROM warnings WHERE guild_id = $1 AND user_id = $2
		ORDER BY timestamp DESC
	`, guildID, userID)
	if err != nil {
		return nil, fmt.Errorf("get warnings: %w", err)
	}
	defer rows.Close()

	var out []*models.Warning
	for rows.Next() {
		var w models.Warning
		if err := rows.Scan(&w.ID, &w.GuildID, &w.UserID, &w.ModeratorID, &w.Reason, &w.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, &w)
	}
	return out, rows.Err()
}

// CountWarnings returns how many warnings a user carries.
func (d *Database) CountWarnings(guildID, userID string) (int, error) {
	var count int
	if ps := d.PreparedStmts; ps != nil && ps.countWarnings != nil {
		err := ps.countWarnings.QueryRow(guildID, userID).Scan(&count)
		if err == nil {
			return count, nil
		}
		if !isBadPreparedStatement(err) {
			return 0, fmt.Errorf("count warnings: %w", err)
		}
	}
	err := d.db.QueryRow(
		"SELECT COUNT(*) FROM warnings WHERE guild_id = $1 AND user_id = $2",
		guildID, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count warnings: %w", err)
	}
	return count, nil
}

// ClearWarnings wipes a user's warnings and reports how many were removed.
func (d *Database) ClearWarnings(guildID, userID string) (int64, error) {
	res, err := d.db.Exec(
		"DELETE FROM warnings WHERE guild_id = $1 AND user_id = $2",
		guildID, userID,
	)
	if err != nil {
		return 0, fmt.Errorf("clear warnings: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// RemoveWarning deletes one warning by id.
func (d *Database) RemoveWarning(guildID string, warningID int64) (bool, error) {
	res, err := d.db.Exec(
		"DELETE FROM warnings WHERE guild_id = $1 AND id = $2",
		guildID, warningID,
	)
	if err != nil {
		return false, fmt.Errorf("remove warning: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
