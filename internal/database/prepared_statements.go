package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// PreparedStatements holds the hot-path statements. Settings reads and
// violation writes happen on every flagged event, so they skip the
// per-call parse.
type PreparedStatements struct {
	db *sql.DB

	getGuildSettings *sql.Stmt
	insertViolation  *sql.Stmt
	countWarnings    *sql.Stmt
	countViolations  *sql.Stmt
}

// InitPreparedStatements pre-compiles the frequently used SQL statements.
func (d *Database) InitPreparedStatements() error {
	d.PreparedStmts = &PreparedStatements{db: d.db}

	var err error

	d.PreparedStmts.getGuildSettings, err = d.db.Prepare(
		`SELECT ` + settingsColumns + ` FROM guild_settings WHERE guild_id = $1`)
	if err != nil {
		return fmt.Errorf("failed to prepare getGuildSettings: %w", err)
	}

	d.PreparedStmts.insertViolation, err = d.db.Prepare(`
		INSERT INTO violations (guild_id, user_id, type, severity, reason, action, evidence, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insertViolation: %w", err)
	}

	d.PreparedStmts.countWarnings, err = d.db.Prepare(`
		SELECT COUNT(*) FROM warnings WHERE guild_id = $1 AND user_id = $2
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare countWarnings: %w", err)
	}

	d.PreparedStmts.countViolations, err = d.db.Prepare(`
		SELECT COUNT(*) FROM violations WHERE guild_id = $1 AND user_id = $2 AND timestamp > $3
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare countViolations: %w", err)
	}

	return nil
}

// StartPreparedStatementRefresher automatically re-prepares statements on DB reconnect
func (d *Database) StartPreparedStatementRefresher(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := d.db.Ping(); err != nil {
					// DB probably restarted, reprepare
					d.ClosePreparedStatements()
					_ = d.InitPreparedStatements()
				}
			}
		}
	}()
}

// ClosePreparedStatements closes all prepared statements
func (d *Database) ClosePreparedStatements() {
	if d.PreparedStmts == nil {
		return
	}

	stmts := []*sql.Stmt{
		d.PreparedStmts.getGuildSettings,
		d.PreparedStmts.insertViolation,
		d.PreparedStmts.countWarnings,
		d.PreparedStmts.countViolations,
	}

	for _, stmt := range stmts {
		if stmt != nil {
			stmt.Close()
		}
	}
}

// isBadPreparedStatement checks if error indicates invalid prepared statement
func isBadPreparedStatement(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "cached plan") ||
		strings.Contains(errStr, "closed the connection") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "bad connection")
}
