package database

import (
	"fmt"
	"time"
)

// BlockedDomainRow is one guild-added blocklist entry.
type BlockedDomainRow struct {
	Domain  string
	Reason  string
	AddedBy string
}

// AddBlockedDomain stores a guild blocklist addition. Returns false
// when the domain was already listed.
func (d *Database) AddBlockedDomain(guildID, domain, reason, addedBy string) (bool, error) {
	res, err := d.db.Exec(`
		INSERT INTO blocklist_domains (guild_id, domain, reason, added_by, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (guild_id, domain) DO NOTHING
	`, guildID, domain, reason, addedBy, time.Now().UnixMilli())
	if err != nil {
		return false, fmt.Errorf("add blocked domain: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// RemoveBlockedDomain drops a guild blocklist entry.
func (d *Database) RemoveBlockedDomain(guildID, domain string) (bool, error) {
	res, err := d.db.Exec(
		"DELETE FROM blocklist_domains WHERE guild_id = $1 AND domain = $2",
		guildID, domain,
	)
	if err != nil {
		return false, fmt.Errorf("remove blocked domain: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// GetBlockedDomains lists a guild's blocklist additions.
func (d *Database) GetBlockedDomains(guildID string) ([]BlockedDomainRow, error) {
	rows, err := d.db.Query(
		"SELECT domain, reason, added_by FROM blocklist_domains WHERE guild_id = $1 ORDER BY domain",
		guildID,
	)
	if err != nil {
		return nil, fmt.Errorf("get blocked domains: %w", err)
	}
	defer rows.Close()

	var out []BlockedDomainRow
	for rows.Next() {
		var r BlockedDomainRow
		if err := rows.Scan(&r.Domain, &r.Reason, &r.AddedBy); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AddProfanityWord stores a guild word-list addition. Returns false
// when the word was already listed.
func (d *Database) AddProfanityWord(guildID, word, addedBy string) (bool, error) {
	res, err := d.db.Exec(`
		INSERT INTO profanity_words (guild_id, word, added_by, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (guild_id, word) DO NOTHING
	`, guildID, word, addedBy, time.Now().UnixMilli())
	if err != nil {
		return false, fmt.Errorf("add profanity word: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// RemoveProfanityWord drops a guild word-list entry.
func (d *Database) RemoveProfanityWord(guildID, word string) (bool, error) {
	res, err := d.db.Exec(
		"DELETE FROM profanity_words WHERE guild_id = $1 AND word = $2",
		guildID, word,
	)
	if err != nil {
		return false, fmt.Errorf("remove profanity word: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// GetProfanityWords lists a guild's word-list additions.
func (d *Database) GetProfanityWords(guildID string) ([]string, error) {
	rows, err := d.db.Query(
		"SELECT word FROM profanity_words WHERE guild_id = $1 ORDER BY word",
		guildID,
	)
	if err != nil {
		return nil, fmt.Errorf("get profanity words: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// AllProfanityWords loads every guild-added word for the startup warm
// of the in-memory matcher.
func (d *Database) AllProfanityWords() ([]string, error) {
	rows, err := d.db.Query("SELECT DISTINCT word FROM profanity_words")
	if err != nil {
		return nil, fmt.Errorf("all profanity words: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// AllBlockedDomains loads every guild-added domain for the startup warm
// of the in-memory link checker.
func (d *Database) AllBlockedDomains() ([]BlockedDomainRow, error) {
	rows, err := d.db.Query("SELECT DISTINCT domain, reason FROM blocklist_domains")
	if err != nil {
		return nil, fmt.Errorf("all blocked domains: %w", err)
	}
	defer rows.Close()

	var out []BlockedDomainRow
	for rows.Next() {
		var r BlockedDomainRow
		if err := rows.Scan(&r.Domain, &r.Reason); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
