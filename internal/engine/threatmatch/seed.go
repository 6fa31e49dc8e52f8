package threatmatch

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var seedData []byte

// SeedLists are the system-level default threat lists. User additions are
// layered on top via the add/remove operations.
type SeedLists struct {
	Profanity          []string `yaml:"profanity"`
	BlockedDomains     []string `yaml:"blocked_domains"`
	PhishingPatterns   []string `yaml:"phishing_patterns"`
	URLShorteners      []string `yaml:"url_shorteners"`
	SuspiciousKeywords []string `yaml:"suspicious_keywords"`
}

func loadSeed() (*SeedLists, error) {
	var s SeedLists
	if err := yaml.Unmarshal(seedData, &s); err != nil {
		return nil, fmt.Errorf("failed to parse seed lists: %w", err)
	}
	return &s, nil
}
