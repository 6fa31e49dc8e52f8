package commands

import (
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestCommandNamesUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, c := range Commands {
		if c.Name == "" || c.Description == "" {
			t.Errorf("command %q missing name or description", c.Name)
		}
		if seen[c.Name] {
			t.Errorf("duplicate command name %q", c.Name)
		}
		seen[c.Name] = true
	}
}

func TestUnwarnRegistered(t *testing.T) {
	var unwarn *discordgo.ApplicationCommand
	for _, c := range Commands {
		if c.Name == "unwarn" {
			unwarn = c
		}
	}
	if unwarn == nil {
		t.Fatal("unwarn should be registered")
	}
	if len(unwarn.Options) != 1 {
		t.Fatalf("unwarn options = %d, want 1", len(unwarn.Options))
	}
	opt := unwarn.Options[0]
	if opt.Name != "warning_id" || opt.Type != discordgo.ApplicationCommandOptionInteger || !opt.Required {
		t.Errorf("unwarn should take one required integer warning_id, got %+v", opt)
	}
}
