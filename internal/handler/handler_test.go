package handler

import (
	"reflect"
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		content  string
		wantName string
		wantArgs []string
		wantOK   bool
	}{
		{"!um Gdynia", "um", []string{"Gdynia"}, true},
		{"!um   Nowy  Sącz ", "um", []string{"Nowy", "Sącz"}, true},
		{"!ping", "ping", []string{}, true},
		{"!", "", nil, false},
		{"um Gdynia", "", nil, false},
		{"hello !um", "", nil, false},
	}
	for _, tt := range tests {
		name, args, ok := parseCommand("!", tt.content)
		if ok != tt.wantOK || name != tt.wantName {
			t.Errorf("parseCommand(%q) = %q, %v, %v", tt.content, name, args, ok)
			continue
		}
		if ok && !reflect.DeepEqual(args, tt.wantArgs) {
			t.Errorf("parseCommand(%q) args = %#v, want %#v", tt.content, args, tt.wantArgs)
		}
	}
}

func TestWelcomeMessage(t *testing.T) {
	if got := welcomeMessage("ola"); got != "Hi ola, welcome to our Discord server!" {
		t.Errorf("welcomeMessage = %q", got)
	}
}

func TestDiffCommands(t *testing.T) {
	cityOpt := func(desc string) []*discordgo.ApplicationCommandOption {
		return []*discordgo.ApplicationCommandOption{{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "city",
			Description: desc,
		}}
	}
	local := []*discordgo.ApplicationCommand{
		{Name: "um", Description: "meteogram", Options: cityOpt("City name")},
		{Name: "ping", Description: "alive"},
		{Name: "sat", Description: "satellite"},
	}
	remote := []*discordgo.ApplicationCommand{
		{ID: "1", Name: "um", Description: "meteogram", Options: cityOpt("Old text")},
		{ID: "2", Name: "ping", Description: "alive"},
		{ID: "3", Name: "now", Description: "stale"},
	}

	create, update, remove := diffCommands(local, remote)
	if len(create) != 1 || create[0].Name != "sat" {
		t.Errorf("create = %v", names(create))
	}
	if len(update) != 1 || update[0].Name != "um" || update[0].ID != "1" {
		t.Errorf("update = %v", names(update))
	}
	if local[0].ID != "" {
		t.Error("local definitions must not be mutated")
	}
	if len(remove) != 1 || remove[0].ID != "3" {
		t.Errorf("remove = %v", names(remove))
	}
}

func TestCommandsAreEqual_ChoiceOrder(t *testing.T) {
	a := &discordgo.ApplicationCommand{Name: "settings", Options: []*discordgo.ApplicationCommandOption{{
		Name: "keepalive",
		Choices: []*discordgo.ApplicationCommandOptionChoice{
			{Name: "on", Value: "on"}, {Name: "off", Value: "off"},
		},
	}}}
	b := &discordgo.ApplicationCommand{Name: "settings", Options: []*discordgo.ApplicationCommandOption{{
		Name: "keepalive",
		Choices: []*discordgo.ApplicationCommandOptionChoice{
			{Name: "off", Value: "off"}, {Name: "on", Value: "on"},
		},
	}}}
	if !commandsAreEqual(a, b) {
		t.Error("choice order must not matter")
	}
}

func names(cmds []*discordgo.ApplicationCommand) []string {
	out := make([]string, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, c.Name)
	}
	return out
}
