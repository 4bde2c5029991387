package handler

import (
	"fmt"
	"log"
	"reflect"
	"sort"

	"github.com/bwmarrin/discordgo"
)

// SyncSlashCommands ローカルの定義に合わせて作成・更新・削除する
func (h *Handler) SyncSlashCommands(s *discordgo.Session) error {
	scope := "global"
	if h.opts.GuildID != "" {
		scope = "guild " + h.opts.GuildID
	}
	log.Printf("Syncing slash commands (%s)...", scope)

	appID := s.State.User.ID
	remoteCommands, err := s.ApplicationCommands(appID, h.opts.GuildID)
	if err != nil {
		return fmt.Errorf("could not fetch remote commands: %w", err)
	}

	create, update, remove := diffCommands(h.registry.GetSlashDefinitions(), remoteCommands)

	for _, cmd := range create {
		log.Printf("Creating slash command: /%s", cmd.Name)
		if _, err := s.ApplicationCommandCreate(appID, h.opts.GuildID, cmd); err != nil {
			log.Printf("Failed to create command /%s: %v", cmd.Name, err)
		}
	}
	for _, cmd := range update {
		log.Printf("Updating slash command: /%s", cmd.Name)
		if _, err := s.ApplicationCommandEdit(appID, h.opts.GuildID, cmd.ID, cmd); err != nil {
			log.Printf("Failed to update command /%s: %v", cmd.Name, err)
		}
	}
	for _, cmd := range remove {
		log.Printf("Deleting outdated slash command: /%s", cmd.Name)
		if err := s.ApplicationCommandDelete(appID, h.opts.GuildID, cmd.ID); err != nil {
			log.Printf("Failed to delete command /%s: %v", cmd.Name, err)
		}
	}

	log.Println("Slash command sync complete.")
	return nil
}

// diffCommands update にはリモートの ID を入れたローカル定義が入る
func diffCommands(local, remote []*discordgo.ApplicationCommand) (create, update, remove []*discordgo.ApplicationCommand) {
	remoteByName := make(map[string]*discordgo.ApplicationCommand, len(remote))
	for _, cmd := range remote {
		remoteByName[cmd.Name] = cmd
	}

	for _, l := range local {
		r, exists := remoteByName[l.Name]
		if !exists {
			create = append(create, l)
			continue
		}
		delete(remoteByName, l.Name)
		if !commandsAreEqual(l, r) {
			edited := *l
			edited.ID = r.ID
			update = append(update, &edited)
		}
	}

	for _, r := range remote {
		if _, stale := remoteByName[r.Name]; stale {
			remove = append(remove, r)
		}
	}
	return create, update, remove
}

func commandsAreEqual(c1, c2 *discordgo.ApplicationCommand) bool {
	if c1.Name != c2.Name || c1.Description != c2.Description {
		return false
	}
	return optionListsAreEqual(c1.Options, c2.Options)
}

func optionListsAreEqual(a, b []*discordgo.ApplicationCommandOption) bool {
	if len(a) != len(b) {
		return false
	}
	a, b = sortedOptions(a), sortedOptions(b)
	for i := range a {
		if !optionsAreEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func optionsAreEqual(o1, o2 *discordgo.ApplicationCommandOption) bool {
	if o1.Type != o2.Type || o1.Name != o2.Name || o1.Description != o2.Description || o1.Required != o2.Required {
		return false
	}
	if len(o1.Choices) != len(o2.Choices) {
		return false
	}
	if len(o1.Choices) > 0 && !reflect.DeepEqual(sortedChoices(o1.Choices), sortedChoices(o2.Choices)) {
		return false
	}
	return optionListsAreEqual(o1.Options, o2.Options)
}

func sortedOptions(opts []*discordgo.ApplicationCommandOption) []*discordgo.ApplicationCommandOption {
	out := make([]*discordgo.ApplicationCommandOption, len(opts))
	copy(out, opts)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func sortedChoices(choices []*discordgo.ApplicationCommandOptionChoice) []*discordgo.ApplicationCommandOptionChoice {
	out := make([]*discordgo.ApplicationCommandOptionChoice, len(choices))
	copy(out, choices)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
