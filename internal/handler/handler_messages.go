package handler

import (
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"
)

func (h *Handler) OnMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Botメッセージを無視
	if m.Author == nil || m.Author.Bot {
		return
	}

	cmdName, args, ok := parseCommand(h.opts.Prefix, m.Content)
	if !ok {
		return
	}
	log.Printf("Parsed command: '%s', args: %v from %s", cmdName, args, m.Author.Username)

	cmd, exists := h.registry.Get(cmdName)
	if !exists {
		log.Printf("Command '%s' not found in registry", cmdName)
		return
	}

	if err := cmd.ExecuteText(s, m, args); err != nil {
		log.Printf("Error executing command %s: %v", cmdName, err)
		h.opts.Reporter.Capture(err, map[string]string{"command": cmdName, "kind": "text"})
		s.ChannelMessageSend(m.ChannelID, "An error occurred while executing the command.")
	} else {
		log.Printf("Command %s completed successfully", cmdName)
	}
}

// parseCommand "!um Nowy Sącz" -> ("um", ["Nowy", "Sącz"])
func parseCommand(prefix, content string) (string, []string, bool) {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", nil, false
	}
	parts := strings.Fields(strings.TrimPrefix(content, prefix))
	if len(parts) == 0 {
		return "", nil, false
	}
	return parts[0], parts[1:], true
}
