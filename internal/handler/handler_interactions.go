package handler

import (
	"log"

	"github.com/bwmarrin/discordgo"
)

// OnInteractionCreate スラッシュコマンドハンドラー
func (h *Handler) OnInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		log.Printf("Unhandled interaction type: %d", i.Type)
		return
	}

	cmdName := i.ApplicationCommandData().Name
	cmd, exists := h.registry.Get(cmdName)
	if !exists {
		log.Printf("Unknown slash command: %s", cmdName)
		return
	}

	log.Printf("Executing slash command: /%s", cmdName)
	if err := cmd.ExecuteSlash(s, i); err != nil {
		log.Printf("Error executing slash command %s: %v", cmdName, err)
		h.opts.Reporter.Capture(err, map[string]string{"command": cmdName, "kind": "slash"})
		// 応答済み（defer 後）の場合もあるので followup で送る
		if _, ferr := s.FollowupMessageCreate(i.Interaction, false, &discordgo.WebhookParams{
			Content: "An error occurred while executing the command.",
			Flags:   discordgo.MessageFlagsEphemeral,
		}); ferr != nil {
			s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseChannelMessageWithSource,
				Data: &discordgo.InteractionResponseData{
					Content: "An error occurred while executing the command.",
					Flags:   discordgo.MessageFlagsEphemeral,
				},
			})
		}
	} else {
		log.Printf("Slash command %s completed", cmdName)
	}
}
