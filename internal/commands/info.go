package commands

import (
	"fmt"

	"meteo_discord_bot/internal/embeds"
	"meteo_discord_bot/internal/models"

	"github.com/bwmarrin/discordgo"
)

// InfoCommand バージョンと、どの機能が使えるかを返す
type InfoCommand struct {
	botInfo *models.BotInfo
}

func NewInfoCommand(botInfo *models.BotInfo) *InfoCommand {
	return &InfoCommand{botInfo: botInfo}
}

func (c *InfoCommand) Name() string        { return "info" }
func (c *InfoCommand) Description() string { return "Shows bot version and which chart sources are available" }

func (c *InfoCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
	}
}

func (c *InfoCommand) ExecuteText(s *discordgo.Session, m *discordgo.MessageCreate, args []string) error {
	_, err := s.ChannelMessageSendComplex(m.ChannelID, c.message())
	return err
}

func (c *InfoCommand) ExecuteSlash(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	msg := c.message()
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: msg.Content,
			Embeds:  msg.Embeds,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

func (c *InfoCommand) message() *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content: availability(c.botInfo),
		Embeds:  []*discordgo.MessageEmbed{embeds.BuildInfoEmbed(c.botInfo)},
	}
}

// availability 格子・月画像が使えない場合に何が起きるかを一行で伝える
func availability(info *models.BotInfo) string {
	um := "um: meteo.pl lookup + nearest grid point"
	if !info.GridLoaded {
		um = "um: meteo.pl lookup only (no coordinate grid loaded)"
	}
	moon := "moon: available"
	if !info.MoonEnabled {
		moon = "moon: disabled (no database)"
	}
	return fmt.Sprintf("%s · %s · %d meteograms sent", um, moon, info.ChartsServed())
}
