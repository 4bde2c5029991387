package commands

import (
	"context"
	"errors"
	"log"
	"time"

	"meteo_discord_bot/internal/meteo"

	"github.com/bwmarrin/discordgo"
)

// SatPicker 現在の衛星画像を用意する
type SatPicker interface {
	Pick(ctx context.Context, now time.Time) (string, error)
}

// SatCommand 昼は可視、夜は赤外の衛星画像を返す
type SatCommand struct {
	picker SatPicker
	now    func() time.Time
}

func NewSatCommand(picker SatPicker) *SatCommand {
	return &SatCommand{picker: picker, now: time.Now}
}

func (c *SatCommand) Name() string        { return "sat" }
func (c *SatCommand) Description() string { return "Returns current satellite image of Poland" }

func (c *SatCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
	}
}

func (c *SatCommand) ExecuteText(s *discordgo.Session, m *discordgo.MessageCreate, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return sendChannel(s, m.ChannelID, c.respond(ctx))
}

func (c *SatCommand) ExecuteSlash(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if err := respondDeferred(s, i); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return sendFollowup(s, i, c.respond(ctx))
}

func (c *SatCommand) respond(ctx context.Context) reply {
	path, err := c.picker.Pick(ctx, c.now())
	if err != nil {
		if errors.Is(err, meteo.ErrSatDisabled) {
			return textReply(msgSatDisabled)
		}
		log.Printf("sat: %v", err)
		return textReply(msgUnavailable)
	}
	return reply{file: path}
}
