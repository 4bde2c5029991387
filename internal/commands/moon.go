package commands

import (
	"context"
	"errors"
	"log"
	"path/filepath"
	"strings"
	"time"

	"meteo_discord_bot/internal/embeds"
	"meteo_discord_bot/internal/moon"
	"meteo_discord_bot/internal/reporting"

	"github.com/bwmarrin/discordgo"
)

// MoonFinder 日付から月画像を探す
type MoonFinder interface {
	FindByDate(ctx context.Context, day time.Time) (string, error)
}

// MoonCommand 指定日の月の画像を返す
type MoonCommand struct {
	finder   MoonFinder
	reporter *reporting.Reporter
}

// NewMoonCommand finder は nil でもよい（DB 未設定）
func NewMoonCommand(finder MoonFinder, reporter *reporting.Reporter) *MoonCommand {
	return &MoonCommand{finder: finder, reporter: reporter}
}

func (c *MoonCommand) Name() string        { return "moon" }
func (c *MoonCommand) Description() string { return "Returns moon information" }
func (c *MoonCommand) Usage() string       { return "<dd.mm.yyyy>" }

func (c *MoonCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "day",
				Description: "Day in dd.mm.yyyy format",
				Required:    true,
			},
		},
	}
}

func (c *MoonCommand) ExecuteText(s *discordgo.Session, m *discordgo.MessageCreate, args []string) error {
	if len(args) == 0 {
		_, err := s.ChannelMessageSend(m.ChannelID, "Usage: moon "+c.Usage())
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return sendChannel(s, m.ChannelID, c.respond(ctx, args[0]))
}

func (c *MoonCommand) ExecuteSlash(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if err := respondDeferred(s, i); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return sendFollowup(s, i, c.respond(ctx, stringOption(i, "day")))
}

func (c *MoonCommand) respond(ctx context.Context, arg string) reply {
	arg = strings.TrimSpace(arg)
	day, err := moon.ParseDay(arg)
	if err != nil {
		log.Printf("moon: %v", err)
		return textReply(moon.ErrInvalidDate.Error())
	}
	if c.finder == nil {
		return textReply(msgMoonDisabled)
	}

	path, err := c.finder.FindByDate(ctx, day)
	if err != nil {
		if errors.Is(err, moon.ErrNoMoonData) {
			return textReply("No moon data available for day " + arg)
		}
		log.Printf("moon: lookup for %s failed: %v", arg, err)
		c.reporter.Capture(err, map[string]string{"command": "moon"})
		return textReply(msgInternalError)
	}

	name := filepath.Base(path)
	return reply{
		embed:    embeds.BuildMoonEmbed(day, name),
		file:     path,
		fileName: name,
	}
}
