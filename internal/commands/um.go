package commands

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"meteo_discord_bot/internal/config"
	"meteo_discord_bot/internal/embeds"
	"meteo_discord_bot/internal/fetch"
	"meteo_discord_bot/internal/geocode"
	"meteo_discord_bot/internal/models"
	"meteo_discord_bot/internal/pipeline"
	"meteo_discord_bot/internal/reporting"
	"meteo_discord_bot/internal/utils"

	"github.com/bwmarrin/discordgo"
)

// ChartResolver 都市のメテオグラムを用意する
type ChartResolver interface {
	Resolve(ctx context.Context, city string, coord *geocode.Coordinate) (pipeline.Outcome, error)
}

// UMCommand 都市の UM メテオグラムを返す
type UMCommand struct {
	geocoder geocode.Geocoder
	resolver ChartResolver
	settings *config.SettingsManager
	reporter *reporting.Reporter
	botInfo  *models.BotInfo
	timeout  time.Duration
}

func NewUMCommand(geocoder geocode.Geocoder, resolver ChartResolver, settings *config.SettingsManager, reporter *reporting.Reporter, botInfo *models.BotInfo) *UMCommand {
	return &UMCommand{
		geocoder: geocoder,
		resolver: resolver,
		settings: settings,
		reporter: reporter,
		botInfo:  botInfo,
		timeout:  60 * time.Second,
	}
}

func (c *UMCommand) Name() string { return "um" }
func (c *UMCommand) Description() string {
	return "Returns UM diagram for given city"
}
func (c *UMCommand) Usage() string { return "<city>" }

func (c *UMCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "city",
				Description: "City name (e.g. Gdynia)",
				Required:    false,
			},
		},
	}
}

func (c *UMCommand) ExecuteText(s *discordgo.Session, m *discordgo.MessageCreate, args []string) error {
	city := c.cityOrDefault(m.GuildID, strings.Join(args, " "))
	if city == "" {
		_, err := s.ChannelMessageSend(m.ChannelID, "Usage: um "+c.Usage())
		return err
	}
	if err := s.ChannelTyping(m.ChannelID); err != nil {
		log.Printf("Failed to send typing: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	return sendChannel(s, m.ChannelID, c.respond(ctx, city))
}

func (c *UMCommand) ExecuteSlash(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	city := c.cityOrDefault(i.GuildID, stringOption(i, "city"))
	if city == "" {
		return respondEphemeral(s, i, "Usage: /um city:<city>")
	}
	if err := respondDeferred(s, i); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	return sendFollowup(s, i, c.respond(ctx, city))
}

func (c *UMCommand) cityOrDefault(guildID, city string) string {
	city = strings.TrimSpace(city)
	if city != "" || c.settings == nil || guildID == "" {
		return city
	}
	return c.settings.GetGuildSettings(guildID).DefaultCity
}

// respond Discord に依存しない本体
func (c *UMCommand) respond(ctx context.Context, city string) reply {
	folded := utils.FoldName(city)
	log.Printf("parsing meteogram for city %s", folded)

	coord, err := c.geocoder.Geocode(ctx, city)
	if err != nil {
		// 座標が取れなくても meteo.pl 側で見つかる可能性がある
		log.Printf("Geocoding %s failed: %v", folded, err)
		coord = nil
	}

	out, err := c.resolver.Resolve(ctx, city, coord)
	if err != nil {
		var te *fetch.TransportError
		if errors.As(err, &te) {
			log.Printf("Meteogram source unavailable for %s: %v", folded, err)
			return textReply(msgUnavailable)
		}
		log.Printf("Failed to prepare meteogram for %s: %v", folded, err)
		c.reporter.Capture(err, map[string]string{"command": "um", "city": folded})
		return textReply(msgInternalError)
	}

	if !out.Found() {
		log.Printf("No meteogram for %s: %s", folded, out.Reason)
		if out.Reason == pipeline.ReasonNoGridMatrix {
			return textReply(msgNoGrid)
		}
		return textReply(msgWrongCity)
	}

	if c.botInfo != nil {
		c.botInfo.ChartServed()
	}
	return reply{
		embed:    embeds.BuildChartEmbed(city, coord),
		file:     out.Path,
		fileName: embeds.ChartFileName,
		remove:   true,
	}
}
