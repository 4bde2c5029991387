package embeds

import (
	"fmt"
	"strings"
	"time"

	"meteo_discord_bot/internal/geocode"
	"meteo_discord_bot/internal/models"
	"meteo_discord_bot/internal/version"

	"github.com/bwmarrin/discordgo"
)

const (
	colorMeteo = 0x3498DB // Blue
	colorMoon  = 0xF1C40F // Yellow
	colorInfo  = 0xFFD700 // Gold
)

// ChartFileName メテオグラムの添付ファイル名
const ChartFileName = "um.png"

// BuildInfoEmbed info コマンド用の埋め込みを作成
func BuildInfoEmbed(botInfo *models.BotInfo) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "🌦️ Meteo bot",
		Description: "UM 4km meteograms from meteo.pl",
		Color:       colorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Version", Value: botInfo.Version, Inline: true},
			{Name: "Started", Value: botInfo.StartTime.Format("2006-01-02 15:04:05 MST"), Inline: true},
			{Name: "Uptime", Value: formatUptime(botInfo.Uptime()), Inline: false},
			{Name: "Meteograms sent", Value: fmt.Sprintf("%d", botInfo.ChartsServed()), Inline: true},
			{Name: "Grid fallback", Value: onOff(botInfo.GridLoaded), Inline: true},
			{Name: "Moon catalog", Value: onOff(botInfo.MoonEnabled), Inline: true},
			{Name: "Changes", Value: "• " + strings.Join(version.PatchNotes, "\n• "), Inline: false},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Source: " + version.SourceURL,
		},
	}
}

// BuildBotStartupEmbed 起動通知
func BuildBotStartupEmbed(botInfo *models.BotInfo) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "I'm back. Did you miss me?",
		Description: fmt.Sprintf("Version %s", botInfo.Version),
		Color:       colorInfo,
		Timestamp:   botInfo.StartTime.Format(time.RFC3339),
	}
}

// BuildChartEmbed メテオグラム添付用。coord は nil でもよい
func BuildChartEmbed(city string, coord *geocode.Coordinate) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "UM meteogram: " + city,
		Color: colorMeteo,
		Image: &discordgo.MessageEmbedImage{URL: "attachment://" + ChartFileName},
		Footer: &discordgo.MessageEmbedFooter{
			Text: "meteo.pl, ICM UW",
		},
	}
	if coord != nil {
		embed.Description = fmt.Sprintf("📍 %.4f, %.4f", coord.Latitude, coord.Longitude)
	}
	return embed
}

// BuildMoonEmbed 月画像添付用
func BuildMoonEmbed(day time.Time, fileName string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "🌙 Moon " + day.Format("02.01.2006"),
		Color: colorMoon,
		Image: &discordgo.MessageEmbedImage{URL: "attachment://" + fileName},
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	} else if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
