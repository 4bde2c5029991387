package handler

import (
	"meteo_discord_bot/internal/commands"
	"meteo_discord_bot/internal/config"
	"meteo_discord_bot/internal/geocode"
	"meteo_discord_bot/internal/models"
	"meteo_discord_bot/internal/reporting"
)

// Options Handler の依存
type Options struct {
	Prefix         string
	DefaultChannel string // 起動通知の送信先
	GuildID        string // スラッシュコマンドを登録するギルド。空ならグローバル

	BotInfo  *models.BotInfo
	Settings *config.SettingsManager
	Reporter *reporting.Reporter

	Geocoder geocode.Geocoder
	Resolver commands.ChartResolver
	Moon     commands.MoonFinder // nil なら月画像は無効
	Sat      commands.SatPicker
}

type Handler struct {
	registry *commands.Registry
	opts     Options
}

func NewHandler(opts Options) *Handler {
	registry := commands.NewRegistry()

	// すべてのコマンドを配列で一元管理
	commandsList := []commands.Command{
		commands.NewUMCommand(opts.Geocoder, opts.Resolver, opts.Settings, opts.Reporter, opts.BotInfo),
		commands.NewMoonCommand(opts.Moon, opts.Reporter),
		commands.NewSatCommand(opts.Sat),
		&commands.PingCommand{},
		commands.NewInfoCommand(opts.BotInfo),
	}
	if opts.Settings != nil {
		commandsList = append(commandsList, commands.NewSettingsCommand(opts.Settings))
	}
	// HelpCommandは最後に追加し、registryを渡す
	commandsList = append(commandsList, commands.NewHelpCommand(registry, opts.Prefix))

	for _, cmd := range commandsList {
		registry.Register(cmd)
	}

	return &Handler{
		registry: registry,
		opts:     opts,
	}
}
