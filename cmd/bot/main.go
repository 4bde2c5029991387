package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meteo_discord_bot/internal/api"
	"meteo_discord_bot/internal/commands"
	"meteo_discord_bot/internal/compositor"
	"meteo_discord_bot/internal/config"
	"meteo_discord_bot/internal/fetch"
	"meteo_discord_bot/internal/geocode"
	"meteo_discord_bot/internal/grid"
	"meteo_discord_bot/internal/handler"
	"meteo_discord_bot/internal/keepalive"
	"meteo_discord_bot/internal/meteo"
	"meteo_discord_bot/internal/models"
	"meteo_discord_bot/internal/moon"
	"meteo_discord_bot/internal/pipeline"
	"meteo_discord_bot/internal/reporting"
	"meteo_discord_bot/internal/store"
	"meteo_discord_bot/internal/utils"
	"meteo_discord_bot/internal/version"

	"github.com/bwmarrin/discordgo"
	"github.com/gofiber/fiber/v2"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	closeLog, err := utils.SetupLogging(cfg.LogsDir)
	if err != nil {
		log.Fatal(err)
	}
	defer closeLog()

	reporter, err := reporting.New(reporting.Options{
		DSN:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		Release:     version.Version,
	})
	if err != nil {
		log.Fatalf("Failed to init sentry: %v", err)
	}
	defer reporter.Flush(2 * time.Second)

	settings, err := config.NewSettingsManager(cfg.SettingsPath())
	if err != nil {
		log.Fatalf("Failed to load guild settings: %v", err)
	}

	g, err := grid.LoadOptional(cfg.GridPath, cfg.GridRows, cfg.GridCols)
	if err != nil {
		log.Fatalf("Failed to load coordinate grid: %v", err)
	}
	if g == nil {
		log.Println("GRID_PATH not set, grid fallback disabled")
	}

	lookup, err := chartLookup(cfg.ChartOverrides)
	if err != nil {
		log.Fatal(err)
	}

	// 外部サービスへのリクエストはホストごとに間隔を空ける
	limiter := utils.NewRateLimiter(cfg.RequestsPerSecond)
	httpClient := fetch.NewHTTPClient(cfg.HTTPTimeout)
	fetcher := fetch.NewHTTPFetcher(httpClient, limiter, cfg.UserAgent)

	comp := compositor.New(compositor.Options{
		BaseImageURL:  cfg.BaseImageURL,
		BaseImagePath: cfg.BaseImagePath,
		WorkDir:       cfg.MediaDir,
	}, fetcher)
	p := pipeline.New(lookup, g, meteo.NewURLBuilder(cfg.ChartURLTemplate), comp)

	geocoder := newGeocoder(cfg, httpClient, limiter)

	botInfo := models.NewBotInfo(version.Version)
	botInfo.GridLoaded = p.HasGrid()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var moonFinder commands.MoonFinder
	var apiMoon api.MoonFinder
	if cfg.DatabaseURL != "" {
		db, err := store.Open(ctx, cfg.DatabaseURL, store.Options{
			MaxAttempts: cfg.DatabaseMaxAttempts,
			RetryDelay:  store.DefaultRetryDelay,
		})
		if err != nil {
			var connErr *store.ConnectionError
			if errors.As(err, &connErr) {
				log.Fatalf("Database unavailable: %v", connErr)
			}
			log.Fatal(err)
		}
		defer closeDB(db)

		catalog := moon.NewCatalog(store.NewMoonRepository(db), cfg.MediaDir)
		moonFinder, apiMoon = catalog, catalog
		botInfo.MoonEnabled = true
	} else {
		log.Println("DATABASE_URL not set, moon command disabled")
	}

	sat := &meteo.SatPicker{
		Sun:      &meteo.SunClient{Client: httpClient},
		Fetcher:  fetcher,
		MediaDir: cfg.MediaDir,
		DayURL:   cfg.SatURL,
		NightURL: cfg.SatInfraURL,
		Lat:      cfg.SatLat,
		Lng:      cfg.SatLng,
	}

	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		log.Fatal(err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	h := handler.NewHandler(handler.Options{
		Prefix:         cfg.Prefix,
		DefaultChannel: cfg.DefaultChannel,
		GuildID:        cfg.GuildID,
		BotInfo:        botInfo,
		Settings:       settings,
		Reporter:       reporter,
		Geocoder:       geocoder,
		Resolver:       p,
		Moon:           moonFinder,
		Sat:            sat,
	})
	dg.AddHandler(h.OnReady)
	dg.AddHandler(h.OnGuildCreate)
	dg.AddHandler(h.OnMemberJoin)
	dg.AddHandler(h.OnMessage)
	dg.AddHandler(h.OnInteractionCreate)

	if err := dg.Open(); err != nil {
		log.Fatal(err)
	}
	defer dg.Close()

	loc, err := utils.ParseTimezone(cfg.KeepAliveTZ)
	if err != nil {
		log.Printf("Unknown KEEPALIVE_TZ %q, using UTC: %v", cfg.KeepAliveTZ, err)
		loc = time.UTC
	}
	ka := keepalive.New(keepalive.Options{
		Location: loc,
		Channels: func() []string {
			return append([]string{cfg.DefaultChannel}, settings.KeepAliveChannels()...)
		},
		Send: func(channelID, text string) error {
			_, err := dg.ChannelMessageSend(channelID, text)
			return err
		},
	})
	if err := ka.Start(); err != nil {
		log.Fatalf("Failed to start keep-alive: %v", err)
	}
	defer ka.Stop()

	var app *fiber.App
	if cfg.HTTPAddr != "" {
		app = api.NewApp(api.Deps{
			Pipeline: p,
			Geocoder: geocoder,
			Moon:     apiMoon,
			Reporter: reporter,
		})
		go func() {
			log.Printf("HTTP API listening on %s", cfg.HTTPAddr)
			if err := app.Listen(cfg.HTTPAddr); err != nil {
				log.Printf("fiber server stopped: %v", err)
			}
		}()
	}

	log.Printf("Bot %s running. Date: %s", version.Version, time.Now().Format("2006-01-02"))
	<-ctx.Done()
	log.Println("Shutting down...")

	if app != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Printf("error during shutdown: %v", err)
		}
	}
}

func chartLookup(overrides string) (pipeline.ChartLookup, error) {
	if overrides == "" {
		return meteo.NoRemoteLookup{}, nil
	}
	static, err := meteo.ParseStaticLookup(overrides)
	if err != nil {
		return nil, err
	}
	log.Printf("Loaded %d chart overrides", len(static))
	return static, nil
}

// newGeocoder API キーがあれば Google、なければ Nominatim
func newGeocoder(cfg *config.Config, client *http.Client, limiter *utils.RateLimiter) geocode.Geocoder {
	if cfg.GoogleGeocoderAPIKey != "" {
		log.Println("Using Google geocoder")
		return geocode.NewCached(geocode.NewGoogle(cfg.GoogleGeocoderAPIKey, cfg.GeocoderCountry))
	}
	n := geocode.NewNominatim(client, limiter, cfg.UserAgent)
	if cfg.NominatimURL != "" {
		n.BaseURL = cfg.NominatimURL
	}
	return geocode.NewCached(n)
}

func closeDB(db *sql.DB) {
	if err := db.Close(); err != nil {
		log.Printf("Failed to close database: %v", err)
	}
}
