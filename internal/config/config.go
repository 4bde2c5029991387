package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config 環境変数から読み込む起動時設定
type Config struct {
	DiscordToken   string `validate:"required"`
	Prefix         string `validate:"required"`
	DefaultChannel string // 起動通知・定期メッセージの送信先
	GuildID        string // スラッシュコマンドの登録先。空ならグローバル

	DataDir  string `validate:"required"`
	MediaDir string `validate:"required"`
	LogsDir  string

	GridPath string `validate:"omitempty,file"`
	GridRows int    `validate:"gt=0"`
	GridCols int    `validate:"gt=0"`

	BaseImagePath    string `validate:"required"`
	BaseImageURL     string `validate:"omitempty,url"`
	ChartURLTemplate string `validate:"required,contains={row},contains={col}"`
	ChartOverrides   string // city=url,city=url

	GoogleGeocoderAPIKey string
	GeocoderCountry      string
	NominatimURL         string `validate:"omitempty,url"`
	UserAgent            string `validate:"required"`

	DatabaseURL         string
	DatabaseMaxAttempts int `validate:"gte=1"`

	SatURL      string  `validate:"omitempty,url"`
	SatInfraURL string  `validate:"omitempty,url"`
	SatLat      float64 `validate:"latitude"`
	SatLng      float64 `validate:"longitude"`

	KeepAliveTZ string `validate:"required"`

	HTTPAddr          string
	SentryDSN         string `validate:"omitempty,url"`
	SentryEnvironment string

	RequestsPerSecond int           `validate:"gt=0"`
	HTTPTimeout       time.Duration `validate:"gt=0"`
}

var validate = validator.New()

// Load .env があれば読み込んでから環境変数で Config を作る
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}
	return FromEnv(os.Getenv)
}

// FromEnv getenv から Config を作って検証する
func FromEnv(getenv func(string) string) (*Config, error) {
	e := env{getenv: getenv}

	cfg := &Config{
		DiscordToken:   e.str("DISCORD_TOKEN", ""),
		Prefix:         e.str("BOT_PREFIX", "!"),
		DefaultChannel: e.str("CHANNEL_DEFAULT", ""),
		GuildID:        e.str("DISCORD_GUILD", ""),

		DataDir:  e.str("DATA_DIR", "data"),
		MediaDir: e.str("MEDIA_DIR", "media"),
		LogsDir:  e.str("LOGS_DIR", "logs"),

		GridPath: e.str("GRID_PATH", ""),
		GridRows: e.number("GRID_ROWS", 616),
		GridCols: e.number("GRID_COLS", 448),

		BaseImagePath:    e.str("BASE_IMAGE_PATH", "utils/base.png"),
		BaseImageURL:     e.str("BASE_IMAGE_URL", "http://www.meteo.pl/um/metco/leg_um_pl_cbase_256.png"),
		ChartURLTemplate: e.str("CHART_URL_TEMPLATE", "http://www.meteo.pl/um/metco/mgram_pict.php?ntype=0u&row={row}&col={col}&lang=pl&uid={uid}"),
		ChartOverrides:   e.str("CHART_OVERRIDES", ""),

		GoogleGeocoderAPIKey: e.str("GOOGLE_GEOCODER_API_KEY", ""),
		GeocoderCountry:      e.str("GEOCODER_COUNTRY", "Poland"),
		NominatimURL:         e.str("NOMINATIM_URL", ""),
		UserAgent:            e.str("USER_AGENT", "meteo_discord_bot/1.0"),

		DatabaseURL:         e.str("DATABASE_URL", ""),
		DatabaseMaxAttempts: e.number("DATABASE_MAX_ATTEMPTS", 5),

		SatURL:      e.str("SAT_URL", ""),
		SatInfraURL: e.str("SAT_INFRA_URL", ""),
		SatLat:      e.float("SAT_LAT", 52.2297),
		SatLng:      e.float("SAT_LNG", 21.0122),

		KeepAliveTZ: e.str("KEEPALIVE_TZ", "Europe/Warsaw"),

		HTTPAddr:          e.str("HTTP_ADDR", ""),
		SentryDSN:         e.str("SENTRY_DSN", ""),
		SentryEnvironment: e.str("SENTRY_ENVIRONMENT", "production"),

		RequestsPerSecond: e.number("REQUESTS_PER_SECOND", 2),
		HTTPTimeout:       e.duration("HTTP_TIMEOUT", 15*time.Second),
	}
	if len(e.errs) > 0 {
		return nil, fmt.Errorf("config: %s", strings.Join(e.errs, "; "))
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// SettingsPath サーバーごとの設定ファイル
func (c *Config) SettingsPath() string {
	return filepath.Join(c.DataDir, "settings.json")
}

type env struct {
	getenv func(string) string
	errs   []string
}

func (e *env) str(key, def string) string {
	if v := strings.TrimSpace(e.getenv(key)); v != "" {
		return v
	}
	return def
}

func (e *env) number(key string, def int) int {
	v := strings.TrimSpace(e.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: %v", key, err))
		return def
	}
	return n
}

func (e *env) float(key string, def float64) float64 {
	v := strings.TrimSpace(e.getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: %v", key, err))
		return def
	}
	return f
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(e.getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: %v", key, err))
		return def
	}
	return d
}
