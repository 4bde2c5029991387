package api

import (
	"context"
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"meteo_discord_bot/internal/fetch"
	"meteo_discord_bot/internal/geocode"
	"meteo_discord_bot/internal/moon"
	"meteo_discord_bot/internal/pipeline"
	"meteo_discord_bot/internal/reporting"
)

var validate = validator.New()

// Resolver 都市のメテオグラムを用意する
type Resolver interface {
	Resolve(ctx context.Context, city string, coord *geocode.Coordinate) (pipeline.Outcome, error)
}

// MoonFinder 日付から月画像を探す
type MoonFinder interface {
	FindByDate(ctx context.Context, day time.Time) (string, error)
}

// Deps ルートが使う依存。Moon が nil なら月画像のルートは登録しない
type Deps struct {
	Pipeline Resolver
	Geocoder geocode.Geocoder
	Moon     MoonFinder
	Reporter *reporting.Reporter
	Timeout  time.Duration
}

// NewApp ミドルウェアとルートを設定した fiber.App を作る
func NewApp(deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "meteo_discord_bot",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "meteo_discord_bot",
		})
	})

	RegisterRoutes(app, deps)
	return app
}

// RegisterRoutes /api/v1 以下を登録
func RegisterRoutes(app *fiber.App, deps Deps) {
	if deps.Timeout <= 0 {
		deps.Timeout = 60 * time.Second
	}
	v1 := app.Group("/api/v1")

	v1.Get("/chart", func(c *fiber.Ctx) error {
		q, err := parseChartQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), deps.Timeout)
		defer cancel()

		coord := q.coordinate()
		if coord == nil && deps.Geocoder != nil {
			coord, err = deps.Geocoder.Geocode(ctx, q.City)
			if err != nil {
				// 座標がなくてもリモートの検索で見つかることがある
				log.Printf("api: geocoding %s failed: %v", q.City, err)
				coord = nil
			}
		}

		out, err := deps.Pipeline.Resolve(ctx, q.City, coord)
		if err != nil {
			var te *fetch.TransportError
			if errors.As(err, &te) {
				return fiber.NewError(fiber.StatusBadGateway, "chart source unavailable")
			}
			deps.Reporter.Capture(err, map[string]string{"route": "chart"})
			return fiber.NewError(fiber.StatusInternalServerError, "failed to prepare chart")
		}
		if !out.Found() {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error":  true,
				"reason": string(out.Reason),
			})
		}

		// 合成画像は返したら消す
		data, err := os.ReadFile(out.Path)
		if rmErr := os.Remove(out.Path); rmErr != nil {
			log.Printf("api: failed to remove %s: %v", out.Path, rmErr)
		}
		if err != nil {
			return err
		}
		c.Type("png")
		return c.Send(data)
	})

	if deps.Moon == nil {
		return
	}
	v1.Get("/moon/:date", func(c *fiber.Ctx) error {
		day, err := moon.ParseDay(c.Params("date"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, moon.ErrInvalidDate.Error())
		}
		path, err := deps.Moon.FindByDate(c.UserContext(), day)
		if err != nil {
			if errors.Is(err, moon.ErrNoMoonData) {
				return fiber.NewError(fiber.StatusNotFound, err.Error())
			}
			deps.Reporter.Capture(err, map[string]string{"route": "moon"})
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load moon image")
		}
		return c.SendFile(path)
	})
}

// chartQuery lat と lng は両方指定した時だけ使う
type chartQuery struct {
	City string   `validate:"required"`
	Lat  *float64 `validate:"required_with=Lng,omitempty,latitude"`
	Lng  *float64 `validate:"required_with=Lat,omitempty,longitude"`
}

func (q chartQuery) coordinate() *geocode.Coordinate {
	if q.Lat == nil || q.Lng == nil {
		return nil
	}
	return &geocode.Coordinate{Latitude: *q.Lat, Longitude: *q.Lng}
}

func parseChartQuery(c *fiber.Ctx) (chartQuery, error) {
	q := chartQuery{City: c.Query("city")}

	for _, p := range []struct {
		name string
		dst  **float64
	}{{"lat", &q.Lat}, {"lng", &q.Lng}} {
		raw := c.Query(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return q, errors.New(p.name + " must be a number")
		}
		*p.dst = &v
	}

	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}
