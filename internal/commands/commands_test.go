package commands

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"meteo_discord_bot/internal/config"
	"meteo_discord_bot/internal/fetch"
	"meteo_discord_bot/internal/geocode"
	"meteo_discord_bot/internal/meteo"
	"meteo_discord_bot/internal/models"
	"meteo_discord_bot/internal/moon"
	"meteo_discord_bot/internal/pipeline"
)

type stubGeocoder struct {
	coord *geocode.Coordinate
	err   error
}

func (g stubGeocoder) Geocode(context.Context, string) (*geocode.Coordinate, error) {
	return g.coord, g.err
}

type stubResolver struct {
	out   pipeline.Outcome
	err   error
	coord *geocode.Coordinate
}

func (r *stubResolver) Resolve(_ context.Context, _ string, coord *geocode.Coordinate) (pipeline.Outcome, error) {
	r.coord = coord
	return r.out, r.err
}

func TestRegistry_OrderAndLookup(t *testing.T) {
	r := NewRegistry()
	r.Register(&PingCommand{})
	r.Register(NewSatCommand(nil))
	r.Register(NewHelpCommand(r, "!"))
	r.Register(&PingCommand{})

	var names []string
	for _, cmd := range r.All() {
		names = append(names, cmd.Name())
	}
	if strings.Join(names, ",") != "ping,sat,help" {
		t.Errorf("order = %v", names)
	}
	if _, ok := r.Get("SAT"); !ok {
		t.Error("lookup should be case-insensitive")
	}
	if got := len(r.GetSlashDefinitions()); got != 3 {
		t.Errorf("slash definitions = %d", got)
	}
}

func TestUM_Found(t *testing.T) {
	coord := &geocode.Coordinate{Latitude: 54.15, Longitude: 19.24}
	info := models.NewBotInfo("test")
	res := &stubResolver{out: pipeline.Outcome{Path: "/tmp/merged-1.png"}}
	c := NewUMCommand(stubGeocoder{coord: coord}, res, nil, nil, info)

	r := c.respond(context.Background(), "Elbląg")
	if r.file != "/tmp/merged-1.png" || !r.remove || r.fileName != "um.png" {
		t.Errorf("reply = %+v", r)
	}
	if r.embed == nil || !strings.Contains(r.embed.Title, "Elbląg") {
		t.Errorf("embed = %+v", r.embed)
	}
	if res.coord != coord {
		t.Error("geocoded coordinate must be passed to the pipeline")
	}
	if info.ChartsServed() != 1 {
		t.Errorf("charts served = %d", info.ChartsServed())
	}
}

func TestUM_Messages(t *testing.T) {
	tests := []struct {
		name string
		geo  stubGeocoder
		res  *stubResolver
		want string
	}{
		{"no coordinate", stubGeocoder{}, &stubResolver{out: pipeline.Outcome{Reason: pipeline.ReasonNoCoordinate}}, msgWrongCity},
		{"no grid", stubGeocoder{}, &stubResolver{out: pipeline.Outcome{Reason: pipeline.ReasonNoGridMatrix}}, msgNoGrid},
		{"transport", stubGeocoder{}, &stubResolver{err: &fetch.TransportError{URL: "u", Err: errors.New("timeout")}}, msgUnavailable},
		{"internal", stubGeocoder{}, &stubResolver{err: errors.New("decode chart")}, msgInternalError},
		{"geocoder down", stubGeocoder{err: errors.New("503")}, &stubResolver{out: pipeline.Outcome{Reason: pipeline.ReasonNoCoordinate}}, msgWrongCity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewUMCommand(tt.geo, tt.res, nil, nil, nil)
			r := c.respond(context.Background(), "Nowhere")
			if r.content != tt.want || r.file != "" {
				t.Errorf("reply = %+v, want %q", r, tt.want)
			}
		})
	}
}

func TestInfo_Availability(t *testing.T) {
	info := models.NewBotInfo("test")
	got := availability(info)
	if !strings.Contains(got, "meteo.pl lookup only") || !strings.Contains(got, "moon: disabled") {
		t.Errorf("bare bot = %q", got)
	}

	info.GridLoaded, info.MoonEnabled = true, true
	info.ChartServed()
	info.ChartServed()
	got = availability(info)
	for _, want := range []string{"nearest grid point", "moon: available", "2 meteograms sent"} {
		if !strings.Contains(got, want) {
			t.Errorf("availability = %q, missing %q", got, want)
		}
	}

	msg := NewInfoCommand(info).message()
	if len(msg.Embeds) != 1 || msg.Content != got {
		t.Errorf("message = %+v", msg)
	}
}

func TestUM_DefaultCity(t *testing.T) {
	sm, err := config.NewSettingsManager(filepath.Join(t.TempDir(), "settings.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := sm.UpdateGuildSetting("g1", func(gs *config.GuildSettings) { gs.DefaultCity = "Hel" }); err != nil {
		t.Fatal(err)
	}
	c := NewUMCommand(stubGeocoder{}, &stubResolver{}, sm, nil, nil)

	if got := c.cityOrDefault("g1", "  "); got != "Hel" {
		t.Errorf("default city = %q", got)
	}
	if got := c.cityOrDefault("g1", "Puck"); got != "Puck" {
		t.Errorf("explicit city = %q", got)
	}
	if got := c.cityOrDefault("", ""); got != "" {
		t.Errorf("DM without city = %q", got)
	}
}

type stubMoon struct {
	path string
	err  error
	day  time.Time
}

func (m *stubMoon) FindByDate(_ context.Context, day time.Time) (string, error) {
	m.day = day
	return m.path, m.err
}

func TestMoon_Respond(t *testing.T) {
	finder := &stubMoon{path: "media/moon/2023-02-20.png"}
	c := NewMoonCommand(finder, nil)

	r := c.respond(context.Background(), "20.02.2023")
	if r.file != finder.path || r.remove || r.fileName != "2023-02-20.png" {
		t.Errorf("reply = %+v", r)
	}
	if !finder.day.Equal(time.Date(2023, 2, 20, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("day = %v", finder.day)
	}

	if r := c.respond(context.Background(), "35.02.2023"); r.content != "Day or month is out of range" {
		t.Errorf("invalid day reply = %q", r.content)
	}

	empty := NewMoonCommand(&stubMoon{err: moon.ErrNoMoonData}, nil)
	if r := empty.respond(context.Background(), "20.02.2023"); r.content != "No moon data available for day 20.02.2023" {
		t.Errorf("no data reply = %q", r.content)
	}

	disabled := NewMoonCommand(nil, nil)
	if r := disabled.respond(context.Background(), "20.02.2023"); r.content != msgMoonDisabled {
		t.Errorf("disabled reply = %q", r.content)
	}
}

type stubPicker struct {
	path string
	err  error
}

func (p stubPicker) Pick(context.Context, time.Time) (string, error) { return p.path, p.err }

func TestSat_Respond(t *testing.T) {
	if r := NewSatCommand(stubPicker{path: "media/sat.gif"}).respond(context.Background()); r.file != "media/sat.gif" || r.remove {
		t.Errorf("reply = %+v", r)
	}
	if r := NewSatCommand(stubPicker{err: meteo.ErrSatDisabled}).respond(context.Background()); r.content != msgSatDisabled {
		t.Errorf("disabled reply = %q", r.content)
	}
	if r := NewSatCommand(stubPicker{err: errors.New("timeout")}).respond(context.Background()); r.content != msgUnavailable {
		t.Errorf("error reply = %q", r.content)
	}
}

func TestParseSettingsArgs(t *testing.T) {
	got, err := parseSettingsArgs([]string{"keepalive", "HERE", "city", "Nowy", "Sącz"})
	if err != nil {
		t.Fatal(err)
	}
	if got["keepalive"] != "here" || got["city"] != "Nowy Sącz" {
		t.Errorf("changes = %v", got)
	}

	for _, bad := range [][]string{{"keepalive"}, {"city"}, {"volume", "11"}} {
		if _, err := parseSettingsArgs(bad); err == nil {
			t.Errorf("parseSettingsArgs(%v) should fail", bad)
		}
	}
}

func TestApplySettings(t *testing.T) {
	gs := config.DefaultGuildSettings
	if err := applySettings(&gs, "c42", map[string]string{"keepalive": "here", "city": "Hel"}); err != nil {
		t.Fatal(err)
	}
	if gs.KeepAliveChannel == nil || *gs.KeepAliveChannel != "c42" || gs.DefaultCity != "Hel" {
		t.Errorf("settings = %+v", gs)
	}

	if err := applySettings(&gs, "c42", map[string]string{"keepalive": "off", "city": "clear"}); err != nil {
		t.Fatal(err)
	}
	if gs.KeepAliveEnabled || gs.DefaultCity != "" {
		t.Errorf("settings = %+v", gs)
	}

	if err := applySettings(&gs, "c42", map[string]string{"keepalive": "maybe"}); err == nil {
		t.Error("invalid keepalive value should fail")
	}
}

func TestReply_AttachRemovesOwnedFile(t *testing.T) {
	dir := t.TempDir()
	owned := filepath.Join(dir, "merged.png")
	cached := filepath.Join(dir, "sat.gif")
	for _, p := range []string{owned, cached} {
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	files, done, err := reply{file: owned, fileName: "um.png", remove: true}.attach()
	if err != nil {
		t.Fatal(err)
	}
	if files[0].Name != "um.png" || files[0].ContentType != "image/png" {
		t.Errorf("file = %+v", files[0])
	}
	done()
	if _, err := os.Stat(owned); !os.IsNotExist(err) {
		t.Error("owned composite must be removed after sending")
	}

	files, done, err = reply{file: cached}.attach()
	if err != nil {
		t.Fatal(err)
	}
	if files[0].Name != "sat.gif" || files[0].ContentType != "image/gif" {
		t.Errorf("file = %+v", files[0])
	}
	done()
	if _, err := os.Stat(cached); err != nil {
		t.Error("cached image must be kept")
	}
}
