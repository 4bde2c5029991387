package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"meteo_discord_bot/internal/fetch"
	"meteo_discord_bot/internal/geocode"
	"meteo_discord_bot/internal/grid"
	"meteo_discord_bot/internal/meteo"
)

type stubLookup struct {
	url string
	err error
}

func (s stubLookup) ChartURL(context.Context, string) (string, error) {
	return s.url, s.err
}

type stubComposer struct {
	urls []string
	path string
	err  error
}

func (s *stubComposer) Compose(_ context.Context, url string) (string, error) {
	s.urls = append(s.urls, url)
	return s.path, s.err
}

func sequenceGrid(t *testing.T) *grid.Grid {
	t.Helper()
	data := make([]float64, grid.DefaultRows*grid.DefaultCols*2)
	for i := range data {
		data[i] = float64(i) * 0.0005
	}
	g, err := grid.New(grid.DefaultRows, grid.DefaultCols, data)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func fixedBuilder() meteo.URLBuilder {
	b := meteo.NewURLBuilder("")
	b.NewUID = func() string { return "3" }
	return b
}

func TestResolve_NoURLNoGrid(t *testing.T) {
	composer := &stubComposer{path: "merged.png"}
	p := New(stubLookup{}, nil, fixedBuilder(), composer)

	out, err := p.Resolve(context.Background(), "City", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if out.Found() || out.Reason != ReasonNoGridMatrix {
		t.Errorf("outcome = %+v, want NotFound(no-grid-matrix)", out)
	}
	if len(composer.urls) != 0 {
		t.Error("composer must not be called")
	}
}

func TestResolve_NoURLNoCoordinate(t *testing.T) {
	composer := &stubComposer{path: "merged.png"}
	p := New(stubLookup{}, sequenceGrid(t), fixedBuilder(), composer)

	out, err := p.Resolve(context.Background(), "City", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if out.Found() || out.Reason != ReasonNoCoordinate {
		t.Errorf("outcome = %+v, want NotFound(no-coordinate)", out)
	}
}

func TestResolve_RemoteURLWins(t *testing.T) {
	remote := "http://www.meteo.pl/um/metco/mgram_pict.php?ntype=0u&row=100&col=200&lang=pl&uid=3"
	for _, g := range []*grid.Grid{nil, sequenceGrid(t)} {
		composer := &stubComposer{path: "merged.png"}
		p := New(stubLookup{url: remote}, g, fixedBuilder(), composer)

		out, err := p.Resolve(context.Background(), "City", nil)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if !out.Found() || out.Path != "merged.png" {
			t.Errorf("outcome = %+v, want Found(merged.png)", out)
		}
		if len(composer.urls) != 1 || composer.urls[0] != remote {
			t.Errorf("composed %v, want %s", composer.urls, remote)
		}
	}
}

func TestResolve_GridFallback(t *testing.T) {
	composer := &stubComposer{path: "merged.png"}
	p := New(stubLookup{}, sequenceGrid(t), fixedBuilder(), composer)

	out, err := p.Resolve(context.Background(), "Gdynia", &geocode.Coordinate{Latitude: 54.15, Longitude: 19.24})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !out.Found() {
		t.Fatalf("outcome = %+v, want Found", out)
	}
	if len(composer.urls) != 1 {
		t.Fatalf("composer calls = %d", len(composer.urls))
	}
	u := composer.urls[0]
	if !strings.Contains(u, "row=80") || !strings.Contains(u, "col=409") || !strings.Contains(u, "uid=3") {
		t.Errorf("unexpected chart URL %s", u)
	}
}

func TestResolve_LookupErrorIsTransportError(t *testing.T) {
	p := New(stubLookup{err: errors.New("connection reset")}, sequenceGrid(t), fixedBuilder(), &stubComposer{})

	_, err := p.Resolve(context.Background(), "City", nil)
	var te *fetch.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected *fetch.TransportError, got %v", err)
	}
}

func TestResolve_ComposeErrorPropagates(t *testing.T) {
	cause := &fetch.TransportError{URL: "http://meteo.test", Err: errors.New("timeout")}
	p := New(stubLookup{url: "http://meteo.test"}, nil, fixedBuilder(), &stubComposer{err: cause})

	out, err := p.Resolve(context.Background(), "City", nil)
	if !errors.Is(err, cause) {
		t.Fatalf("expected compose error to propagate, got %v", err)
	}
	if out.Found() || out.Reason != "" {
		t.Errorf("error must not be reported as a NotFound outcome: %+v", out)
	}
}

func TestResolve_MissingURLAlwaysReportsGridReason(t *testing.T) {
	tests := []struct {
		name string
		p    *Pipeline
		want Reason
	}{
		{"no grid", New(stubLookup{}, nil, fixedBuilder(), &stubComposer{}), ReasonNoGridMatrix},
		{"no coordinate", New(stubLookup{}, sequenceGrid(t), fixedBuilder(), &stubComposer{}), ReasonNoCoordinate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.p.Resolve(context.Background(), "City", nil)
			if err != nil {
				t.Fatal(err)
			}
			if out.Reason == ReasonNoRemoteURL || out.Reason != tt.want {
				t.Errorf("reason = %q, want %q", out.Reason, tt.want)
			}
		})
	}
}
