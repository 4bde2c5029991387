package utils

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFoldName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Łódź", "Lodz"},
		{"Kraków", "Krakow"},
		{"  Gdańsk ", "Gdansk"},
		{"Warszawa", "Warszawa"},
		{"Zielona Góra", "Zielona Gora"},
	}
	for _, tt := range tests {
		if got := FoldName(tt.in); got != tt.want {
			t.Errorf("FoldName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := FoldKey("Łódź"); got != "lodz" {
		t.Errorf("FoldKey = %q, want lodz", got)
	}
}

func TestWriteFileAtomic_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.png")
	if err := WriteFileAtomic(path, []byte("first")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("second")); err != nil {
		t.Fatalf("second write: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "second" {
		t.Errorf("content = %q, want second", got)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected only the target file to remain, got %d entries", len(entries))
	}
	if !FileExists(path) {
		t.Error("FileExists returned false for written file")
	}
}

func TestRateLimiter_SpacesRequestsPerHost(t *testing.T) {
	rl := NewRateLimiter(20) // 50ms 間隔
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := rl.Do(ctx, "www.meteo.pl", func() error { return nil }); err != nil {
			t.Fatal(err)
		}
	}
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("3 requests finished in %v, expected at least ~100ms", elapsed)
	}

	// 別ホストは待たされない
	start = time.Now()
	if err := rl.Do(ctx, "nominatim.openstreetmap.org", func() error { return nil }); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed > 40*time.Millisecond {
		t.Errorf("other host waited %v", elapsed)
	}
}

func TestRateLimiter_ContextCancelled(t *testing.T) {
	rl := NewRateLimiter(1)
	ctx, cancel := context.WithCancel(context.Background())
	_ = rl.Do(ctx, "h", func() error { return nil })
	cancel()
	called := false
	err := rl.Do(ctx, "h", func() error { called = true; return nil })
	if err == nil || called {
		t.Errorf("expected cancellation, err=%v called=%v", err, called)
	}
}

func TestHourBetween(t *testing.T) {
	loc, err := ParseTimezone("CET")
	if err != nil {
		t.Skipf("tzdata not available: %v", err)
	}
	noon := time.Date(2023, 6, 1, 12, 0, 0, 0, loc)
	if !HourBetween(noon, loc, 7, 22) {
		t.Error("12:00 should be inside (7, 22)")
	}
	late := time.Date(2023, 6, 1, 22, 30, 0, 0, loc)
	if HourBetween(late, loc, 7, 22) {
		t.Error("22:30 should be outside (7, 22)")
	}
}
