package utils

import (
	"strings"
	"time"
)

// ParseTimezone タイムゾーン名から Location を取得（短縮形にも対応）
func ParseTimezone(tzName string) (*time.Location, error) {
	shortNames := map[string]string{
		"cet":  "Europe/Warsaw",
		"cest": "Europe/Warsaw",
		"pl":   "Europe/Warsaw",
		"jst":  "Asia/Tokyo",
		"utc":  "UTC",
	}

	if fullName, ok := shortNames[strings.ToLower(tzName)]; ok {
		return time.LoadLocation(fullName)
	}
	return time.LoadLocation(tzName)
}

// HourBetween loc における t の「時」が (after, before) の開区間にあるか
func HourBetween(t time.Time, loc *time.Location, after, before int) bool {
	if loc == nil {
		loc = time.UTC
	}
	h := t.In(loc).Hour()
	return h > after && h < before
}

// SameMinuteOrAfter 分単位で a >= b か
func SameMinuteOrAfter(a, b time.Time) bool {
	return !a.Truncate(time.Minute).Before(b.Truncate(time.Minute))
}
