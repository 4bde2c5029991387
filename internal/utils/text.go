package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// polishLetters NFD で分解されない文字
var polishLetters = strings.NewReplacer("ł", "l", "Ł", "L")

// FoldName 都市名からダイアクリティカルマークを除いた ASCII 寄りの表記を返す
// 例: "Łódź" -> "Lodz"
func FoldName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, polishLetters.Replace(strings.TrimSpace(name)))
	if err != nil {
		return strings.TrimSpace(name)
	}
	return folded
}

// FoldKey キャッシュキー用に小文字化した FoldName
func FoldKey(name string) string {
	return strings.ToLower(FoldName(name))
}
