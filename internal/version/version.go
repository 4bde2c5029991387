package version

const (
	// Botのバージョン番号
	Version = "1.2.0"

	// SourceURL メテオグラムの提供元
	SourceURL = "http://www.meteo.pl/um/php/meteorogram_list.php"
)

// PatchNotes パッチノートの内容
var PatchNotes = []string{
	"Charts are built from the nearest grid point when meteo.pl has no entry for the city.",
	"Concurrent !um requests no longer overwrite each other's images.",
	"Added !moon and !sat.",
}
