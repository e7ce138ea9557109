// Package langcode provides an embedded ISO-639-2 lookup, used when
// normalizing anime-title language tags from the title catalog. The
// original (adbb/anames.py) reads a system ISO-639-2 file at runtime;
// this module embeds a small table instead so the client has no
// external file dependency.
package langcode

// table maps a two-letter ISO-639-1 code to its three-letter ISO-639-2
// equivalent, covering the languages the AniDB title catalog actually
// tags (spec.md §6.3).
var table = map[string]string{
	"en": "eng",
	"ja": "jpn",
	"x-jat": "x-jat", // AniDB's own romaji pseudo-code, passed through
	"zh": "zho",
	"zh-hans": "zho",
	"zh-hant": "zho",
	"ko": "kor",
	"fr": "fra",
	"de": "deu",
	"it": "ita",
	"es": "spa",
	"pt": "por",
	"pt-br": "por",
	"ru": "rus",
	"pl": "pol",
	"nl": "nld",
	"sv": "swe",
	"fi": "fin",
	"ar": "ara",
	"he": "heb",
	"th": "tha",
	"vi": "vie",
	"id": "ind",
	"tr": "tur",
	"uk": "ukr",
	"hu": "hun",
	"ro": "ron",
	"cs": "ces",
	"el": "ell",
	"da": "dan",
	"no": "nor",
}

// Lookup returns the ISO-639-2 three-letter code for a two-letter (or
// AniDB pseudo-) language tag.
func Lookup(code string) (string, bool) {
	v, ok := table[code]
	return v, ok
}
