// Package identity resolves raw player names from every upstream source to one canonical identity per run.
package identity

import "strings"

// transliterations maps lowercase diacritics to ASCII. Anything not listed and not ASCII is dropped.
var transliterations = strings.NewReplacer(
	"á", "a", "à", "a", "â", "a", "ä", "a", "ã", "a", "å", "a", "ā", "a", "ą", "a",
	"æ", "ae",
	"ç", "c", "č", "c", "ć", "c",
	"ď", "d", "đ", "d", "ð", "d",
	"é", "e", "è", "e", "ê", "e", "ë", "e", "ē", "e", "ě", "e", "ę", "e",
	"ğ", "g",
	"í", "i", "ì", "i", "î", "i", "ï", "i", "ī", "i", "ı", "i",
	"ł", "l",
	"ñ", "n", "ń", "n", "ň", "n",
	"ó", "o", "ò", "o", "ô", "o", "ö", "o", "õ", "o", "ø", "o", "ō", "o", "ő", "o",
	"œ", "oe",
	"ř", "r",
	"ś", "s", "š", "s", "ş", "s", "ș", "s",
	"ß", "ss",
	"ť", "t", "ț", "t", "ţ", "t",
	"þ", "th",
	"ú", "u", "ù", "u", "û", "u", "ü", "u", "ū", "u", "ů", "u", "ű", "u",
	"ý", "y", "ÿ", "y",
	"ž", "z", "ź", "z", "ż", "z",
)

// Normalize maps a raw player name to its canonical lookup form:
// lowercase, transliterated, ASCII-only, single-spaced and trimmed.
// Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw string) string {
	s := transliterations.Replace(strings.ToLower(raw))

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x80 {
			b.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
