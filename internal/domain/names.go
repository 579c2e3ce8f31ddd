package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// namePrefixes are administrative honorifics stripped from the front of a name.
// ASCII entries match case-insensitively and only as whole words.
var namePrefixes = []string{
	"จังหวัด",
	"จ.",
	"กิ่งอำเภอ",
	"อำเภอ",
	"อ.",
	"เขต",
	"changwat",
	"king amphoe",
	"amphoe",
	"amphur",
	"khet",
	"province",
	"district",
}

var nameSuffixes = []string{
	"province",
	"district",
}

// spellingVariants reconcile transliterations that differ between GADM,
// the Royal Thai Survey Department and provincial spreadsheets. Applied per
// word after title-casing; no replacement is itself a key.
var spellingVariants = map[string]string{
	"Muang":   "Mueang",
	"Meuang":  "Mueang",
	"Ayudhya": "Ayutthaya",
	"Ayuthya": "Ayutthaya",
}

// NormalizeName returns the display form of an administrative name. It is
// idempotent: NormalizeName(NormalizeName(s)) == NormalizeName(s).
func NormalizeName(s string) string {
	s = collapseSpace(norm.NFC.String(s))
	for {
		next := collapseSpace(stripSuffix(stripPrefix(s)))
		if next == s {
			break
		}
		s = next
	}
	if s == "" || !isASCII(s) {
		return s
	}
	s = cases.Title(language.English).String(s)

	words := strings.Split(s, " ")
	for i, w := range words {
		if v, ok := spellingVariants[w]; ok {
			words[i] = v
		}
	}
	return strings.Join(words, " ")
}

// NameKey folds a name into the key used to join sources against the
// reference tables.
func NameKey(s string) string {
	s = strings.ToLower(NormalizeName(s))
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.', '\'', '_':
			return -1
		}
		return r
	}, s)
}

// DecodeLegacyText returns s unchanged when it is valid UTF-8 and otherwise
// decodes it as Windows-874 (TIS-620), the encoding of older Thai exports.
func DecodeLegacyText(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	out, err := charmap.Windows874.NewDecoder().String(s)
	if err != nil {
		return s
	}
	return out
}

func stripPrefix(s string) string {
	for _, p := range namePrefixes {
		if !isASCII(p) {
			if strings.HasPrefix(s, p) {
				return strings.TrimSpace(s[len(p):])
			}
			continue
		}
		if len(s) > len(p) && strings.EqualFold(s[:len(p)], p) && s[len(p)] == ' ' {
			return strings.TrimSpace(s[len(p):])
		}
	}
	return s
}

func stripSuffix(s string) string {
	for _, p := range nameSuffixes {
		n := len(s) - len(p)
		if n > 0 && s[n-1] == ' ' && strings.EqualFold(s[n:], p) {
			return strings.TrimSpace(s[:n])
		}
	}
	return s
}

func collapseSpace(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
