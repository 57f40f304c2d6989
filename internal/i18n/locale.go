package i18n

import (
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Languages written in the Arabic script. Chapter names are already legible
// there, so previews skip the transliteration column.
var arabicScript = map[string]struct{}{
	"ar": {}, "fa": {}, "ur": {}, "ps": {}, "ku": {}, "sd": {}, "ug": {}, "dv": {},
}

var rtl = map[string]struct{}{
	"ar": {}, "fa": {}, "ur": {}, "ps": {}, "ku": {}, "sd": {}, "ug": {}, "dv": {}, "he": {}, "yi": {},
}

// ShouldUseMinimalLayout reports whether chapter previews render the compact variant for lang.
func ShouldUseMinimalLayout(lang string) bool {
	_, ok := arabicScript[baseLang(lang)]
	return ok
}

// Dir returns the text direction attribute for lang.
func Dir(lang string) string {
	if _, ok := rtl[baseLang(lang)]; ok {
		return "rtl"
	}
	return "ltr"
}

// LocalizeNumber renders n with the digits of lang, without grouping separators.
func LocalizeNumber(n int, lang string) string {
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.English
	}
	return message.NewPrinter(tag).Sprint(number.Decimal(n, number.NoSeparator()))
}

// LocalizeNumeric is LocalizeNumber for identifiers held as strings. Non numeric
// input is returned unchanged.
func LocalizeNumeric(s, lang string) string {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return s
	}
	return LocalizeNumber(n, lang)
}

func baseLang(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i != -1 {
		lang = lang[:i]
	}
	return lang
}
