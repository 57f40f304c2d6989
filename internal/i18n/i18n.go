package i18n

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

//go:embed locales/*.json
var embedded embed.FS

// Bundle holds flat translation dictionaries keyed by "namespace:key".
type Bundle struct {
	dict      map[string]map[string]string
	fallback  string
	supported map[string]struct{}

	matcher    language.Matcher
	matchCodes []string
}

// Embedded loads the locales compiled into the binary.
func Embedded(fallback string, supported []string) (*Bundle, error) {
	return LoadFS(embedded, "locales", fallback, supported)
}

// Load reads <dir>/<lang>.json files from disk.
func Load(dir string, fallback string, supported []string) (*Bundle, error) {
	return LoadFS(os.DirFS(dir), ".", fallback, supported)
}

// LoadFS reads <dir>/<lang>.json files from fsys. Missing files are tolerated for
// every locale except the fallback.
func LoadFS(fsys fs.FS, dir string, fallback string, supported []string) (*Bundle, error) {
	b := &Bundle{
		dict:      map[string]map[string]string{},
		fallback:  fallback,
		supported: map[string]struct{}{},
	}
	if len(supported) == 0 {
		supported = []string{"en"}
	}
	for _, l := range supported {
		b.supported[l] = struct{}{}
		raw, err := fs.ReadFile(fsys, path.Join(dir, l+".json"))
		if err != nil {
			if l == fallback || !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("load locale %s: %w", l, err)
			}
			continue
		}
		var m map[string]string
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", l, err)
		}
		b.dict[l] = m
	}
	if _, ok := b.dict[fallback]; !ok {
		return nil, fmt.Errorf("fallback locale %s not loaded", fallback)
	}
	if err := b.buildMatcher(supported); err != nil {
		return nil, err
	}
	return b, nil
}

// buildMatcher indexes the supported codes with the fallback first, which makes
// it the matcher's default.
func (b *Bundle) buildMatcher(supported []string) error {
	codes := []string{b.fallback}
	for _, l := range supported {
		if l != b.fallback {
			codes = append(codes, l)
		}
	}
	tags := make([]language.Tag, 0, len(codes))
	for _, code := range codes {
		tag, err := language.Parse(code)
		if err != nil {
			return fmt.Errorf("parse locale %s: %w", code, err)
		}
		tags = append(tags, tag)
	}
	b.matcher = language.NewMatcher(tags)
	b.matchCodes = codes
	return nil
}

// Supported lists the served languages in lexical order.
func (b *Bundle) Supported() []string {
	out := make([]string, 0, len(b.supported))
	for k := range b.supported {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Fallback returns the configured fallback language.
func (b *Bundle) Fallback() string { return b.fallback }

// IsSupported reports whether lang is served by the bundle.
func (b *Bundle) IsSupported(lang string) bool {
	_, ok := b.supported[lang]
	return ok
}

// T returns translation for key in lang, falling back to default and finally key.
func (b *Bundle) T(lang, key string) string {
	if lang != "" {
		if m, ok := b.dict[lang]; ok {
			if v, ok := m[key]; ok {
				return v
			}
		}
	}
	if m, ok := b.dict[b.fallback]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	return key
}

// Tf translates key and substitutes {name} placeholders from vars.
func (b *Bundle) Tf(lang, key string, vars map[string]string) string {
	s := b.T(lang, key)
	if len(vars) == 0 {
		return s
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

// Resolve chooses the best supported language for an Accept-Language header.
// Tags are canonicalized first, so legacy codes such as "in" match "id".
func (b *Bundle) Resolve(acceptLang string) string {
	desired, q, err := language.ParseAcceptLanguage(acceptLang)
	if err != nil {
		return b.fallback
	}
	wanted := desired[:0]
	for i, tag := range desired {
		if q[i] > 0 {
			wanted = append(wanted, tag)
		}
	}
	if len(wanted) == 0 {
		return b.fallback
	}
	if _, index, conf := b.matcher.Match(wanted...); conf != language.No {
		return b.matchCodes[index]
	}
	return b.fallback
}
