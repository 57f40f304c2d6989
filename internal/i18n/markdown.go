package i18n

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var (
	md        = goldmark.New()
	mdPolicy  = bluemonday.UGCPolicy()
	inlineTag = strings.NewReplacer("<p>", "", "</p>", "")
)

// RenderMarkdown converts markdown to sanitized HTML.
func RenderMarkdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(mdPolicy.SanitizeBytes(buf.Bytes()))
}

// RenderInline is RenderMarkdown for single line copy: the wrapping paragraph is dropped.
func RenderInline(src string) template.HTML {
	out := strings.TrimSpace(string(RenderMarkdown(src)))
	return template.HTML(inlineTag.Replace(out))
}

// Markdown translates key, substitutes vars and renders the result as inline markdown.
// Translations use it to embed links, e.g. "Browse [learning plans]({link})".
func (b *Bundle) Markdown(lang, key string, vars map[string]string) template.HTML {
	return RenderInline(b.Tf(lang, key, vars))
}
