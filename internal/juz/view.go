// Package juz builds the Juz index: every Juz with the chapters that start in it.
package juz

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"finitefield.org/quran-web/internal/i18n"
	"finitefield.org/quran-web/internal/nav"
	"finitefield.org/quran-web/internal/quran"
	"finitefield.org/quran-web/internal/vgrid"
)

const columnGap = 16

// Translator resolves localized strings.
type Translator interface {
	T(lang, key string) string
}

// Deps are the collaborators needed to render rows.
type Deps struct {
	Chapters *quran.Chapters
	Bundle   Translator
	Lang     string
}

// ChapterRow links to the first verse of a chapter inside a Juz.
type ChapterRow struct {
	Href               string
	Number             string
	TransliteratedName string
	TranslatedName     string
	Verses             string
}

// Row is a single Juz card.
type Row struct {
	ID          string
	Href        string
	Title       string
	ReadLabel   string
	MarginRight int
	Minimal     bool
	Chapters    []ChapterRow
}

// Grid is one rendered window of the index.
type Grid struct {
	vgrid.Window[Row]
	Descending bool
	NextURL    string
}

// Load fetches the full mapping from source and orders it by Juz number.
func Load(ctx context.Context, source quran.JuzSource, descending bool) (quran.JuzMapping, error) {
	mapping, err := source.AllJuzMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("juz: load mapping: %w", err)
	}
	return mapping.Sorted(descending), nil
}

// MarginRight is the gap after the card at index in a layout of columns columns.
// The last card of each line has none.
func MarginRight(index, columns int) int {
	if (columns == 2 || columns == 3) && (index+1)%columns != 0 {
		return columnGap
	}
	return 0
}

// BuildRow renders entry at index. A chapter missing from the table is an error.
func BuildRow(entry quran.JuzEntry, index, columns int, deps Deps) (Row, error) {
	row := Row{
		ID:          entry.ID,
		Href:        nav.JuzURL(entry.ID),
		Title:       deps.Bundle.T(deps.Lang, "common:juz") + " " + i18n.LocalizeNumeric(entry.ID, deps.Lang),
		ReadLabel:   deps.Bundle.T(deps.Lang, "home:read-juz"),
		MarginRight: MarginRight(index, columns),
		Minimal:     i18n.ShouldUseMinimalLayout(deps.Lang),
		Chapters:    make([]ChapterRow, 0, len(entry.Chapters)),
	}
	ayahs := deps.Bundle.T(deps.Lang, "common:ayahs")
	for _, start := range entry.Chapters {
		ch, err := deps.Chapters.Lookup(start.ChapterID)
		if err != nil {
			return Row{}, fmt.Errorf("juz: juz %s: %w", entry.ID, err)
		}
		row.Chapters = append(row.Chapters, ChapterRow{
			Href:               nav.ChapterVerseURL(ch.ID, start.VerseKey),
			Number:             i18n.LocalizeNumber(ch.ID, deps.Lang),
			TransliteratedName: ch.TransliteratedName,
			TranslatedName:     ch.TranslatedName,
			Verses:             i18n.LocalizeNumber(ch.VersesCount, deps.Lang) + " " + ayahs,
		})
	}
	return row, nil
}

// BuildGrid renders the window of mapping starting at offset. mapping must
// already be ordered and must not be empty.
func BuildGrid(mapping quran.JuzMapping, descending bool, columns, offset int, deps Deps) (Grid, error) {
	g := vgrid.New(len(mapping), columns, offset, vgrid.DefaultWindow)
	w, err := vgrid.Render(g, func(index, cols int) (Row, error) {
		return BuildRow(mapping[index], index, cols, deps)
	})
	if err != nil {
		return Grid{}, err
	}
	out := Grid{Window: w, Descending: descending}
	if w.HasMore {
		out.NextURL = GridURL(descending, w.Columns, w.NextOffset)
	}
	return out, nil
}

// GridURL is the fragment endpoint serving a window of the index.
func GridURL(descending bool, columns, offset int) string {
	q := url.Values{}
	if descending {
		q.Set("desc", "1")
	}
	if columns > 0 {
		q.Set("cols", strconv.Itoa(columns))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	if len(q) == 0 {
		return "/juz-grid"
	}
	return "/juz-grid?" + q.Encode()
}
