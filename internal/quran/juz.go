package quran

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// JuzCount is the number of Juz divisions.
const JuzCount = 30

// ChapterStart is a chapter contained in a Juz and the verse where the Juz enters it.
type ChapterStart struct {
	ChapterID int
	VerseKey  string
}

// JuzEntry is one Juz and the chapters it spans, in chapter order.
type JuzEntry struct {
	ID       string
	Number   int
	Chapters []ChapterStart
}

// JuzMapping is the ordered list of Juz entries.
type JuzMapping []JuzEntry

// JuzSource fetches the Juz to chapter mapping.
type JuzSource interface {
	AllJuzMappings(ctx context.Context) (JuzMapping, error)
}

// ErrDuplicateID reports two wire keys naming the same Juz or chapter, such
// as "1" and "01".
var ErrDuplicateID = errors.New("quran: duplicate id")

// ParseJuzMapping converts the wire shape {juzID: {chapterID: verseKey}} into an
// ascending JuzMapping. Identifiers must be numeric and unique once parsed.
func ParseJuzMapping(raw map[string]map[string]string) (JuzMapping, error) {
	out := make(JuzMapping, 0, len(raw))
	seen := make(map[int]string, len(raw))
	for id, chapters := range raw {
		n, err := strconv.Atoi(strings.TrimSpace(id))
		if err != nil {
			return nil, fmt.Errorf("quran: juz id %q is not numeric", id)
		}
		if prev, ok := seen[n]; ok {
			return nil, fmt.Errorf("%w: juz %q and %q", ErrDuplicateID, prev, id)
		}
		seen[n] = id
		entry := JuzEntry{ID: strconv.Itoa(n), Number: n, Chapters: make([]ChapterStart, 0, len(chapters))}
		seenChapters := make(map[int]string, len(chapters))
		for chapterID, verseKey := range chapters {
			c, err := strconv.Atoi(strings.TrimSpace(chapterID))
			if err != nil {
				return nil, fmt.Errorf("quran: juz %s chapter id %q is not numeric", id, chapterID)
			}
			if prev, ok := seenChapters[c]; ok {
				return nil, fmt.Errorf("%w: juz %s chapters %q and %q", ErrDuplicateID, id, prev, chapterID)
			}
			seenChapters[c] = chapterID
			entry.Chapters = append(entry.Chapters, ChapterStart{ChapterID: c, VerseKey: strings.TrimSpace(verseKey)})
		}
		sort.Slice(entry.Chapters, func(i, j int) bool { return entry.Chapters[i].ChapterID < entry.Chapters[j].ChapterID })
		out = append(out, entry)
	}
	return out.Sorted(false), nil
}

// Sorted returns a copy ordered by Juz number, descending when requested. The
// receiver is left untouched.
func (m JuzMapping) Sorted(descending bool) JuzMapping {
	out := append(JuzMapping(nil), m...)
	sort.SliceStable(out, func(i, j int) bool {
		if descending {
			return out[i].Number > out[j].Number
		}
		return out[i].Number < out[j].Number
	})
	return out
}

// IDs lists the Juz identifiers in mapping order.
func (m JuzMapping) IDs() []string {
	ids := make([]string, len(m))
	for i, e := range m {
		ids[i] = e.ID
	}
	return ids
}

// juzStarts lists the first verse of every Juz.
var juzStarts = [JuzCount]VerseKey{
	{1, 1}, {2, 142}, {2, 253}, {3, 93}, {4, 24}, {4, 148}, {5, 82}, {6, 111}, {7, 88}, {8, 41},
	{9, 93}, {11, 6}, {12, 53}, {15, 1}, {17, 1}, {18, 75}, {21, 1}, {23, 1}, {25, 21}, {27, 56},
	{29, 46}, {33, 31}, {36, 28}, {39, 32}, {41, 47}, {46, 1}, {51, 31}, {58, 1}, {67, 1}, {78, 1},
}

// BuildJuzMapping derives the canonical mapping from the Juz boundaries and the
// chapter table.
func BuildJuzMapping(chapters *Chapters) (JuzMapping, error) {
	out := make(JuzMapping, 0, JuzCount)
	for i, start := range juzStarts {
		last := chapters.Len()
		if i+1 < JuzCount {
			next := juzStarts[i+1]
			last = next.Chapter
			if next.Verse == 1 {
				last--
			}
		}
		entry := JuzEntry{ID: strconv.Itoa(i + 1), Number: i + 1}
		for c := start.Chapter; c <= last; c++ {
			ch, err := chapters.Lookup(c)
			if err != nil {
				return nil, err
			}
			verse := 1
			if c == start.Chapter {
				verse = start.Verse
			}
			if verse > ch.VersesCount {
				return nil, fmt.Errorf("quran: juz %d starts past the end of chapter %d", i+1, c)
			}
			entry.Chapters = append(entry.Chapters, ChapterStart{ChapterID: c, VerseKey: VerseKey{c, verse}.String()})
		}
		out = append(out, entry)
	}
	return out, nil
}

// StaticJuzSource serves the canonical mapping without a backend.
type StaticJuzSource struct {
	mapping JuzMapping
}

// NewStaticJuzSource builds the canonical mapping once from chapters.
func NewStaticJuzSource(chapters *Chapters) (*StaticJuzSource, error) {
	mapping, err := BuildJuzMapping(chapters)
	if err != nil {
		return nil, err
	}
	return &StaticJuzSource{mapping: mapping}, nil
}

// AllJuzMappings returns a copy of the canonical mapping.
func (s *StaticJuzSource) AllJuzMappings(ctx context.Context) (JuzMapping, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append(JuzMapping(nil), s.mapping...), nil
}
