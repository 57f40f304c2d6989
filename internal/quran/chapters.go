package quran

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// ChapterCount is the number of chapters (surahs).
	ChapterCount = 114
	// VerseCount is the number of verses across all chapters.
	VerseCount = 6236
)

// ErrUnknownChapter is returned when a chapter id has no metadata.
var ErrUnknownChapter = errors.New("quran: unknown chapter")

//go:embed chapters.yaml
var chaptersYAML []byte

// Chapter is the static descriptive data of a surah.
type Chapter struct {
	ID                 int    `yaml:"id"`
	TransliteratedName string `yaml:"name"`
	TranslatedName     string `yaml:"translated"`
	VersesCount        int    `yaml:"verses"`
}

// Chapters is an immutable lookup table of chapter metadata. It is built once and
// passed explicitly to the views that need it.
type Chapters struct {
	ordered []Chapter
	byID    map[int]Chapter
}

// EmbeddedChapters loads the chapter table compiled into the binary.
func EmbeddedChapters() (*Chapters, error) {
	return LoadChapters(bytes.NewReader(chaptersYAML))
}

// LoadChapters decodes a YAML list of chapters.
func LoadChapters(r io.Reader) (*Chapters, error) {
	var list []Chapter
	if err := yaml.NewDecoder(r).Decode(&list); err != nil {
		return nil, fmt.Errorf("quran: decode chapters: %w", err)
	}
	return NewChapters(list)
}

// NewChapters indexes list by id. Duplicate or non-positive ids are rejected.
func NewChapters(list []Chapter) (*Chapters, error) {
	c := &Chapters{
		ordered: make([]Chapter, 0, len(list)),
		byID:    make(map[int]Chapter, len(list)),
	}
	for _, ch := range list {
		if ch.ID <= 0 {
			return nil, fmt.Errorf("quran: invalid chapter id %d", ch.ID)
		}
		if _, dup := c.byID[ch.ID]; dup {
			return nil, fmt.Errorf("quran: duplicate chapter id %d", ch.ID)
		}
		c.byID[ch.ID] = ch
		c.ordered = append(c.ordered, ch)
	}
	sort.Slice(c.ordered, func(i, j int) bool { return c.ordered[i].ID < c.ordered[j].ID })
	return c, nil
}

// Lookup returns the metadata of chapter id.
func (c *Chapters) Lookup(id int) (Chapter, error) {
	ch, ok := c.byID[id]
	if !ok {
		return Chapter{}, fmt.Errorf("%w: %d", ErrUnknownChapter, id)
	}
	return ch, nil
}

// Len returns the number of chapters in the table.
func (c *Chapters) Len() int { return len(c.ordered) }

// All returns a copy of the chapters in ascending id order.
func (c *Chapters) All() []Chapter {
	return append([]Chapter(nil), c.ordered...)
}

// TotalVerses sums the verse counts of every chapter.
func (c *Chapters) TotalVerses() int {
	total := 0
	for _, ch := range c.ordered {
		total += ch.VersesCount
	}
	return total
}

// Validate checks the table describes the complete text: ids 1..114 and 6236 verses.
func (c *Chapters) Validate() error {
	if c.Len() != ChapterCount {
		return fmt.Errorf("quran: expected %d chapters, got %d", ChapterCount, c.Len())
	}
	for i, ch := range c.ordered {
		if ch.ID != i+1 {
			return fmt.Errorf("quran: chapter ids not contiguous at %d", ch.ID)
		}
		if ch.VersesCount <= 0 || strings.TrimSpace(ch.TransliteratedName) == "" {
			return fmt.Errorf("quran: chapter %d is incomplete", ch.ID)
		}
	}
	if total := c.TotalVerses(); total != VerseCount {
		return fmt.Errorf("quran: expected %d verses, got %d", VerseCount, total)
	}
	return nil
}

// VerseKey locates a verse as chapter:verse.
type VerseKey struct {
	Chapter int
	Verse   int
}

func (k VerseKey) String() string {
	return strconv.Itoa(k.Chapter) + ":" + strconv.Itoa(k.Verse)
}

// ParseVerseKey parses "chapter:verse".
func ParseVerseKey(s string) (VerseKey, error) {
	chapter, verse, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return VerseKey{}, fmt.Errorf("quran: malformed verse key %q", s)
	}
	c, err := strconv.Atoi(chapter)
	if err != nil || c <= 0 {
		return VerseKey{}, fmt.Errorf("quran: malformed verse key %q", s)
	}
	v, err := strconv.Atoi(verse)
	if err != nil || v <= 0 {
		return VerseKey{}, fmt.Errorf("quran: malformed verse key %q", s)
	}
	return VerseKey{Chapter: c, Verse: v}, nil
}
