// Package models defines the reader data that devices keep in sync and the
// records the sync backends store for a pairing group.
package models

import (
	"sort"
)

// EntityKind names one synced collection.
type EntityKind string

const (
	KindBook      EntityKind = "book"
	KindHighlight EntityKind = "highlight"
	KindBookmark  EntityKind = "bookmark"
	KindWord      EntityKind = "vocabulary"
)

// Book is a library entry together with its reading position.
// Title, Author and Cover are opaque to merging.
type Book struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
	Cover  string `json:"cover,omitempty"`

	// Progress is a percentage in [0, 100]. It never decreases under merge.
	Progress float64 `json:"progress"`

	CurrentLocation int    `json:"currentLocation"`
	CurrentCfi      string `json:"currentCfi,omitempty"`

	// LastRead is epoch milliseconds; it decides whose resume point wins.
	LastRead int64 `json:"lastRead,omitempty"`
	AddedAt  int64 `json:"addedAt,omitempty"`
}

// Highlight is a marked passage. Cfi locates it inside the book.
type Highlight struct {
	ID        string `json:"id"`
	BookID    string `json:"bookId"`
	Cfi       string `json:"cfi"`
	Text      string `json:"text"`
	Color     string `json:"color,omitempty"`
	Note      string `json:"note,omitempty"`
	CreatedAt int64  `json:"createdAt,omitempty"`
}

type Bookmark struct {
	ID        string `json:"id"`
	BookID    string `json:"bookId"`
	Cfi       string `json:"cfi"`
	Title     string `json:"title,omitempty"`
	CreatedAt int64  `json:"createdAt,omitempty"`
}

type VocabularyWord struct {
	ID         string `json:"id"`
	Word       string `json:"word"`
	Definition string `json:"definition"`
	BookID     string `json:"bookId,omitempty"`
	CreatedAt  int64  `json:"createdAt,omitempty"`
}

// ReaderSettings are per-device display preferences. They travel with the
// dataset but are never merged.
type ReaderSettings struct {
	Theme      string  `json:"theme"`
	FontFamily string  `json:"fontFamily"`
	FontSize   int     `json:"fontSize"`
	LineHeight float64 `json:"lineHeight"`
	Margins    int     `json:"margins"`
}

// TTSSettings are per-device speech preferences. Never merged.
type TTSSettings struct {
	Voice  string  `json:"voice,omitempty"`
	Rate   float64 `json:"rate"`
	Pitch  float64 `json:"pitch"`
	Volume float64 `json:"volume"`
}

// DefaultReaderSettings is what a fresh device starts with.
func DefaultReaderSettings() ReaderSettings {
	return ReaderSettings{Theme: "light", FontFamily: "serif", FontSize: 18, LineHeight: 1.6, Margins: 40}
}

func DefaultTTSSettings() TTSSettings {
	return TTSSettings{Rate: 1, Pitch: 1, Volume: 1}
}

// Dataset is everything a device syncs: the four entity collections plus
// the two preference blobs.
type Dataset struct {
	Books       []Book           `json:"books"`
	Highlights  []Highlight      `json:"highlights"`
	Bookmarks   []Bookmark       `json:"bookmarks"`
	Vocabulary  []VocabularyWord `json:"vocabulary"`
	Settings    ReaderSettings   `json:"settings"`
	TTSSettings TTSSettings      `json:"ttsSettings"`
}

// Normalize replaces nil collections with empty ones and orders every
// collection by id, so two equal datasets encode identically.
func (d *Dataset) Normalize() {
	if d.Books == nil {
		d.Books = []Book{}
	}
	if d.Highlights == nil {
		d.Highlights = []Highlight{}
	}
	if d.Bookmarks == nil {
		d.Bookmarks = []Bookmark{}
	}
	if d.Vocabulary == nil {
		d.Vocabulary = []VocabularyWord{}
	}
	sort.Slice(d.Books, func(i, j int) bool { return d.Books[i].ID < d.Books[j].ID })
	sort.Slice(d.Highlights, func(i, j int) bool { return d.Highlights[i].ID < d.Highlights[j].ID })
	sort.Slice(d.Bookmarks, func(i, j int) bool { return d.Bookmarks[i].ID < d.Bookmarks[j].ID })
	sort.Slice(d.Vocabulary, func(i, j int) bool { return d.Vocabulary[i].ID < d.Vocabulary[j].ID })
}

// Count returns the number of entities across all collections.
func (d Dataset) Count() int {
	return len(d.Books) + len(d.Highlights) + len(d.Bookmarks) + len(d.Vocabulary)
}

// DailyStats is one calendar day of reading activity. Date is YYYY-MM-DD.
type DailyStats struct {
	Date          string `json:"date"`
	ReadingTimeMs int64  `json:"readingTimeMs"`
	PagesRead     int    `json:"pagesRead"`
	SessionsCount int    `json:"sessionsCount"`
}

// ReadingStats are local reading totals. They are carried by exports only;
// group sync does not touch them.
type ReadingStats struct {
	TotalReadingTimeMs int64        `json:"totalReadingTimeMs"`
	TotalPagesRead     int          `json:"totalPagesRead"`
	TotalSessions      int          `json:"totalSessions"`
	BooksCompleted     int          `json:"booksCompleted"`
	CurrentStreak      int          `json:"currentStreak"`
	LongestStreak      int          `json:"longestStreak"`
	LastReadDate       *string      `json:"lastReadDate"`
	DailyStats         []DailyStats `json:"dailyStats"`
}
