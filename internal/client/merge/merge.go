// Package merge combines a device's dataset with the copy stored for its
// sync group. Merging is pure and deterministic.
package merge

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/dmitrijs2005/readersync/internal/models"
)

// Merge returns the union of local and remote.
//
// For highlights, bookmarks and vocabulary words present on both sides the
// item with the greater CreatedAt wins. A remote item without a timestamp
// counts as created at now, a local one as created at zero.
//
// Books present on both sides take metadata and resume point from the side
// read most recently; Progress and LastRead are the maximum of both.
//
// Settings and TTS settings always come from local.
func Merge(local, remote models.Dataset, now int64) models.Dataset {
	out := models.Dataset{
		Books: mergeByID(local.Books, remote.Books,
			func(b models.Book) string { return b.ID },
			func(l, r models.Book) models.Book { return mergeBook(l, r) }),
		Highlights: mergeByID(local.Highlights, remote.Highlights,
			func(h models.Highlight) string { return h.ID },
			newer(func(h models.Highlight) int64 { return h.CreatedAt }, now)),
		Bookmarks: mergeByID(local.Bookmarks, remote.Bookmarks,
			func(b models.Bookmark) string { return b.ID },
			newer(func(b models.Bookmark) int64 { return b.CreatedAt }, now)),
		Vocabulary: mergeByID(local.Vocabulary, remote.Vocabulary,
			func(w models.VocabularyWord) string { return w.ID },
			newer(func(w models.VocabularyWord) int64 { return w.CreatedAt }, now)),
		Settings:    local.Settings,
		TTSSettings: local.TTSSettings,
	}
	out.Normalize()
	return out
}

// mergeByID unions two collections keyed by id. resolve picks the result
// for ids present on both sides. Duplicate ids within one side collapse to
// the last occurrence.
func mergeByID[T any](local, remote []T, id func(T) string, resolve func(l, r T) T) []T {
	merged := make(map[string]T, len(local)+len(remote))
	for _, item := range local {
		merged[id(item)] = item
	}
	for _, item := range remote {
		key := id(item)
		if existing, ok := merged[key]; ok {
			merged[key] = resolve(existing, item)
			continue
		}
		merged[key] = item
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, merged[k])
	}
	return out
}

func newer[T any](stamp func(T) int64, now int64) func(l, r T) T {
	return func(l, r T) T {
		lt, rt := stamp(l), stamp(r)
		if rt == 0 {
			rt = now
		}
		if pickRemote(lt, rt, l, r) {
			return r
		}
		return l
	}
}

func mergeBook(l, r models.Book) models.Book {
	out := l
	if pickRemote(l.LastRead, r.LastRead, resumeState(l), resumeState(r)) {
		out = r
	}
	out.Progress = max(l.Progress, r.Progress)
	out.LastRead = max(l.LastRead, r.LastRead)
	return out
}

// resumeState is the part of a book that moves as a whole between devices.
func resumeState(b models.Book) models.Book {
	b.Progress = 0
	b.LastRead = 0
	return b
}

// pickRemote reports whether r should replace l. Equal stamps fall back to
// comparing canonical encodings so the choice does not depend on which
// side is local.
func pickRemote[T any](lt, rt int64, l, r T) bool {
	if lt != rt {
		return rt > lt
	}
	return bytes.Compare(canonical(r), canonical(l)) > 0
}

func canonical(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
