package exchange

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ValidationResult separates problems that make a backup unusable (Errors)
// from ones that only degrade it (Warnings). Document is set when Valid.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
	Document *Document
}

var (
	requiredArrays     = []string{"books", "highlights", "bookmarks", "vocabulary"}
	requiredStatFields = []string{"totalReadingTimeMs", "totalPagesRead", "totalSessions", "booksCompleted"}
)

// Validate checks raw before anything is imported.
func Validate(raw []byte) ValidationResult {
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return ValidationResult{Errors: []string{"Invalid JSON format"}}
	}
	obj, ok := data.(map[string]any)
	if !ok {
		return ValidationResult{Errors: []string{"Data must be an object"}}
	}

	var errs, warns []string

	if version, ok := obj["version"].(float64); !ok {
		errs = append(errs, "Missing or invalid version field")
	} else if version > ExportVersion {
		warns = append(warns, fmt.Sprintf("Export version %s is newer than current %d. Some data may not import correctly.",
			strconv.FormatFloat(version, 'f', -1, 64), ExportVersion))
	}

	for _, field := range requiredArrays {
		if _, ok := obj[field].([]any); !ok {
			errs = append(errs, fmt.Sprintf("Missing or invalid %s array", field))
		}
	}

	if _, ok := obj["settings"].(map[string]any); !ok {
		errs = append(errs, "Missing or invalid settings object")
	}
	if _, ok := obj["ttsSettings"].(map[string]any); !ok {
		errs = append(errs, "Missing or invalid ttsSettings object")
	}

	if stats, ok := obj["stats"].(map[string]any); !ok {
		errs = append(errs, "Missing or invalid stats object")
	} else {
		for _, field := range requiredStatFields {
			if _, ok := stats[field].(float64); !ok {
				errs = append(errs, fmt.Sprintf("Missing or invalid stats.%s", field))
			}
		}
	}

	if books, ok := obj["books"].([]any); ok {
		for i, item := range books {
			b, ok := item.(map[string]any)
			if !ok {
				errs = append(errs, fmt.Sprintf("Book at index %d is invalid", i))
				continue
			}
			if !truthy(b["id"]) || !truthy(b["title"]) || !truthy(b["author"]) {
				warns = append(warns, fmt.Sprintf("Book at index %d may be missing id, title, or author", i))
			}
		}
	}

	if highlights, ok := obj["highlights"].([]any); ok {
		for i, item := range highlights {
			h, ok := item.(map[string]any)
			if !ok {
				errs = append(errs, fmt.Sprintf("Highlight at index %d is invalid", i))
				continue
			}
			if !truthy(h["id"]) || !truthy(h["bookId"]) || !truthy(h["cfi"]) || !truthy(h["text"]) {
				warns = append(warns, fmt.Sprintf("Highlight at index %d may be missing required fields", i))
			}
		}
	}

	if len(errs) > 0 {
		return ValidationResult{Errors: errs, Warnings: warns}
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ValidationResult{Errors: []string{fmt.Sprintf("Invalid data: %v", err)}, Warnings: warns}
	}
	return ValidationResult{Valid: true, Errors: []string{}, Warnings: warns, Document: &doc}
}

// truthy reports whether a decoded JSON value is present and non-empty.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case float64:
		return x != 0
	case bool:
		return x
	default:
		return true
	}
}
