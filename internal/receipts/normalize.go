package receipts

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultCategory is used whenever no category is known.
const DefaultCategory = "General"

const titleSeparator = " • "

var titleStopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "at": {}, "by": {}, "for": {}, "in": {},
	"of": {}, "on": {}, "or": {}, "the": {}, "to": {}, "with": {},
}

var categorySynonyms = map[string]string{
	"general":    "General",
	"plumbing":   "Plumbing",
	"electrical": "Electrical",
	"hvac":       "HVAC",
	"roof":       "Roof",
	"appliances": "Appliances",
	"exterior":   "Exterior",
	"interior":   "Interior",
}

// NormalizeVendor cleans a raw vendor guess. Boilerplate words and strings
// with fewer than three letters fall back to a label derived from the
// original filename.
func NormalizeVendor(raw *string, originalName string) *string {
	if raw == nil {
		return nil
	}
	v := collapseSpaces(*raw)
	if isGeneric(v) || letterCount(v) < 3 {
		return FilenameLabel(originalName)
	}
	out := TitleCase(v)
	return &out
}

// FilenameLabel derives a display label from an uploaded file name, or nil
// when the name carries fewer than three letters or only boilerplate.
func FilenameLabel(originalName string) *string {
	base := filepath.Base(strings.ReplaceAll(originalName, "\\", "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	base = collapseSpaces(base)
	if letterCount(base) < 3 || isGeneric(base) {
		return nil
	}
	out := TitleCase(base)
	return &out
}

// TitleCase capitalizes words, keeping all-caps acronyms and lower-casing
// stopwords after the first word. Fully upper-case input is treated as
// shouting and title-cased normally.
func TitleCase(s string) string {
	s = collapseSpaces(s)
	if s == "" {
		return s
	}
	keepAcronyms := !isUpper(s)
	caser := cases.Title(language.English)

	words := strings.Split(s, " ")
	for i, w := range words {
		lower := strings.ToLower(w)
		if _, stop := titleStopwords[lower]; stop && i > 0 {
			words[i] = lower
			continue
		}
		if keepAcronyms && letterCount(w) >= 2 && isUpper(w) {
			continue
		}
		words[i] = caser.String(lower)
	}
	return strings.Join(words, " ")
}

// NormalizeCategory maps a category to its canonical display form.
// Unknown categories are title-cased and kept. Idempotent.
func NormalizeCategory(raw string) string {
	c := collapseSpaces(raw)
	if c == "" {
		return DefaultCategory
	}
	if canonical, ok := categorySynonyms[strings.ToLower(c)]; ok {
		return canonical
	}
	return TitleCase(c)
}

// BuildTitle joins the non-default category, vendor and amount into a
// suggested maintenance log title, or nil when none is available.
func BuildTitle(category string, vendor *string, amount *float64) *string {
	var parts []string
	if category != "" && category != DefaultCategory {
		parts = append(parts, category)
	}
	if vendor != nil && strings.TrimSpace(*vendor) != "" {
		parts = append(parts, *vendor)
	}
	if amount != nil {
		parts = append(parts, fmt.Sprintf("$%.2f", *amount))
	}
	if len(parts) == 0 {
		return nil
	}
	title := strings.Join(parts, titleSeparator)
	return &title
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func letterCount(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}

// isUpper reports whether s has letters and none of them are lower case.
func isUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if unicode.IsLower(r) {
				return false
			}
		}
	}
	return hasLetter
}
