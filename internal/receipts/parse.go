package receipts

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

const (
	vendorScanLines = 12
	vendorMinLen    = 3
	vendorMaxLen    = 80
)

var (
	amountRe = regexp.MustCompile(`\$?\s?(?:\d{1,3}(?:,\d{3})+|\d+)\.\d{2}\b`)

	isoDateRe   = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	usDateRe    = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	monthDateRe = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec)\.?\s+(\d{1,2}),?\s+(\d{4})\b`)

	phoneRe   = regexp.MustCompile(`(?i)\b(tel|telephone|phone|fax)\b`)
	addressRe = regexp.MustCompile(`(?i)\b(st|street|ave|avenue|rd|road|blvd|boulevard|suite|ste|unit|hwy|highway|dr|drive|lane|ln)\b`)
)

var monthByPrefix = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// genericWords are receipt boilerplate lines that never name a vendor.
var genericWords = map[string]struct{}{
	"invoice": {}, "receipt": {}, "sales receipt": {}, "tax invoice": {}, "bill": {}, "statement": {},
	"subtotal": {}, "sub total": {}, "sub-total": {}, "total": {}, "grand total": {}, "amount": {},
	"amount due": {}, "balance": {}, "balance due": {}, "change": {}, "tax": {}, "sales tax": {},
	"hst": {}, "gst": {}, "pst": {}, "qst": {}, "vat": {}, "visa": {}, "mastercard": {}, "amex": {},
	"american express": {}, "interac": {}, "debit": {}, "credit": {}, "cash": {}, "payment": {},
	"approved": {}, "date": {}, "time": {}, "qty": {}, "quantity": {}, "price": {}, "item": {},
	"items": {}, "description": {}, "order": {}, "thank you": {}, "thanks": {}, "customer copy": {},
	"merchant copy": {}, "welcome": {},
}

func isGeneric(s string) bool {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.TrimRight(key, ":#.")
	_, ok := genericWords[key]
	return ok
}

// ParseAmount returns the largest money-looking figure in text, or nil.
// The largest figure on a receipt is usually its total.
func ParseAmount(text string) *float64 {
	var best *float64
	for _, m := range amountRe.FindAllString(text, -1) {
		digits := strings.Map(func(r rune) rune {
			if (r >= '0' && r <= '9') || r == '.' {
				return r
			}
			return -1
		}, m)
		v, err := strconv.ParseFloat(digits, 64)
		if err != nil {
			continue
		}
		if best == nil || v > *best {
			val := v
			best = &val
		}
	}
	return best
}

// ParseDate tries ISO, then MM/DD/YYYY, then "Month D, YYYY" and returns
// the first valid calendar date at UTC midnight, or nil.
func ParseDate(text string) *time.Time {
	if m := isoDateRe.FindStringSubmatch(text); m != nil {
		if d, ok := buildDate(m[1], m[2], m[3]); ok {
			return &d
		}
	}
	if m := usDateRe.FindStringSubmatch(text); m != nil {
		if d, ok := buildDate(m[3], m[1], m[2]); ok {
			return &d
		}
	}
	if m := monthDateRe.FindStringSubmatch(text); m != nil {
		month := monthByPrefix[strings.ToLower(m[1])[:3]]
		if d, ok := buildDate(m[3], strconv.Itoa(int(month)), m[2]); ok {
			return &d
		}
	}
	return nil
}

func buildDate(year, month, day string) (time.Time, bool) {
	y, err1 := strconv.Atoi(year)
	mo, err2 := strconv.Atoi(month)
	d, err3 := strconv.Atoi(day)
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	if mo < 1 || mo > 12 || d < 1 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (Feb 30 -> Mar 2); reject those.
	if t.Year() != y || int(t.Month()) != mo || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

// GuessVendor picks the most name-like line near the top of the text, or nil.
func GuessVendor(text string) *string {
	var (
		best      string
		bestScore int
		found     bool
	)
	considered := 0
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if considered == vendorScanLines {
			break
		}
		considered++
		if isJunkVendorLine(line) {
			continue
		}
		letters, digits := countLettersDigits(line)
		score := letters*2 - digits - max(0, len([]rune(line))-40)
		if !found || score > bestScore {
			best, bestScore, found = line, score, true
		}
	}
	if !found {
		return nil
	}
	return &best
}

func isJunkVendorLine(line string) bool {
	n := len([]rune(line))
	if n < vendorMinLen || n > vendorMaxLen {
		return true
	}
	letters, digits := countLettersDigits(line)
	if letters < 2 || digits > letters {
		return true
	}
	lower := strings.ToLower(line)
	if strings.Contains(lower, "www.") || strings.Contains(lower, "http") || strings.Contains(lower, ".com") || strings.Contains(lower, "@") {
		return true
	}
	if phoneRe.MatchString(line) || addressRe.MatchString(line) {
		return true
	}
	return isGeneric(line)
}

func countLettersDigits(s string) (letters, digits int) {
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsDigit(r):
			digits++
		}
	}
	return letters, digits
}

type categoryRule struct {
	category string
	keywords []string
}

// Checked in order; the first family with a keyword hit wins.
var categoryRules = []categoryRule{
	{category: "Plumbing", keywords: []string{"plumb"}},
	{category: "Electrical", keywords: []string{"electrical", "wiring", "panel"}},
	{category: "HVAC", keywords: []string{"hvac", "furnace", "heat pump"}},
	{category: "Roof", keywords: []string{"roof"}},
	{category: "Appliances", keywords: []string{"dishwasher", "fridge", "appliance"}},
	{category: "Exterior", keywords: []string{"lock", "door", "window"}},
}

// GuessCategory maps keyword families in text to a category, defaulting to General.
func GuessCategory(text string) string {
	lower := strings.ToLower(text)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.category
			}
		}
	}
	return DefaultCategory
}
