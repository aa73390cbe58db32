// Package scraper retrieves and parses bill data from the legislature's
// public records site.
package scraper

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// MaxTextLen bounds free-text fields (description, last action) before they
// reach storage.
const MaxTextLen = 500

// Normalized bill status values, derived from phrase markers on the detail
// page in priority order.
const (
	StatusFiled            = "Filed"
	StatusInCommittee      = "In Committee"
	StatusPassed           = "Passed"
	StatusSentToGovernor   = "Sent to Governor"
	StatusSignedByGovernor = "Signed by Governor"
)

// FieldExtractor extracts structured fields from a bill detail page. The
// markup is untrusted and possibly malformed; every method is best-effort
// and never fails.
type FieldExtractor interface {
	// Description returns the bill caption, or a fallback synthesized from
	// type and number when no caption marker is present.
	Description(page, billType string, number int) string
	// Authors returns the extracted author names, empty when absent.
	Authors(page string) []string
	// Status derives the normalized status from phrase markers.
	Status(page string) string
	// LastAction returns the last-action text (chamber letter stripped) and
	// date. Both are zero values when the marker is absent.
	LastAction(page string) (string, *time.Time)
}

// regexExtractor is the default pattern-matching implementation.
type regexExtractor struct{}

// NewRegexExtractor returns the default regex-based field extractor.
func NewRegexExtractor() FieldExtractor {
	return regexExtractor{}
}

var (
	captionRe = regexp.MustCompile(`(?i)Caption(?:\s+Text)?:\s*(?:</?[^>]+>\s*)*([^<]+)`)
	authorRe  = regexp.MustCompile(`(?i)Author:\s*(?:</?[^>]+>\s*)*([^<|&]+)`)
	// Last Action: MM/DD/YYYY <chamber letter> <text>
	lastActionRe = regexp.MustCompile(`(?i)Last\s+Action:\s*(?:</?[^>]+>\s*)*(\d{2}/\d{2}/\d{4})\s+([HSE])\s+([^<]+)`)
)

// Phrase markers tested in priority order for status derivation.
var statusMarkers = []struct {
	marker string
	status string
}{
	{"Signed by the Governor", StatusSignedByGovernor},
	{"Sent to the Governor", StatusSentToGovernor},
	{"Passed", StatusPassed},
	{"Referred to", StatusInCommittee},
}

func (regexExtractor) Description(page, billType string, number int) string {
	if m := captionRe.FindStringSubmatch(page); m != nil {
		if caption := strings.TrimSpace(m[1]); caption != "" {
			return Truncate(caption, MaxTextLen)
		}
	}
	return fmt.Sprintf("%s %d", billType, number)
}

func (regexExtractor) Authors(page string) []string {
	m := authorRe.FindStringSubmatch(page)
	if m == nil {
		return []string{}
	}
	author := strings.TrimSpace(m[1])
	if author == "" {
		return []string{}
	}
	return []string{author}
}

func (regexExtractor) Status(page string) string {
	for _, sm := range statusMarkers {
		if strings.Contains(page, sm.marker) {
			return sm.status
		}
	}
	return StatusFiled
}

func (regexExtractor) LastAction(page string) (string, *time.Time) {
	m := lastActionRe.FindStringSubmatch(page)
	if m == nil {
		return "", nil
	}

	text := Truncate(strings.TrimSpace(m[3]), MaxTextLen)

	date, err := time.ParseInLocation("01/02/2006", m[1], time.Local)
	if err != nil {
		return text, nil
	}
	return text, &date
}

// Truncate bounds s to max runes.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
