package scraper

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/raphaelgruber/legtrack/internal/metrics"
)

// maxBillNumber rejects obviously invalid identifiers scraped from listing
// markup.
const maxBillNumber = 10000

// BillNumbers retrieves the listing page for a bill type and returns the
// distinct numeric identifiers found on it, unordered. A transport error or
// non-success response is logged and yields an empty set, never an error:
// one type's failure must not block the others.
func (f *Fetcher) BillNumbers(ctx context.Context, sessionCode, billType string) []int {
	start := time.Now()
	url := f.listingURL(sessionCode, billType)

	body, err := f.get(ctx, url)
	if err != nil {
		f.record(metrics.OpListingFetch, start, true)
		slog.Warn("listing fetch failed", "bill_type", billType, "url", url, "error", err)
		return nil
	}
	f.record(metrics.OpListingFetch, start, false)

	numbers := extractBillNumbers(body, billType)
	slog.Info("listing fetched", "bill_type", billType, "bills", len(numbers))
	return numbers
}

// extractBillNumbers pulls bill numbers for one type out of listing markup,
// matching both anchor hrefs ("Bill=HB123") and anchor text ("HB 123").
func extractBillNumbers(page []byte, billType string) []int {
	hrefRe := regexp.MustCompile(fmt.Sprintf(`(?i)Bill=%s0*(\d{1,6})`, regexp.QuoteMeta(billType)))
	textRe := regexp.MustCompile(fmt.Sprintf(`(?i)\b%s\s*0*(\d{1,6})\b`, regexp.QuoteMeta(billType)))

	seen := make(map[int]struct{})
	add := func(match []string) {
		if match == nil {
			return
		}
		n, err := strconv.Atoi(match[1])
		if err != nil || n <= 0 || n >= maxBillNumber {
			return
		}
		seen[n] = struct{}{}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		// Unparseable markup: fall back to scanning the raw text.
		for _, m := range textRe.FindAllStringSubmatch(string(page), -1) {
			add(m)
		}
	} else {
		doc.Find("a").Each(func(_ int, a *goquery.Selection) {
			if href, ok := a.Attr("href"); ok {
				add(hrefRe.FindStringSubmatch(href))
			}
			add(textRe.FindStringSubmatch(a.Text()))
		})
	}

	numbers := make([]int, 0, len(seen))
	for n := range seen {
		numbers = append(numbers, n)
	}
	return numbers
}
