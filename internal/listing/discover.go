package listing

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/amishk599/jobsieve/internal/model"
)

const (
	countSelector = "h2.j-search-content__count"

	// Result containers are matched on the exact class attribute value. Both
	// variants are valid results.
	plainResultSelector       = `div[class="j-search-result__result ie-border-left"]`
	highlightedResultSelector = `div[class="j-search-result__result j-search-result__result--highlighted ie-border-left"]`
)

// Discoverer finds every result fragment for a set of facets in two requests:
// a small probe to learn the total, then one page large enough to hold it.
type Discoverer struct {
	fetcher       model.Fetcher
	searchURL     string
	probePageSize int
	logger        *slog.Logger
}

// NewDiscoverer creates a discoverer that queries searchURL through fetcher.
func NewDiscoverer(fetcher model.Fetcher, searchURL string, probePageSize int, logger *slog.Logger) *Discoverer {
	return &Discoverer{
		fetcher:       fetcher,
		searchURL:     searchURL,
		probePageSize: probePageSize,
		logger:        logger,
	}
}

// Discover returns all result fragments, plain results first, then highlighted
// ones. Any failure is a *model.DiscoveryError and is fatal to the run.
func (d *Discoverer) Discover(ctx context.Context, facets []string) ([]*goquery.Selection, error) {
	probe, err := d.fetchDocument(ctx, BuildQuery(d.searchURL, facets, d.probePageSize))
	if err != nil {
		return nil, &model.DiscoveryError{Stage: "probe", Err: err}
	}

	total, err := ResultCount(probe)
	if err != nil {
		return nil, &model.DiscoveryError{Stage: "count", Err: err}
	}
	pageSize := PageSizeFor(total)
	d.logger.Info("listing size discovered", "total", total, "page_size", pageSize)

	doc, err := d.fetchDocument(ctx, BuildQuery(d.searchURL, facets, pageSize))
	if err != nil {
		return nil, &model.DiscoveryError{Stage: "listing", Err: err}
	}

	fragments := Fragments(doc)
	d.logger.Info("fragments collected", "count", len(fragments))
	return fragments, nil
}

func (d *Discoverer) fetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	body, err := d.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse listing html: %w", err)
	}
	return doc, nil
}

// ResultCount reads the total-results indicator: the first whitespace-separated
// token of the count heading, as an integer.
func ResultCount(doc *goquery.Document) (int, error) {
	heading := doc.Find(countSelector).First()
	if heading.Length() == 0 {
		return 0, fmt.Errorf("result count heading %q not found", countSelector)
	}
	fields := strings.Fields(heading.Text())
	if len(fields) == 0 {
		return 0, fmt.Errorf("result count heading is empty")
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, fmt.Errorf("parse result count %q: %w", fields[0], err)
	}
	return n, nil
}

// PageSizeFor over-fetches: it returns the next multiple of 1000 strictly above
// total, so an approximate count never truncates the listing.
func PageSizeFor(total int) int {
	return 1000 * (total/1000 + 1)
}

// Fragments collects plain result containers followed by highlighted ones.
func Fragments(doc *goquery.Document) []*goquery.Selection {
	var out []*goquery.Selection
	for _, sel := range []string{plainResultSelector, highlightedResultSelector} {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			out = append(out, s)
		})
	}
	return out
}
