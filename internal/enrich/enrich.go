package enrich

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"

	"github.com/amishk599/jobsieve/internal/model"
)

const descriptionSelector = "div#job-description"

var errNoDescription = errors.New("description container not found")

// Enricher fetches the detail page behind a posting and returns its full
// description text.
type Enricher struct {
	fetcher model.Fetcher
	siteURL string
}

// NewEnricher returns an enricher that resolves detail references against
// siteURL.
func NewEnricher(fetcher model.Fetcher, siteURL string) *Enricher {
	return &Enricher{
		fetcher: fetcher,
		siteURL: strings.TrimRight(siteURL, "/"),
	}
}

// Enrich fetches siteURL+detailRef and returns the text of the description
// container, NFC-normalized with surrounding whitespace removed. Case is kept
// so keyword matching sees the page as published.
func (e *Enricher) Enrich(ctx context.Context, detailRef string) (string, error) {
	body, err := e.fetcher.Fetch(ctx, e.DetailURL(detailRef))
	if err != nil {
		return "", &model.EnrichmentError{DetailRef: detailRef, Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", &model.EnrichmentError{DetailRef: detailRef, Err: fmt.Errorf("parse detail html: %w", err)}
	}

	container := doc.Find(descriptionSelector).First()
	if container.Length() == 0 {
		return "", &model.EnrichmentError{DetailRef: detailRef, Err: errNoDescription}
	}
	return strings.TrimSpace(norm.NFC.String(container.Text())), nil
}

// DetailURL joins the site base and a relative detail reference. Absolute
// references are returned unchanged.
func (e *Enricher) DetailURL(detailRef string) string {
	if strings.HasPrefix(detailRef, "http://") || strings.HasPrefix(detailRef, "https://") {
		return detailRef
	}
	if !strings.HasPrefix(detailRef, "/") {
		detailRef = "/" + detailRef
	}
	return e.siteURL + detailRef
}
