package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/amishk599/jobsieve/internal/model"
)

const (
	employerSelector   = "div.j-search-result__employer"
	departmentSelector = "div.j-search-result__department"
	deadlineSelector   = `span[class="j-search-result__date-span j-search-result__date--blue"]`
)

// Extractor turns one listing fragment into a model.Posting.
type Extractor struct {
	dates DateParser
}

// NewExtractor returns an extractor that normalizes deadlines with dates.
func NewExtractor(dates DateParser) *Extractor {
	return &Extractor{dates: dates}
}

// Extract reads every field of frag. Salary and location fall back to their
// sentinels and never fail. A missing title, detail link, employer or
// department yields *model.ExtractionError; an unparseable deadline yields
// *model.DateNormalizationError. Either way only this fragment is lost.
func (e *Extractor) Extract(frag *goquery.Selection) (model.Posting, error) {
	anchor := frag.Find("a").First()
	if anchor.Length() == 0 {
		return model.Posting{}, &model.ExtractionError{Field: "title"}
	}
	href, ok := anchor.Attr("href")
	if !ok {
		return model.Posting{}, &model.ExtractionError{Field: "detail reference"}
	}

	employer := frag.Find(employerSelector).First()
	if employer.Length() == 0 {
		return model.Posting{}, &model.ExtractionError{Field: "employer"}
	}
	department := frag.Find(departmentSelector).First()
	if department.Length() == 0 {
		return model.Posting{}, &model.ExtractionError{Field: "department"}
	}

	rawDate := MissingDeadline
	if span := frag.Find(deadlineSelector).First(); span.Length() > 0 {
		rawDate = normalizeField(span.Text())
	}
	deadline, err := e.dates.Parse(rawDate)
	if err != nil {
		return model.Posting{}, &model.DateNormalizationError{Value: rawDate, Err: err}
	}

	tokens := Tokens(frag.Text())

	return model.Posting{
		Title:      normalizeField(anchor.Text()),
		Employer:   normalizeField(employer.Text()),
		Department: normalizeField(department.Text()),
		Deadline:   deadline,
		Salary:     Salary(tokens),
		Location:   Location(tokens),
		DetailRef:  href,
	}, nil
}

func normalizeField(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}
