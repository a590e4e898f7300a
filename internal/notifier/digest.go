package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/amishk599/jobsieve/internal/model"
)

const excerptRunes = 200

// HTMLTable renders the hit digest as the email body: one row per record with
// its index, description and employer.
func HTMLTable(records []model.Record) string {
	var b strings.Builder
	b.WriteString(`<table border="1" class="dataframe">` + "\n")
	b.WriteString("  <thead>\n    <tr style=\"text-align: right;\">\n")
	b.WriteString("      <th></th>\n      <th>description</th>\n      <th>employer</th>\n")
	b.WriteString("    </tr>\n  </thead>\n  <tbody>\n")
	for i, r := range records {
		fmt.Fprintf(&b, "    <tr>\n      <th>%d</th>\n      <td>%s</td>\n      <td>%s</td>\n    </tr>\n",
			i, html.EscapeString(r.Description), html.EscapeString(r.Employer))
	}
	b.WriteString("  </tbody>\n</table>")
	return b.String()
}

// SummaryLine renders one record for chat-style channels.
func SummaryLine(r model.Record) string {
	return fmt.Sprintf("%s | %s | %s | %s | closes %s",
		r.Title, r.Employer, r.Location, formatSalary(r.Salary), r.DeadlineISO())
}

// DescriptionExcerpt collapses whitespace in the record's description and cuts
// it to excerptRunes runes, marking a cut with an ellipsis.
func DescriptionExcerpt(r model.Record) string {
	text := strings.Join(strings.Fields(r.Description), " ")
	runes := []rune(text)
	if len(runes) <= excerptRunes {
		return text
	}
	return strings.TrimSpace(string(runes[:excerptRunes])) + "…"
}

func formatSalary(salary int) string {
	if salary == model.SalaryNotFound {
		return "salary unknown"
	}
	return "£" + humanize.Comma(int64(salary))
}

// digestHeading is the first line of chat digests.
func digestHeading(n int) string {
	return fmt.Sprintf("%s matching %s", humanize.Comma(int64(n)), pluralize(n, "job", "jobs"))
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// SampleRecord is the record used by test notifications.
func SampleRecord(now time.Time) model.Record {
	return model.Record{
		Posting: model.Posting{
			Title:      "research fellow in photonics",
			Employer:   "jobsieve test",
			Department: "department of physics",
			Deadline:   time.Date(now.Year(), 12, 25, 0, 0, 0, 0, time.UTC),
			Salary:     45000,
			Location:   "london",
			DetailRef:  "/job/TEST001/research-fellow-in-photonics",
		},
		Description: "Test notification: integration verified. We study fluorescence lifetime imaging.",
		KeywordHit:  true,
	}
}
