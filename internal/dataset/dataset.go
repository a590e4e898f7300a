package dataset

import (
	"fmt"
	"time"

	"github.com/amishk599/jobsieve/internal/model"
)

// Dataset is the ordered collection of records produced by one run. Order is
// insertion order, which the pipeline keeps equal to fragment order.
type Dataset struct {
	records []model.Record
}

// New returns an empty dataset.
func New() *Dataset {
	return &Dataset{}
}

// FromRecords wraps records read back from disk.
func FromRecords(records []model.Record) *Dataset {
	return &Dataset{records: records}
}

// Append adds r at the end.
func (d *Dataset) Append(r model.Record) {
	d.records = append(d.records, r)
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	return len(d.records)
}

// Records returns a copy of all records in order.
func (d *Dataset) Records() []model.Record {
	out := make([]model.Record, len(d.records))
	copy(out, d.records)
	return out
}

// Hits returns the keyword-hit subset, in dataset order.
func (d *Dataset) Hits() []model.Record {
	var hits []model.Record
	for _, r := range d.records {
		if r.KeywordHit {
			hits = append(hits, r)
		}
	}
	return hits
}

// FileName returns the dataset file name for a run on date.
func FileName(date time.Time) string {
	return fmt.Sprintf("job_df_%s.csv", date.Format(model.DateLayout))
}
