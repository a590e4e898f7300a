package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/amishk599/jobsieve/internal/model"
)

// header matches what pandas writes for a frame with a default index: the
// index column is unnamed.
var header = []string{"", "title", "department", "employer", "location", "salary", "deadline", "href", "description", "keyword_hit"}

// WriteCSV writes records to path, replacing any existing file. The rows are
// written to a temporary file in the same directory which is then renamed, so
// a reader never sees a partial dataset.
func WriteCSV(path string, records []model.Record) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".job_df_*.tmp")
	if err != nil {
		return fmt.Errorf("create temp dataset: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := encode(tmp, records); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp dataset: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename dataset into place: %w", err)
	}
	return nil
}

func encode(w io.Writer, records []model.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range records {
		row := []string{
			strconv.Itoa(i),
			r.Title,
			r.Department,
			r.Employer,
			r.Location,
			strconv.Itoa(r.Salary),
			r.DeadlineISO(),
			r.DetailRef,
			r.Description,
			formatBool(r.KeywordHit),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush dataset: %w", err)
	}
	return nil
}

// ReadCSV loads a dataset written by WriteCSV.
func ReadCSV(path string) ([]model.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = len(header)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("read dataset %s: missing header", path)
	}

	records := make([]model.Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		r, err := decodeRow(row)
		if err != nil {
			return nil, fmt.Errorf("read dataset %s: row %d: %w", path, i+1, err)
		}
		records = append(records, r)
	}
	return records, nil
}

func decodeRow(row []string) (model.Record, error) {
	salary, err := strconv.Atoi(row[5])
	if err != nil {
		return model.Record{}, fmt.Errorf("salary: %w", err)
	}
	deadline, err := time.Parse(model.DateLayout, row[6])
	if err != nil {
		return model.Record{}, fmt.Errorf("deadline: %w", err)
	}
	hit, err := parseBool(row[9])
	if err != nil {
		return model.Record{}, err
	}
	return model.Record{
		Posting: model.Posting{
			Title:      row[1],
			Department: row[2],
			Employer:   row[3],
			Location:   row[4],
			Salary:     salary,
			Deadline:   deadline,
			DetailRef:  row[7],
		},
		Description: row[8],
		KeywordHit:  hit,
	}, nil
}

func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func parseBool(s string) (bool, error) {
	switch s {
	case "True":
		return true, nil
	case "False":
		return false, nil
	}
	return false, fmt.Errorf("keyword_hit: invalid value %q", s)
}
