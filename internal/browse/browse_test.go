package browse

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amishk599/jobsieve/internal/model"
)

func rec(title string, deadline time.Time, hit bool) model.Record {
	return model.Record{
		Posting: model.Posting{
			Title:     title,
			Employer:  "imperial college",
			Location:  "london",
			Salary:    45000,
			Deadline:  deadline,
			DetailRef: "/job/" + title,
		},
		Description: "description of " + title,
		KeywordHit:  hit,
	}
}

func day(d int) time.Time { return time.Date(2026, 11, d, 0, 0, 0, 0, time.UTC) }

func TestListDatasets_NewestFirstSkipsUndated(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"job_df_2026-10-01.csv", "job_df_2026-10-19.csv", "job_df_latest.csv", "notes.csv"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(","), 0o644))
	}

	files, err := ListDatasets(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "job_df_2026-10-19.csv", filepath.Base(files[0].Path))
	assert.Equal(t, "job_df_2026-10-01.csv", filepath.Base(files[1].Path))
}

func TestNewBrowseModel_SplitsHitsAndSortsByDeadline(t *testing.T) {
	records := []model.Record{rec("late", day(20), true), rec("soon", day(2), false), rec("mid", day(10), true)}
	m := newBrowseModel(records, "https://www.jobs.ac.uk/")

	require.Len(t, m.allRecords, 3)
	assert.Equal(t, "soon", m.allRecords[0].Title)
	assert.Equal(t, "late", m.allRecords[2].Title)
	require.Len(t, m.hitRecords, 2)
	assert.Equal(t, "mid", m.hitRecords[0].Title)
	assert.Equal(t, "late", records[0].Title, "input slice reordered")
}

func TestBrowseModel_NavigateAndOpenDetail(t *testing.T) {
	m := newBrowseModel([]model.Record{rec("a", day(1), false), rec("b", day(2), true)}, "https://www.jobs.ac.uk")
	var tm tea.Model = m
	tm, _ = tm.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	tm, _ = tm.Update(tea.KeyMsg{Type: tea.KeyDown})
	tm, _ = tm.Update(tea.KeyMsg{Type: tea.KeyEnter})

	bm := tm.(browseModel)
	assert.Equal(t, viewDetail, bm.view)
	assert.Equal(t, "b", bm.detailRecord.Title)
	assert.Contains(t, bm.renderDetail(), "https://www.jobs.ac.uk/job/b")
	assert.Contains(t, bm.renderDetail(), "£45,000")

	tm, _ = tm.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, viewList, tm.(browseModel).view)
}

func TestBrowseModel_CursorClamped(t *testing.T) {
	m := newBrowseModel([]model.Record{rec("only", day(1), false)}, "")
	m.moveCursor(5)
	assert.Equal(t, 0, m.leftCursor)
	m.activePane = 1
	m.moveCursor(1)
	assert.Equal(t, 0, m.rightCursor)
}

func TestRenderRecords_Empty(t *testing.T) {
	assert.Equal(t, "  (no records)", renderRecords(nil, 0, true))
}

func TestWordWrap(t *testing.T) {
	got := wordWrap("one two three four five", 9)
	for _, line := range strings.Split(got, "\n") {
		assert.LessOrEqual(t, len(line), 9)
	}
	assert.Equal(t, "one two\nthree\nfour five", got)
}
