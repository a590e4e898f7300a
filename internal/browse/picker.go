package browse

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobsieve/internal/model"
)

var (
	pickerTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Padding(1, 0, 1, 2)

	pickerItemStyle = lipgloss.NewStyle().
			Padding(0, 0, 0, 4)

	pickerSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 0, 0, 2)

	pickerHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Padding(1, 0, 0, 2)
)

// DatasetFile is a persisted dataset found on disk.
type DatasetFile struct {
	Path string
	Date time.Time
	Size int64
}

// ListDatasets returns the job_df_<date>.csv files in dir, newest first.
// Files whose names do not carry a valid date are skipped.
func ListDatasets(dir string) ([]DatasetFile, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "job_df_*.csv"))
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}

	var files []DatasetFile
	for _, p := range matches {
		stamp := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(p), "job_df_"), ".csv")
		date, err := time.Parse(model.DateLayout, stamp)
		if err != nil {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		files = append(files, DatasetFile{Path: p, Date: date, Size: info.Size()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Date.After(files[j].Date) })
	return files, nil
}

type pickerModel struct {
	files  []DatasetFile
	cursor int
	chosen int // -1 = no choice yet, -2 = quit
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.chosen = -2
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.files)-1 {
				m.cursor++
			}
		case "enter":
			m.chosen = m.cursor
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m pickerModel) View() string {
	s := pickerTitleStyle.Render("Datasets: select a run")
	s += "\n"

	for i, f := range m.files {
		label := fmt.Sprintf("%s  (%s)", f.Date.Format(model.DateLayout), filepath.Base(f.Path))
		if i == m.cursor {
			s += pickerSelectedStyle.Render("> "+label) + "\n"
		} else {
			s += pickerItemStyle.Render(label) + "\n"
		}
	}

	s += pickerHintStyle.Render("↑/↓/j/k navigate  enter select  q quit")
	return s
}

// RunDatasetPicker shows an interactive dataset selector.
// Returns the index of the chosen file, or -1 if the user quit.
func RunDatasetPicker(files []DatasetFile) (int, error) {
	m := pickerModel{
		files:  files,
		chosen: -1,
	}

	p := tea.NewProgram(m)
	result, err := p.Run()
	if err != nil {
		return -1, err
	}

	final := result.(pickerModel)
	if final.chosen < 0 {
		return -1, nil
	}
	return final.chosen, nil
}
