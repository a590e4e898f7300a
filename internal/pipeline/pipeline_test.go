package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amishk599/jobsieve/internal/config"
	"github.com/amishk599/jobsieve/internal/dataset"
	"github.com/amishk599/jobsieve/internal/model"
)

// --- Fakes ---

type fakeDiscoverer struct {
	fragments []*goquery.Selection
	err       error
}

func (d *fakeDiscoverer) Discover(context.Context, []string) ([]*goquery.Selection, error) {
	return d.fragments, d.err
}

// mapEnricher serves descriptions by detail reference. A missing entry is an
// enrichment failure; a "block" entry waits for the item deadline.
type mapEnricher struct {
	descriptions map[string]string
	delay        func(ref string) time.Duration
}

func (e *mapEnricher) Enrich(ctx context.Context, ref string) (string, error) {
	if e.delay != nil {
		time.Sleep(e.delay(ref))
	}
	desc, ok := e.descriptions[ref]
	if !ok {
		return "", &model.EnrichmentError{DetailRef: ref, Err: errors.New("not found")}
	}
	if desc == "block" {
		<-ctx.Done()
		return "", &model.EnrichmentError{DetailRef: ref, Err: ctx.Err()}
	}
	return desc, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	calls    int
	notified []model.Record
	err      error
}

func (n *recordingNotifier) Notify(_ context.Context, records []model.Record) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	n.notified = append(n.notified, records...)
	return n.err
}

type recordingArchive struct {
	runs    []model.RunSummary
	records [][]model.Record
}

func (a *recordingArchive) SaveRun(_ context.Context, run model.RunSummary, records []model.Record) error {
	a.runs = append(a.runs, run)
	a.records = append(a.records, records)
	return nil
}

type recordingPublisher struct {
	paths []string
	err   error
}

func (p *recordingPublisher) Upload(_ context.Context, path string) error {
	p.paths = append(p.paths, path)
	return p.err
}

// --- Helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedNow() time.Time { return time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC) }

type item struct {
	title, href, location, salary string
	noEmployer                    bool
}

func fragments(t *testing.T, items ...item) []*goquery.Selection {
	t.Helper()
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, it := range items {
		b.WriteString(`<div class="j-search-result__result ie-border-left">`)
		fmt.Fprintf(&b, "<a href=%q>%s</a>\n", it.href, it.title)
		if !it.noEmployer {
			b.WriteString(`<div class="j-search-result__employer">Imperial College</div>` + "\n")
		}
		b.WriteString(`<div class="j-search-result__department">Physics</div>` + "\n")
		fmt.Fprintf(&b, "<div>Location: %s</div>\n<div>Salary: %s</div>\n", it.location, it.salary)
		b.WriteString(`<span class="j-search-result__date-span j-search-result__date--blue">12th November 2026</span>`)
		b.WriteString(`</div>`)
	}
	b.WriteString("</body></html>")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(b.String()))
	require.NoError(t, err)
	var out []*goquery.Selection
	doc.Find("div.j-search-result__result").Each(func(_ int, s *goquery.Selection) {
		out = append(out, s)
	})
	return out
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Output.Dir = t.TempDir()
	cfg.Filters.TitleExclude = []string{"phd"}
	cfg.Filters.Locations = []string{"london"}
	return cfg
}

func newRunner(cfg *config.Config, deps Deps) *Runner {
	r := New(cfg, deps, discardLogger())
	r.now = fixedNow
	return r
}

// --- Tests ---

func TestRun_ZeroFragmentsWritesEmptyDatasetAndSkipsNotifier(t *testing.T) {
	cfg := testConfig(t)
	notifier := &recordingNotifier{}
	r := newRunner(cfg, Deps{
		Discoverer: &fakeDiscoverer{},
		Enricher:   &mapEnricher{},
		Notifier:   notifier,
	})

	summary, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(cfg.Output.Dir, "job_df_2026-10-19.csv"), summary.DatasetPath)
	records, err := dataset.ReadCSV(summary.DatasetPath)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Zero(t, notifier.calls)
	assert.NotEmpty(t, summary.ID)
}

func TestRun_KeywordHitIsNotified(t *testing.T) {
	cfg := testConfig(t)
	notifier := &recordingNotifier{}
	archive := &recordingArchive{}
	publisher := &recordingPublisher{}
	r := newRunner(cfg, Deps{
		Discoverer: &fakeDiscoverer{fragments: fragments(t,
			item{title: "Research Fellow in Photonics", href: "/job/1", location: "London", salary: "£45,000"},
			item{title: "Research Associate", href: "/job/2", location: "London", salary: "£40,000"},
		)},
		Enricher: &mapEnricher{descriptions: map[string]string{
			"/job/1": "We study fluorescence lifetime imaging.",
			"/job/2": "We study protein folding.",
		}},
		Notifier:  notifier,
		Archive:   archive,
		Publisher: publisher,
	})

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Records)
	assert.Equal(t, 1, summary.Hits)

	require.Len(t, notifier.notified, 1)
	hit := notifier.notified[0]
	assert.Equal(t, "research fellow in photonics", hit.Title)
	assert.Equal(t, 45000, hit.Salary)
	assert.Equal(t, "london", hit.Location)
	assert.Equal(t, "2026-11-12", hit.DeadlineISO())
	assert.True(t, hit.KeywordHit)

	records, err := dataset.ReadCSV(summary.DatasetPath)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.True(t, records[0].KeywordHit)
	assert.False(t, records[1].KeywordHit)

	require.Len(t, archive.runs, 1)
	assert.Equal(t, summary, archive.runs[0])
	assert.Equal(t, []string{summary.DatasetPath}, publisher.paths)
}

func TestRun_PerItemFailuresAreIsolated(t *testing.T) {
	cfg := testConfig(t)
	r := newRunner(cfg, Deps{
		Discoverer: &fakeDiscoverer{fragments: fragments(t,
			item{title: "No Employer", href: "/job/1", location: "London", salary: "40000", noEmployer: true},
			item{title: "Enrich Fails", href: "/job/missing", location: "London", salary: "40000"},
			item{title: "Good One", href: "/job/3", location: "London", salary: "40000"},
			item{title: "PhD Studentship", href: "/job/4", location: "London", salary: "40000"},
			item{title: "Astro Postdoc", href: "/job/5", location: "London", salary: "40000"},
		)},
		Enricher: &mapEnricher{descriptions: map[string]string{
			"/job/3": "plain description",
			"/job/4": "never fetched",
			"/job/5": "astrophysics group",
		}},
	})

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Fragments)
	assert.Equal(t, 1, summary.Records)
	assert.Equal(t, 2, summary.Dropped)
	assert.Equal(t, 2, summary.Filtered)

	records, err := dataset.ReadCSV(summary.DatasetPath)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "good one", records[0].Title)
}

func TestRun_DescriptionStageDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Description.Enabled = false
	notifier := &recordingNotifier{}
	r := newRunner(cfg, Deps{
		Discoverer: &fakeDiscoverer{fragments: fragments(t,
			item{title: "Astro Optics", href: "/job/1", location: "London", salary: "40000"},
		)},
		Enricher: &mapEnricher{descriptions: map[string]string{"/job/1": "astrophysics optics"}},
		Notifier: notifier,
	})

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Records)
	assert.Zero(t, summary.Hits)
	assert.Zero(t, notifier.calls)
}

func TestRun_PoolPreservesFragmentOrder(t *testing.T) {
	cfg := testConfig(t)
	cfg.Run.Workers = 4

	var (
		items []item
		descs = map[string]string{}
	)
	for i := range 12 {
		href := fmt.Sprintf("/job/%d", i)
		items = append(items, item{title: fmt.Sprintf("Role %02d", i), href: href, location: "London", salary: "40000"})
		descs[href] = "optics " + href
	}
	r := newRunner(cfg, Deps{
		Discoverer: &fakeDiscoverer{fragments: fragments(t, items...)},
		Enricher: &mapEnricher{
			descriptions: descs,
			// Earlier items finish last.
			delay: func(ref string) time.Duration {
				var n int
				fmt.Sscanf(ref, "/job/%d", &n)
				return time.Duration(12-n) * 2 * time.Millisecond
			},
		},
	})

	summary, err := r.Run(context.Background())
	require.NoError(t, err)

	records, err := dataset.ReadCSV(summary.DatasetPath)
	require.NoError(t, err)
	require.Len(t, records, 12)
	for i, rec := range records {
		assert.Equal(t, fmt.Sprintf("role %02d", i), rec.Title)
	}
}

func TestRun_ItemTimeoutDropsOnlyThatItem(t *testing.T) {
	cfg := testConfig(t)
	cfg.Run.ItemTimeout = 20 * time.Millisecond
	r := newRunner(cfg, Deps{
		Discoverer: &fakeDiscoverer{fragments: fragments(t,
			item{title: "Slow", href: "/job/slow", location: "London", salary: "40000"},
			item{title: "Fast", href: "/job/fast", location: "London", salary: "40000"},
		)},
		Enricher: &mapEnricher{descriptions: map[string]string{"/job/slow": "block", "/job/fast": "ok"}},
	})

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Records)
	assert.Equal(t, 1, summary.Dropped)
}

func TestRun_DiscoveryErrorWritesNothing(t *testing.T) {
	cfg := testConfig(t)
	r := newRunner(cfg, Deps{
		Discoverer: &fakeDiscoverer{err: &model.DiscoveryError{Stage: "count", Err: errors.New("no count")}},
		Enricher:   &mapEnricher{},
	})

	_, err := r.Run(context.Background())
	var de *model.DiscoveryError
	require.True(t, errors.As(err, &de))

	entries, err := os.ReadDir(cfg.Output.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRun_DeliveryErrorAfterDatasetPersisted(t *testing.T) {
	cfg := testConfig(t)
	r := newRunner(cfg, Deps{
		Discoverer: &fakeDiscoverer{fragments: fragments(t,
			item{title: "Fellow", href: "/job/1", location: "London", salary: "40000"},
		)},
		Enricher: &mapEnricher{descriptions: map[string]string{"/job/1": "fluorescence"}},
		Notifier: &recordingNotifier{err: errors.New("relay down")},
	})

	summary, err := r.Run(context.Background())
	var de *model.DeliveryError
	require.True(t, errors.As(err, &de), "expected DeliveryError, got %v", err)

	records, readErr := dataset.ReadCSV(summary.DatasetPath)
	require.NoError(t, readErr)
	assert.Len(t, records, 1)
}

func TestRun_PublishFailureIsNotFatal(t *testing.T) {
	cfg := testConfig(t)
	r := newRunner(cfg, Deps{
		Discoverer: &fakeDiscoverer{},
		Enricher:   &mapEnricher{},
		Publisher:  &recordingPublisher{err: errors.New("sftp down")},
	})

	_, err := r.Run(context.Background())
	assert.NoError(t, err)
}

func TestRun_CanceledContext(t *testing.T) {
	cfg := testConfig(t)
	r := newRunner(cfg, Deps{
		Discoverer: &fakeDiscoverer{fragments: fragments(t,
			item{title: "Fellow", href: "/job/1", location: "London", salary: "40000"},
		)},
		Enricher: &mapEnricher{descriptions: map[string]string{"/job/1": "x"}},
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCheck_ReturnsStageOneSurvivors(t *testing.T) {
	cfg := testConfig(t)
	enricher := &mapEnricher{}
	r := newRunner(cfg, Deps{
		Discoverer: &fakeDiscoverer{fragments: fragments(t,
			item{title: "Research Fellow", href: "/job/1", location: "London", salary: "45000"},
			item{title: "Research Fellow", href: "/job/2", location: "Leeds", salary: "45000"},
			item{title: "Research Fellow", href: "/job/3", location: "London", salary: "competitive"},
		)},
		Enricher: enricher,
	})

	passed, err := r.Check(context.Background())
	require.NoError(t, err)
	require.Len(t, passed, 1)
	assert.Equal(t, "/job/1", passed[0].DetailRef)

	entries, err := os.ReadDir(cfg.Output.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
