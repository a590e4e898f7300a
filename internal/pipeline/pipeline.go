package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/amishk599/jobsieve/internal/config"
	"github.com/amishk599/jobsieve/internal/dataset"
	"github.com/amishk599/jobsieve/internal/extract"
	"github.com/amishk599/jobsieve/internal/filter"
	"github.com/amishk599/jobsieve/internal/model"
)

// Discoverer returns every result fragment for the configured facets.
type Discoverer interface {
	Discover(ctx context.Context, facets []string) ([]*goquery.Selection, error)
}

// Enricher returns the full description behind a detail reference.
type Enricher interface {
	Enrich(ctx context.Context, detailRef string) (string, error)
}

// Publisher copies a persisted dataset somewhere else.
type Publisher interface {
	Upload(ctx context.Context, localPath string) error
}

// Deps are the collaborators a Runner needs. Notifier, Archive and Publisher
// may be nil to disable that step.
type Deps struct {
	Discoverer Discoverer
	Enricher   Enricher
	Notifier   model.Notifier
	Archive    model.RunArchive
	Publisher  Publisher
}

// Runner owns one full pass of the pipeline:
// discover → extract → filter → enrich → aggregate → persist → notify.
type Runner struct {
	deps        Deps
	facets      []string
	extractor   *extract.Extractor
	chain       *filter.Chain
	stage       *filter.DescriptionStage // nil when the description stage is off
	workers     int
	itemTimeout time.Duration
	outputDir   string
	now         func() time.Time
	logger      *slog.Logger
}

// New builds a runner from an immutable configuration.
func New(cfg *config.Config, deps Deps, logger *slog.Logger) *Runner {
	r := &Runner{
		deps:        deps,
		facets:      cfg.Listing.Facets,
		chain:       filter.NewChain(cfg.Filters.TitleExclude, locationRule(cfg.Filters), filter.SalaryRange{Min: cfg.Filters.SalaryMin, Max: cfg.Filters.SalaryMax}),
		workers:     cfg.Run.Workers,
		itemTimeout: cfg.Run.ItemTimeout,
		outputDir:   cfg.Output.Dir,
		now:         time.Now,
		logger:      logger,
	}
	r.extractor = extract.NewExtractor(extract.DateParser{
		DayFirst: cfg.Filters.DateOrder == config.DayFirst,
		Now:      func() time.Time { return r.now() },
	})
	if cfg.Description.Enabled {
		r.stage = filter.NewDescriptionStage(cfg.Description.ExcludeDisciplines, cfg.Description.Keywords)
	}
	return r
}

func locationRule(f config.FilterConfig) filter.LocationRule {
	if f.LocationMode == config.LocationExclude {
		return filter.ExcludeLocations(f.Locations...)
	}
	return filter.IncludeLocations(f.Locations...)
}

// outcome is the result of processing one fragment.
type outcome struct {
	posting model.Posting
	record  model.Record
	kept    bool
	reason  filter.Reason // set when a filter rejected the item
	err     error         // set when the item failed
}

// Run executes one pass. A discovery failure aborts before anything is
// written. Otherwise the dataset is always persisted, even when empty, and
// the returned error (if any) is about a later step such as delivery.
func (r *Runner) Run(ctx context.Context) (model.RunSummary, error) {
	summary := model.RunSummary{ID: uuid.NewString(), Date: r.now()}
	logger := r.logger.With("run_id", summary.ID)
	logger.Info("run started", "facets", len(r.facets), "workers", r.workers)

	fragments, err := r.deps.Discoverer.Discover(ctx, r.facets)
	if err != nil {
		return summary, err
	}
	summary.Fragments = len(fragments)

	outcomes, err := r.processAll(ctx, fragments, logger, true)
	if err != nil {
		return summary, err
	}

	ds := dataset.New()
	for _, o := range outcomes {
		switch {
		case o.err != nil:
			summary.Dropped++
		case !o.kept:
			summary.Filtered++
		default:
			ds.Append(o.record)
		}
	}
	hits := ds.Hits()
	summary.Records = ds.Len()
	summary.Hits = len(hits)

	summary.DatasetPath = filepath.Join(r.outputDir, dataset.FileName(summary.Date))
	if err := dataset.WriteCSV(summary.DatasetPath, ds.Records()); err != nil {
		return summary, fmt.Errorf("persist dataset: %w", err)
	}
	logger.Info("dataset written", "path", summary.DatasetPath, "records", summary.Records)

	if r.deps.Archive != nil {
		if err := r.deps.Archive.SaveRun(ctx, summary, ds.Records()); err != nil {
			logger.Warn("archiving run failed", "error", err)
		}
	}
	if r.deps.Publisher != nil {
		if err := r.deps.Publisher.Upload(ctx, summary.DatasetPath); err != nil {
			logger.Warn("publishing dataset failed", "error", err)
		}
	}

	logger.Info("run complete",
		"fragments", summary.Fragments,
		"records", summary.Records,
		"hits", summary.Hits,
		"filtered", summary.Filtered,
		"dropped", summary.Dropped,
	)

	if len(hits) == 0 || r.deps.Notifier == nil {
		return summary, nil
	}
	if err := r.deps.Notifier.Notify(ctx, hits); err != nil {
		var de *model.DeliveryError
		if !errors.As(err, &de) {
			err = &model.DeliveryError{Channel: "notifier", Err: err}
		}
		return summary, err
	}
	return summary, nil
}

// Check runs discovery, extraction and the first filter stage only and
// returns the postings that pass. Nothing is fetched per item and nothing is
// written.
func (r *Runner) Check(ctx context.Context) ([]model.Posting, error) {
	fragments, err := r.deps.Discoverer.Discover(ctx, r.facets)
	if err != nil {
		return nil, err
	}
	outcomes, err := r.processAll(ctx, fragments, r.logger, false)
	if err != nil {
		return nil, err
	}
	var passed []model.Posting
	for _, o := range outcomes {
		if o.err == nil && o.kept {
			passed = append(passed, o.posting)
		}
	}
	return passed, nil
}

// processAll runs every fragment through processItem. Results land in slots
// indexed by fragment position, so order is preserved whatever the pool size.
func (r *Runner) processAll(ctx context.Context, fragments []*goquery.Selection, logger *slog.Logger, enrich bool) ([]outcome, error) {
	total := len(fragments)
	outcomes := make([]outcome, total)

	if r.workers <= 1 {
		for i, frag := range fragments {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("run canceled: %w", err)
			}
			outcomes[i] = r.processItem(ctx, logger, i+1, total, frag, enrich)
		}
		return outcomes, nil
	}

	var g errgroup.Group
	g.SetLimit(r.workers)
	for i, frag := range fragments {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			outcomes[i] = r.processItem(ctx, logger, i+1, total, frag, enrich)
			return nil
		})
	}
	g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run canceled: %w", err)
	}
	return outcomes, nil
}

func (r *Runner) processItem(ctx context.Context, logger *slog.Logger, position, total int, frag *goquery.Selection, enrich bool) outcome {
	ctx, cancel := context.WithTimeout(ctx, r.itemTimeout)
	defer cancel()

	logger = logger.With("position", position, "total", total)
	logger.Info("processing item")

	posting, err := r.extractor.Extract(frag)
	if err != nil {
		logger.Warn("item dropped", "error", err)
		return outcome{err: err}
	}
	logger = logger.With("title", posting.Title)

	if ok, reason := r.chain.Pass(posting); !ok {
		logger.Debug("item filtered", "reason", reason)
		return outcome{posting: posting, reason: reason}
	}
	if !enrich {
		return outcome{posting: posting, kept: true}
	}

	desc, err := r.deps.Enricher.Enrich(ctx, posting.DetailRef)
	if err != nil {
		logger.Warn("item dropped", "error", err)
		return outcome{posting: posting, err: err}
	}
	rec := model.Record{Posting: posting, Description: desc}

	if r.stage != nil {
		keep, hit, reason := r.stage.Evaluate(desc)
		if !keep {
			logger.Debug("item filtered", "reason", reason)
			return outcome{posting: posting, reason: reason}
		}
		rec.KeywordHit = hit
	}
	if rec.KeywordHit {
		logger.Info("keyword hit")
	}
	return outcome{posting: posting, record: rec, kept: true}
}
