package notifier

import (
	"context"
	"log/slog"
	"time"

	"github.com/amishk599/jobsieve/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes keyword hits to the given logger as structured messages.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each record via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs each record. It never fails.
func (n *LogNotifier) Notify(_ context.Context, records []model.Record) error {
	for _, r := range records {
		n.logger.Info("keyword hit",
			"title", r.Title,
			"employer", r.Employer,
			"location", r.Location,
			"salary", r.Salary,
			"deadline", r.DeadlineISO(),
			"href", r.DetailRef,
			"description", DescriptionExcerpt(r),
		)
	}
	return nil
}

// SendTestMessage sends a sample record to verify the integration works.
func SendTestMessage(ctx context.Context, n model.Notifier, now time.Time) error {
	return n.Notify(ctx, []model.Record{SampleRecord(now)})
}
