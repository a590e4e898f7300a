package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/amishk599/jobsieve/internal/model"
)

// Ensure SlackNotifier implements model.Notifier.
var _ model.Notifier = (*SlackNotifier)(nil)

// Slack rejects messages with more than 50 blocks.
const maxSlackRecords = 45

// SlackNotifier posts the hit digest to a Slack channel via an Incoming Webhook.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSlackNotifier returns a notifier that posts one digest message per run.
func NewSlackNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Notify posts a single Block Kit message listing every record.
func (s *SlackNotifier) Notify(ctx context.Context, records []model.Record) error {
	if len(records) == 0 {
		return nil
	}

	body, err := json.Marshal(buildPayload(records))
	if err != nil {
		return &model.DeliveryError{Channel: "slack", Err: fmt.Errorf("marshal slack payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return &model.DeliveryError{Channel: "slack", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &model.DeliveryError{Channel: "slack", Err: fmt.Errorf("post to slack: %w", err)}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &model.DeliveryError{Channel: "slack", Err: fmt.Errorf("slack returned %d", resp.StatusCode)}
	}
	s.logger.Info("slack digest sent", "records", len(records))
	return nil
}

// Block Kit payload types.

type slackPayload struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func buildPayload(records []model.Record) slackPayload {
	heading := digestHeading(len(records))
	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: heading},
		},
	}

	shown := records
	if len(shown) > maxSlackRecords {
		shown = shown[:maxSlackRecords]
	}
	for _, r := range shown {
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: slackSection(r)},
		})
	}
	if rest := len(records) - len(shown); rest > 0 {
		blocks = append(blocks, slackBlock{
			Type:     "context",
			Elements: []slackText{{Type: "mrkdwn", Text: fmt.Sprintf("and %d more in the dataset", rest)}},
		})
	}
	blocks = append(blocks, slackBlock{Type: "divider"})

	return slackPayload{Text: heading, Blocks: blocks}
}

func slackSection(r model.Record) string {
	text := slackEscape(SummaryLine(r))
	if excerpt := DescriptionExcerpt(r); excerpt != "" {
		text += "\n>" + slackEscape(excerpt)
	}
	return text
}

// slackEscape escapes the three characters mrkdwn treats as control sequences.
func slackEscape(s string) string {
	var b bytes.Buffer
	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
