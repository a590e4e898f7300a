package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amishk599/jobsieve/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleRecord(title, employer, description string) model.Record {
	return model.Record{
		Posting: model.Posting{
			Title:     title,
			Employer:  employer,
			Deadline:  time.Date(2026, 11, 12, 0, 0, 0, 0, time.UTC),
			Salary:    45000,
			Location:  "london",
			DetailRef: "/job/1",
		},
		Description: description,
		KeywordHit:  true,
	}
}

func TestHTMLTable_EscapesCells(t *testing.T) {
	out := HTMLTable([]model.Record{sampleRecord("t", "a & b college", "uses <optics>")})
	assert.Contains(t, out, "<th>description</th>")
	assert.Contains(t, out, "<td>uses &lt;optics&gt;</td>")
	assert.Contains(t, out, "<td>a &amp; b college</td>")
	assert.Contains(t, out, "<th>0</th>")
}

func TestSummaryLine(t *testing.T) {
	r := sampleRecord("research fellow", "imperial college", "")
	assert.Equal(t, "research fellow | imperial college | london | £45,000 | closes 2026-11-12", SummaryLine(r))

	r.Salary = model.SalaryNotFound
	assert.Contains(t, SummaryLine(r), "salary unknown")
}

func TestDescriptionExcerpt(t *testing.T) {
	r := sampleRecord("t", "e", "  We study\n\tfluorescence   imaging. ")
	assert.Equal(t, "We study fluorescence imaging.", DescriptionExcerpt(r))

	r.Description = strings.Repeat("é", excerptRunes+10)
	got := DescriptionExcerpt(r)
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.Equal(t, excerptRunes+1, len([]rune(got)))

	r.Description = ""
	assert.Empty(t, DescriptionExcerpt(r))
}

// --- email ---

type capturedMail struct {
	addr string
	auth sasl.Client
	from string
	to   []string
	body []byte
}

func newTestEmail(t *testing.T, settings EmailSettings, sendErr error) (*EmailNotifier, *capturedMail) {
	t.Helper()
	got := &capturedMail{}
	n := NewEmailNotifier(settings, discardLogger())
	n.now = func() time.Time { return time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC) }
	n.send = func(addr string, a sasl.Client, from string, to []string, r io.Reader) error {
		got.addr, got.auth, got.from, got.to = addr, a, from, to
		got.body, _ = io.ReadAll(r)
		return sendErr
	}
	return n, got
}

func TestEmailNotifier_SendsHTMLDigest(t *testing.T) {
	n, got := newTestEmail(t, EmailSettings{Host: "localhost", Port: 25, To: "me@example.com", Subject: "Job Scraping"}, nil)

	err := n.Notify(context.Background(), []model.Record{
		sampleRecord("fellow", "imperial college", "We study fluorescence."),
	})
	require.NoError(t, err)

	assert.Equal(t, "localhost:25", got.addr)
	assert.Nil(t, got.auth, "no auth without username")
	assert.Equal(t, defaultFrom, got.from)
	assert.Equal(t, []string{"me@example.com"}, got.to)

	mr, err := mail.CreateReader(strings.NewReader(string(got.body)))
	require.NoError(t, err)
	subject, err := mr.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "Job Scraping", subject)

	part, err := mr.NextPart()
	require.NoError(t, err)
	body, err := io.ReadAll(part.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "<td>We study fluorescence.</td>")
	assert.Contains(t, string(body), "<td>imperial college</td>")
}

func TestEmailNotifier_AuthWhenUsernameSet(t *testing.T) {
	n, got := newTestEmail(t, EmailSettings{Host: "smtp.example.com", Port: 587, Username: "u", Password: "p", From: "bot@example.com", To: "me@example.com"}, nil)
	require.NoError(t, n.Notify(context.Background(), []model.Record{sampleRecord("t", "e", "d")}))
	assert.NotNil(t, got.auth)
	assert.Equal(t, "bot@example.com", got.from)
	assert.Equal(t, "smtp.example.com:587", got.addr)
}

func TestEmailNotifier_FailureIsDeliveryError(t *testing.T) {
	n, _ := newTestEmail(t, EmailSettings{Host: "localhost", Port: 25, To: "me@example.com"}, errors.New("connection refused"))
	err := n.Notify(context.Background(), []model.Record{sampleRecord("t", "e", "d")})

	var de *model.DeliveryError
	require.True(t, errors.As(err, &de), "expected DeliveryError, got %v", err)
	assert.Equal(t, "email", de.Channel)
}

func TestEmailNotifier_EmptyDoesNotSend(t *testing.T) {
	n, got := newTestEmail(t, EmailSettings{Host: "localhost", Port: 25, To: "me@example.com"}, nil)
	require.NoError(t, n.Notify(context.Background(), nil))
	assert.Empty(t, got.addr)
}

// --- slack ---

func TestSlackNotifier_EmptyRecords(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	if err := n.Notify(context.Background(), nil); err != nil {
		t.Errorf("Notify(nil) = %v, want nil", err)
	}
	if c := calls.Load(); c != 0 {
		t.Errorf("expected 0 HTTP calls, got %d", c)
	}
}

func TestSlackNotifier_SingleDigest(t *testing.T) {
	var (
		calls atomic.Int32
		body  []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	records := []model.Record{
		sampleRecord("fellow one", "a", ""),
		sampleRecord("fellow two", "b <lab>", "uses <optics> & lasers"),
	}
	if err := n.Notify(context.Background(), records); err != nil {
		t.Fatalf("Notify() = %v, want nil", err)
	}
	if c := calls.Load(); c != 1 {
		t.Errorf("expected 1 HTTP call, got %d", c)
	}

	var payload slackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Blocks[0].Text.Text != "2 matching jobs" {
		t.Errorf("header = %q", payload.Blocks[0].Text.Text)
	}
	if !strings.Contains(payload.Blocks[2].Text.Text, "b &lt;lab&gt;") {
		t.Errorf("second record not escaped: %q", payload.Blocks[2].Text.Text)
	}
	if !strings.Contains(payload.Blocks[2].Text.Text, "\n>uses &lt;optics&gt; &amp; lasers") {
		t.Errorf("second record missing description excerpt: %q", payload.Blocks[2].Text.Text)
	}
	if strings.Contains(payload.Blocks[1].Text.Text, "\n>") {
		t.Errorf("empty description rendered a quote: %q", payload.Blocks[1].Text.Text)
	}
}

func TestSlackNotifier_TruncatesLongDigest(t *testing.T) {
	records := make([]model.Record, maxSlackRecords+5)
	for i := range records {
		records[i] = sampleRecord("t", "e", "")
	}
	p := buildPayload(records)
	assert.LessOrEqual(t, len(p.Blocks), 50)
	assert.Equal(t, "and 5 more in the dataset", p.Blocks[len(p.Blocks)-2].Elements[0].Text)
}

func TestSlackNotifier_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	err := n.Notify(context.Background(), []model.Record{sampleRecord("t", "e", "")})

	var de *model.DeliveryError
	if !errors.As(err, &de) || de.Channel != "slack" {
		t.Errorf("Notify() = %v, want slack DeliveryError", err)
	}
}

// --- telegram ---

type fakeBot struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func TestTelegramNotifier_SendsHTMLDigest(t *testing.T) {
	bot := &fakeBot{}
	n := &TelegramNotifier{bot: bot, chatID: 42, logger: discardLogger()}

	require.NoError(t, n.Notify(context.Background(), []model.Record{sampleRecord("fellow", "a & b", "optics <lab>")}))
	require.Len(t, bot.sent, 1)
	assert.Equal(t, int64(42), bot.sent[0].ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, bot.sent[0].ParseMode)
	assert.Contains(t, bot.sent[0].Text, "<b>1 matching job</b>")
	assert.Contains(t, bot.sent[0].Text, "a &amp; b")
	assert.Contains(t, bot.sent[0].Text, "<i>optics &lt;lab&gt;</i>")
}

func TestTelegramNotifier_SplitsLongDigest(t *testing.T) {
	records := make([]model.Record, 200)
	for i := range records {
		records[i] = sampleRecord(strings.Repeat("x", 40), "employer", strings.Repeat("optics ", 40))
	}
	msgs := telegramMessages(records)
	require.Greater(t, len(msgs), 1)
	for _, m := range msgs {
		assert.LessOrEqual(t, len(m), maxTelegramMessage)
	}
}

func TestTelegramNotifier_FailureIsDeliveryError(t *testing.T) {
	n := &TelegramNotifier{bot: &fakeBot{err: errors.New("forbidden")}, chatID: 1, logger: discardLogger()}
	err := n.Notify(context.Background(), []model.Record{sampleRecord("t", "e", "")})
	var de *model.DeliveryError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "telegram", de.Channel)
}

// --- log ---

func TestLogNotifier_Notify(t *testing.T) {
	var buf strings.Builder
	n := NewLogNotifier(slog.New(slog.NewTextHandler(&buf, nil)))

	if err := n.Notify(context.Background(), nil); err != nil {
		t.Errorf("Notify(nil) = %v, want nil", err)
	}
	err := SendTestMessage(context.Background(), n, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Errorf("SendTestMessage() = %v, want nil", err)
	}
	if !strings.Contains(buf.String(), "deadline=2026-12-25") {
		t.Errorf("log output missing sample deadline: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "description=\"Test notification:") {
		t.Errorf("log output missing description excerpt: %s", buf.String())
	}
}
