package notifier

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"github.com/amishk599/jobsieve/internal/model"
)

// Ensure EmailNotifier implements model.Notifier.
var _ model.Notifier = (*EmailNotifier)(nil)

const defaultFrom = "jobsieve@localhost"

// SendFunc delivers a composed message. smtp.SendMail satisfies it.
type SendFunc func(addr string, a sasl.Client, from string, to []string, r io.Reader) error

// EmailSettings configures an EmailNotifier.
type EmailSettings struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
	Subject  string
}

// EmailNotifier mails the hit digest as an HTML table to a single recipient.
type EmailNotifier struct {
	settings EmailSettings
	send     SendFunc
	now      func() time.Time
	logger   *slog.Logger
}

// NewEmailNotifier returns a notifier that relays through the SMTP server in
// settings. Authentication is only attempted when a username is set.
func NewEmailNotifier(settings EmailSettings, logger *slog.Logger) *EmailNotifier {
	if settings.From == "" {
		settings.From = defaultFrom
	}
	return &EmailNotifier{
		settings: settings,
		send:     smtp.SendMail,
		now:      time.Now,
		logger:   logger,
	}
}

// Notify sends one message containing every record.
func (n *EmailNotifier) Notify(ctx context.Context, records []model.Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return &model.DeliveryError{Channel: "email", Err: err}
	}

	msg, err := n.compose(records)
	if err != nil {
		return &model.DeliveryError{Channel: "email", Err: err}
	}

	var auth sasl.Client
	if n.settings.Username != "" {
		auth = sasl.NewPlainClient("", n.settings.Username, n.settings.Password)
	}
	addr := net.JoinHostPort(n.settings.Host, strconv.Itoa(n.settings.Port))
	if err := n.send(addr, auth, n.settings.From, []string{n.settings.To}, bytes.NewReader(msg)); err != nil {
		return &model.DeliveryError{Channel: "email", Err: err}
	}

	n.logger.Info("email digest sent", "to", n.settings.To, "records", len(records))
	return nil
}

func (n *EmailNotifier) compose(records []model.Record) ([]byte, error) {
	var h mail.Header
	h.SetDate(n.now())
	h.SetAddressList("From", []*mail.Address{{Address: n.settings.From}})
	h.SetAddressList("To", []*mail.Address{{Address: n.settings.To}})
	h.SetSubject(n.settings.Subject)
	h.SetContentType("text/html", map[string]string{"charset": "utf-8"})
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("generate message id: %w", err)
	}

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	if _, err := io.WriteString(w, HTMLTable(records)); err != nil {
		return nil, fmt.Errorf("write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close message: %w", err)
	}
	return buf.Bytes(), nil
}
