package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Hrideshsrivastava/audit-bridge/internal/config"
	"github.com/Hrideshsrivastava/audit-bridge/internal/observability"
)

const defaultBrevoBaseURL = "https://api.brevo.com"

// Brevo sends transactional email through the Brevo SMTP API.
type Brevo struct {
	client  *http.Client
	cfg     *config.MailerConfig
	baseURL string
	logger  observability.Logger
	metrics observability.Metrics
}

func NewBrevo(cfg *config.MailerConfig, logger observability.Logger, metrics observability.Metrics) *Brevo {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBrevoBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Brevo{
		client:  &http.Client{Timeout: timeout},
		cfg:     cfg,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger.WithFields(map[string]interface{}{"component": "mailer.brevo"}),
		metrics: metrics,
	}
}

type brevoParty struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type brevoRequest struct {
	Sender      brevoParty   `json:"sender"`
	To          []brevoParty `json:"to"`
	Subject     string       `json:"subject"`
	HTMLContent string       `json:"htmlContent"`
}

// Send delivers one email. Non-2xx responses are errors; the caller decides
// whether to retry.
func (b *Brevo) Send(ctx context.Context, email Email) error {
	startTime := time.Now()

	payload := brevoRequest{
		Sender:      brevoParty{Name: b.cfg.SenderName, Email: b.cfg.SenderEmail},
		To:          []brevoParty{{Name: email.ToName, Email: email.ToEmail}},
		Subject:     email.Subject,
		HTMLContent: email.HTMLBody,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/v3/smtp/email", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", b.cfg.APIKey)

	resp, err := b.client.Do(req)
	if err != nil {
		b.logger.Error("Failed to send email", "error", err, "to", email.ToEmail)
		b.metrics.IncrementCounter("mailer.send.errors", map[string]string{"error": "transport"})
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		b.logger.Error("Mailer API rejected email",
			"status", resp.StatusCode,
			"to", email.ToEmail,
			"response", string(detail))
		b.metrics.IncrementCounter("mailer.send.errors", map[string]string{"error": "api"})
		return fmt.Errorf("mailer API returned status %d", resp.StatusCode)
	}

	duration := time.Since(startTime)
	b.logger.Info("Email sent",
		"to", email.ToEmail,
		"subject", email.Subject,
		"duration_ms", duration.Milliseconds())

	b.metrics.IncrementCounter("mailer.send.success", nil)
	b.metrics.RecordHistogram("mailer.send.duration_ms", float64(duration.Milliseconds()), nil)

	return nil
}
