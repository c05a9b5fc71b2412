package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-resty/resty/v2"
	json "github.com/goccy/go-json"

	"ranked-crawler/internal/crawler"
)

const (
	// Colors for Discord embeds
	colorRed   = 15158332 // 0xE74C3C
	colorGreen = 5763719  // 0x57F287

	defaultWebhookTimeout = 10 * time.Second

	// attempts when the webhook answers 429
	maxRetries = 3
)

// WebhookPayload represents a Discord webhook message
type WebhookPayload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type EmbedFooter struct {
	Text string `json:"text"`
}

func runTitle(r crawler.Report) string {
	return fmt.Sprintf("%s %s %s", r.League, r.Region, r.QueueType)
}

// NewRunCompletePayload summarises a finished crawl.
func NewRunCompletePayload(r crawler.Report) WebhookPayload {
	return WebhookPayload{
		Embeds: []Embed{
			{
				Title:       "✅ Crawl Complete",
				Description: runTitle(r),
				Color:       colorGreen,
				Fields: []EmbedField{
					{Name: "Players", Value: fmt.Sprintf("%s processed / %s skipped", formatNumber(r.PlayersProcessed), formatNumber(r.PlayersSkipped)), Inline: true},
					{Name: "Games Written", Value: formatNumber(r.GamesWritten), Inline: true},
					{Name: "Games Skipped", Value: fmt.Sprintf("%s dup / %s queue / %s failed",
						formatNumber(r.GamesDuplicate), formatNumber(r.GamesFiltered), formatNumber(r.GamesFailed)), Inline: true},
					{Name: "Requests", Value: formatNumber(r.Requests), Inline: true},
					{Name: "Runtime", Value: r.ElapsedString(), Inline: true},
				},
			},
		},
	}
}

// NewRunAbortedPayload reports a crawl that stopped on a fatal error.
func NewRunAbortedPayload(r crawler.Report, cause error, apiKey string) WebhookPayload {
	reason := "unknown error"
	if cause != nil {
		reason = cause.Error()
	}
	return WebhookPayload{
		Content: "@here Crawl aborted",
		Embeds: []Embed{
			{
				Title:       "🛑 Crawl Aborted",
				Description: runTitle(r),
				Color:       colorRed,
				Fields: []EmbedField{
					{Name: "Reason", Value: truncate(reason, 1024)},
					{Name: "Games Written", Value: formatNumber(r.GamesWritten), Inline: true},
					{Name: "Runtime", Value: r.ElapsedString(), Inline: true},
					{Name: "Key", Value: maskAPIKey(apiKey), Inline: true},
				},
				Footer: &EmbedFooter{Text: "Check the API key and rerun"},
			},
		},
	}
}

// WebhookClient sends notifications to Discord webhooks
type WebhookClient struct {
	webhookURL string
	http       *resty.Client
	wait       func(ctx context.Context, d time.Duration) error
}

func NewWebhookClient(webhookURL string) *WebhookClient {
	return &WebhookClient{
		webhookURL: webhookURL,
		http:       resty.New().SetTimeout(defaultWebhookTimeout).SetRetryCount(0),
		wait:       sleepContext,
	}
}

func (c *WebhookClient) SendRunComplete(ctx context.Context, r crawler.Report) error {
	return c.sendPayload(ctx, NewRunCompletePayload(r))
}

func (c *WebhookClient) SendRunAborted(ctx context.Context, r crawler.Report, cause error, apiKey string) error {
	return c.sendPayload(ctx, NewRunAbortedPayload(r, cause, apiKey))
}

// sendPayload posts a payload, waiting out 429 responses
func (c *WebhookClient) sendPayload(ctx context.Context, payload WebhookPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshal webhook payload")
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		resp, err := c.http.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(data).
			Post(c.webhookURL)
		if err != nil {
			return errors.Wrap(err, "webhook request failed")
		}

		switch resp.StatusCode() {
		case http.StatusNoContent, http.StatusOK:
			return nil
		case http.StatusTooManyRequests:
			if err := c.wait(ctx, retryAfter(resp.Header().Get("Retry-After"))); err != nil {
				return err
			}
			continue
		}
		return errors.Newf("webhook request failed with status %d", resp.StatusCode())
	}

	return errors.Newf("webhook request failed after %d retries", maxRetries)
}

func retryAfter(header string) time.Duration {
	if header == "" {
		return time.Second
	}
	if seconds, err := strconv.ParseFloat(header, 64); err == nil && seconds >= 0 {
		return time.Duration(seconds * float64(time.Second))
	}
	return time.Second
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// formatNumber formats a number with commas (e.g., 47832 -> "47,832")
func formatNumber(n int) string {
	if n < 1000 {
		return strconv.Itoa(n)
	}

	s := strconv.Itoa(n)
	var result bytes.Buffer
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result.WriteByte(',')
		}
		result.WriteRune(c)
	}
	return result.String()
}

// maskAPIKey masks an API key for display (e.g., "RGAPI-xxxx-xxxx" -> "RGAPI-...xxxx")
func maskAPIKey(key string) string {
	if len(key) <= 10 {
		return "****"
	}
	return key[:5] + "..." + key[len(key)-4:]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
