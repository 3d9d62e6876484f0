// Package email defines the outbound email capability used by the publish
// path (confirmation emails) and the delivery worker (newsletter issues),
// plus a Postmark-style HTTP implementation.
//
// The transport is deliberately narrow: one Send call, one error. Callers own
// retry policy; the client only distinguishes success from failure. Note that
// the transport itself can duplicate or drop mail: the application guarantees
// exactly-once enqueuing and at-least-once attempted delivery, nothing
// stronger.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Client sends a single email. Implementations must be safe for concurrent
// use; the API path and the delivery worker share one instance.
type Client interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody string) error
}

// sendRequest is the JSON payload of the provider's send endpoint.
type sendRequest struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HTMLBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// RESTClient delivers email through a Postmark-compatible REST API
// (POST {base}/email, authenticated via X-Postmark-Server-Token).
type RESTClient struct {
	baseURL string
	sender  string
	token   string
	http    *http.Client
}

// NewRESTClient builds a RESTClient. timeout bounds each send attempt
// end-to-end; values <= 0 default to 10 seconds.
func NewRESTClient(baseURL, sender, token string, timeout time.Duration) *RESTClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RESTClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		sender:  sender,
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// Send posts the message to the provider. Any transport error or non-2xx
// response is returned as an error; the caller decides whether to retry.
func (c *RESTClient) Send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	payload, err := json.Marshal(sendRequest{
		From:     c.sender,
		To:       to,
		Subject:  subject,
		HTMLBody: htmlBody,
		TextBody: textBody,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/email", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little of the body for the error message; providers return
		// short JSON diagnostics.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("send email to %s: provider returned %d: %s", to, resp.StatusCode, snippet)
	}
	return nil
}

// LogClient is a no-op Client that records sends at debug level. It backs
// local development when no provider is configured.
type LogClient struct{}

// Send logs the message instead of delivering it and always succeeds.
func (LogClient) Send(_ context.Context, to, subject, _, _ string) error {
	log.Debug().Str("to", to).Str("subject", subject).Msg("email send skipped (log client)")
	return nil
}
