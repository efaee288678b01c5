package repository

import (
	"context"
	"fmt"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	xhttp "SignalForge/pkg/http"
)

// WebhookSignalPublisher POSTs each signal as JSON to a fixed URL, retrying on
// transport errors, 429 and 5xx responses.
type WebhookSignalPublisher struct {
	client  *xhttp.Client
	url     string
	headers map[string]string
}

var _ domrepo.SignalPublisher = (*WebhookSignalPublisher)(nil)

func NewWebhookSignalPublisher(client *xhttp.Client, url string) *WebhookSignalPublisher {
	return &WebhookSignalPublisher{
		client: client,
		url:    url,
		headers: map[string]string{
			"Content-Type": "application/json",
			"User-Agent":   "signalforge-webhook/1",
		},
	}
}

func (p *WebhookSignalPublisher) Publish(ctx context.Context, sig models.Signal) error {
	req := &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     p.url,
		Headers: p.headers,
		Body:    sig,
	}
	if err := p.client.SendWithRetry(ctx, req, nil); err != nil {
		return fmt.Errorf("webhook publish %s: %w", sig.ID, err)
	}
	return nil
}

func (p *WebhookSignalPublisher) Close() error { return nil }
