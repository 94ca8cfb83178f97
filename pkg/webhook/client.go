package webhook

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/kacperjurak/gooptcore"
	"github.com/kacperjurak/gooptcore/internal/logging"
	"github.com/kacperjurak/gooptcore/pkg/models"
)

// Client posts run summaries to a webhook URL
type Client struct {
	url        string
	httpClient *http.Client
	log        logging.Logger
	bufferPool sync.Pool
	wg         sync.WaitGroup
}

// NewClient creates a new webhook client with pooled connections
func NewClient(url string, log logging.Logger) *Client {
	if log == nil {
		log = logging.Noop()
	}
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
		ResponseHeaderTimeout: 30 * time.Second,
	}

	return &Client{
		url: url,
		log: log,
		httpClient: &http.Client{
			Timeout:   45 * time.Second,
			Transport: transport,
		},
		bufferPool: sync.Pool{
			New: func() interface{} {
				return bytes.NewBuffer(make([]byte, 0, 1024))
			},
		},
	}
}

// Send posts the summary of webhook.Result
func (c *Client) Send(ctx context.Context, webhook models.WebhookItem) error {
	payload := models.NewWebhookResponse(webhook)

	buf := c.bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer c.bufferPool.Put(buf)

	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		return fmt.Errorf("failed to marshal webhook data: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	c.log.Debug(ctx, "webhook sent",
		logging.String("id", payload.ID),
		logging.Int("status", resp.StatusCode),
		logging.Any("duration", time.Since(start)),
	)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook request failed with status %d", resp.StatusCode)
	}
	return nil
}

// Notify sends the run summary in the background. Failures are logged.
func (c *Client) Notify(ctx context.Context, res *gooptcore.Result) {
	item := models.WebhookItem{RequestID: logging.RequestIDFromContext(ctx), Result: res}
	if item.RequestID == "" {
		item.RequestID = res.ID
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx := context.WithoutCancel(ctx)
		if err := c.Send(ctx, item); err != nil {
			c.log.Warn(ctx, "webhook delivery failed", logging.String("run_id", res.ID), logging.Err(err))
		}
	}()
}

// Wait blocks until every pending notification has finished.
func (c *Client) Wait() {
	c.wg.Wait()
}
