// Package ollama sends generation requests to an Ollama server and hands the
// streamed newline-delimited JSON reply back to the caller unparsed.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bnema/chatsim/internal/domain"
	"github.com/bnema/chatsim/internal/ports"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultTimeout = 120 * time.Second

	generateEndpoint = "/api/generate"
	maxErrorBody     = 4 << 10
)

type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	options    Options
	logger     *zap.Logger
}

var _ ports.Generator = (*Client)(nil)

func NewClient(model string, logger *zap.Logger, options ...ClientOption) (*Client, error) {
	if model == "" {
		return nil, errors.New("model is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := &Client{
		baseURL:    DefaultBaseURL,
		model:      model,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     logger,
	}
	for _, option := range options {
		option(client)
	}

	return client, nil
}

// Generate starts a streaming generation. The returned body yields one JSON
// record per line and must be closed by the caller.
func (c *Client) Generate(ctx context.Context, req domain.GenerationRequest) (io.ReadCloser, error) {
	body := ToRequest(req, c.model)
	if c.options != (Options{}) {
		opts := c.options
		body.Options = &opts
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal generate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+generateEndpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create generate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/x-ndjson")

	started := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send generate request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("generate request failed with status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	c.logger.Debug("generation stream opened",
		zap.String("model", c.model),
		zap.Int("messages", len(req.Messages)),
		zap.Duration("latency", time.Since(started)))

	return resp.Body, nil
}
