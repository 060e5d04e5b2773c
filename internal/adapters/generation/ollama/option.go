package ollama

import (
	"net/http"
	"strings"
	"time"
)

// ClientOption mutates the client instance.
type ClientOption func(*Client)

func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/"); baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithTimeout bounds a whole request, stream included.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

func WithTemperature(temperature float64) ClientOption {
	return func(c *Client) { c.options.Temperature = temperature }
}

func WithSeed(seed int) ClientOption {
	return func(c *Client) { c.options.Seed = seed }
}
