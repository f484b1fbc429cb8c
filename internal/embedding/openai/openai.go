// Package openai provides an OpenAI-compatible embeddings client.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"chronicle-rag/internal/domain"
	"chronicle-rag/internal/embedding"
	"chronicle-rag/internal/retry"
)

// DefaultBatchSize is how many texts go into one API request.
const DefaultBatchSize = 32

// Client calls an OpenAI-compatible /embeddings endpoint and normalizes the
// returned vectors to unit length.
type Client struct {
	baseURL   string
	apiKey    string
	model     string
	batchSize int
	dimension int
	client    *http.Client
	policy    retry.Policy
}

// Config configures the embeddings client. APIKeyEnv names the environment
// variable holding the key.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
	BatchSize int
}

// NewClient creates an embeddings client from the configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s: %w", cfg.APIKeyEnv, domain.ErrInvalidConfig)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	return &Client{
		baseURL:   cfg.BaseURL,
		apiKey:    key,
		model:     cfg.Model,
		batchSize: batch,
		client:    &http.Client{Timeout: timeout},
		policy: retry.Policy{
			MaxAttempts: 5,
			BaseDelay:   200 * time.Millisecond,
			MaxDelay:    5 * time.Second,
			Retryable:   retry.IsTransient,
		},
	}, nil
}

// Model returns the embedding model identifier.
func (c *Client) Model() string { return c.model }

// Dimension returns the vector dimension, known after the first Embed call.
func (c *Client) Dimension() int { return c.dimension }

// Embed returns one unit vector per input text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (c *Client) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	data, err := json.Marshal(embeddingsRequest{Model: c.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal embeddings request: %w", err)
	}

	var out embeddingsResponse
	err = c.policy.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(data))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("call embeddings api: %w", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("embeddings api: %s: %w", resp.Status, domain.ErrRateLimited)
		case resp.StatusCode >= 500:
			return fmt.Errorf("embeddings api: %s: %w", resp.Status, domain.ErrOverloaded)
		case resp.StatusCode >= 300:
			return fmt.Errorf("embeddings api returned %s", resp.Status)
		}

		out = embeddingsResponse{}
		return json.NewDecoder(resp.Body).Decode(&out)
	})
	if err != nil {
		return nil, err
	}
	if len(out.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings api returned %d vectors for %d texts", len(out.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, item := range out.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, fmt.Errorf("embeddings api returned out-of-range index %d", item.Index)
		}
		vectors[item.Index] = embedding.Normalize(item.Embedding)
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("embeddings api returned no vector for input %d", i)
		}
		if c.dimension == 0 {
			c.dimension = len(v)
		}
		if len(v) != c.dimension {
			return nil, fmt.Errorf("embeddings api returned mixed dimensions %d and %d", c.dimension, len(v))
		}
	}
	return vectors, nil
}
