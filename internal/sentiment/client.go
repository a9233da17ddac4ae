package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/raaihank/pii-anonymizer/internal/logger"
	"go.uber.org/zap"
)

const maxResponseBytes = 1 << 20

// HTTPClient calls a JSON scoring endpoint: it posts {"text": ...} and expects
// {"label": ..., "score": ...} back.
type HTTPClient struct {
	url    string
	client *http.Client
	logger *logger.Logger
}

// NewHTTPClient creates a client for the scoring endpoint at url
func NewHTTPClient(url string, timeout time.Duration, log *logger.Logger) *HTTPClient {
	return &HTTPClient{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: log.WithComponent("sentiment"),
	}
}

type scoreRequest struct {
	Text string `json:"text"`
}

// Score implements Scorer
func (c *HTTPClient) Score(ctx context.Context, text string) (*Result, error) {
	body, err := json.Marshal(scoreRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrScoring, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrScoring, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScoring, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, fmt.Errorf("%w: scorer returned status %d", ErrScoring, resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrScoring, err)
	}
	if result.Label == "" {
		return nil, fmt.Errorf("%w: response has no label", ErrScoring)
	}

	c.logger.Debug("Text scored",
		zap.String("label", result.Label),
		zap.Duration("duration", time.Since(start)),
	)

	return &result, nil
}
