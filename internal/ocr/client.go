// Package ocr is the HTTP client for the external text-recognition
// service. It implements the extraction collaborator port; all scoring
// and field parsing stays on the engine side.
package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"idswyft/internal/verification/extraction"
)

const defaultTimeout = 30 * time.Second

// Client calls the recognition service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(c *Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// New constructs a Client for the recognition service at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("ocr client: base URL is required")
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type recognizeRequest struct {
	Image string `json:"image"`
	Mode  string `json:"mode"`
}

type recognizeResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Recognize sends the image for text recognition. The confidence comes
// back on the recognizer's native 0-100 scale.
func (c *Client) Recognize(ctx context.Context, image []byte, mode extraction.RecognitionMode) (extraction.Recognition, error) {
	body, err := json.Marshal(recognizeRequest{
		Image: base64.StdEncoding.EncodeToString(image),
		Mode:  string(mode),
	})
	if err != nil {
		return extraction.Recognition{}, fmt.Errorf("encode recognize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/recognize", bytes.NewReader(body))
	if err != nil {
		return extraction.Recognition{}, fmt.Errorf("build recognize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return extraction.Recognition{}, fmt.Errorf("recognition request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Read a little of the body for the error message, never all of it.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return extraction.Recognition{}, fmt.Errorf("recognition service returned %d: %s", resp.StatusCode, snippet)
	}

	var out recognizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return extraction.Recognition{}, fmt.Errorf("decode recognize response: %w", err)
	}
	return extraction.Recognition{Text: out.Text, Confidence: out.Confidence}, nil
}
