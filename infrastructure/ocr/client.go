// Package ocr provides OCR service client infrastructure.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Client provides OCR text extraction services.
type Client interface {
	// ExtractText extracts text from image bytes (PNG-encoded).
	ExtractText(ctx context.Context, imageBytes []byte) (*TextResult, error)

	// ExtractTextFromImage extracts text from an image.Image.
	ExtractTextFromImage(ctx context.Context, img image.Image) (*TextResult, error)

	// IsHealthy returns true if the OCR service is available.
	IsHealthy() bool

	// Close releases resources.
	Close()
}

// TextResult contains the OCR extraction result.
type TextResult struct {
	Text       string
	Confidence float64
	ElapsedMs  float64
}

// ClientConfig contains configuration for the OCR client.
type ClientConfig struct {
	BaseURL        string
	Timeout        time.Duration
	HealthInterval time.Duration
	HealthTimeout  time.Duration
}

// DefaultClientConfig returns default OCR client configuration.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:        "http://localhost:8000",
		Timeout:        30 * time.Second,
		HealthInterval: 5 * time.Second,
		HealthTimeout:  3 * time.Second,
	}
}

// HTTPClient implements Client using HTTP calls to an OCR backend.
type HTTPClient struct {
	config       *ClientConfig
	httpClient   *http.Client
	healthy      atomic.Bool
	healthCtx    context.Context
	healthCancel context.CancelFunc
	healthWg     sync.WaitGroup
}

// NewHTTPClient creates a new HTTP-based OCR client.
func NewHTTPClient(config *ClientConfig) *HTTPClient {
	if config == nil {
		config = DefaultClientConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())

	client := &HTTPClient{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		healthCtx:    ctx,
		healthCancel: cancel,
	}

	// Perform initial health check
	client.performHealthCheck()

	// Start background health check loop
	client.healthWg.Add(1)
	go client.healthCheckLoop()

	return client
}

// ExtractText extracts text from image bytes.
func (c *HTTPClient) ExtractText(ctx context.Context, imageBytes []byte) (*TextResult, error) {
	if !c.IsHealthy() {
		return nil, fmt.Errorf("OCR service is currently unavailable")
	}

	requestURL := fmt.Sprintf("%s/v1/text", c.config.BaseURL)

	// Create request
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewReader(imageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	// Execute request
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	// Read response
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		// No text in the image is a valid outcome, not an error
		return &TextResult{Text: ""}, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	// Parse response
	var apiResp struct {
		Text  string `json:"text"`
		Debug struct {
			Confidence float64 `json:"confidence"`
			ElapsedMs  float64 `json:"elapsed_ms"`
		} `json:"debug"`
	}

	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &TextResult{
		Text:       apiResp.Text,
		Confidence: apiResp.Debug.Confidence,
		ElapsedMs:  apiResp.Debug.ElapsedMs,
	}, nil
}

// ExtractTextFromImage extracts text from an image.Image.
func (c *HTTPClient) ExtractTextFromImage(ctx context.Context, img image.Image) (*TextResult, error) {
	buf := new(bytes.Buffer)
	if err := png.Encode(buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return c.ExtractText(ctx, buf.Bytes())
}

// IsHealthy returns true if the OCR service is available.
func (c *HTTPClient) IsHealthy() bool {
	return c.healthy.Load()
}

// Close releases resources.
func (c *HTTPClient) Close() {
	if c.healthCancel != nil {
		c.healthCancel()
	}
	c.healthWg.Wait()
}

func (c *HTTPClient) healthCheckLoop() {
	defer c.healthWg.Done()

	ticker := time.NewTicker(c.config.HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.healthCtx.Done():
			return
		case <-ticker.C:
			c.performHealthCheck()
		}
	}
}

func (c *HTTPClient) performHealthCheck() {
	ctx, cancel := context.WithTimeout(c.healthCtx, c.config.HealthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/health", c.config.BaseURL), nil)
	if err != nil {
		c.healthy.Store(false)
		return
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.healthy.Store(false)
		return
	}
	defer resp.Body.Close()

	c.healthy.Store(resp.StatusCode == http.StatusOK)
}

// Ensure HTTPClient implements Client
var _ Client = (*HTTPClient)(nil)

// NoOpClient is a no-operation OCR client for testing or when OCR is disabled.
type NoOpClient struct{}

// NewNoOpClient creates a no-operation OCR client.
func NewNoOpClient() *NoOpClient {
	return &NoOpClient{}
}

func (c *NoOpClient) ExtractText(ctx context.Context, imageBytes []byte) (*TextResult, error) {
	return nil, fmt.Errorf("OCR is disabled")
}

func (c *NoOpClient) ExtractTextFromImage(ctx context.Context, img image.Image) (*TextResult, error) {
	return nil, fmt.Errorf("OCR is disabled")
}

func (c *NoOpClient) IsHealthy() bool {
	return false
}

func (c *NoOpClient) Close() {}

var _ Client = (*NoOpClient)(nil)
