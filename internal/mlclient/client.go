// Package mlclient calls the ml-model service from the Database service.
package mlclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/saturnino-fabrica-de-software/faceauth/internal/biometrics"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/domain"
)

// Config holds the configuration for the ml-model client
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
	// RetryBackoff is the first retry delay; it doubles per attempt.
	RetryBackoff time.Duration
	Logger       *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		BaseURL:      "http://ml-model:8000",
		Timeout:      30 * time.Second,
		RetryCount:   2,
		RetryBackoff: time.Second,
	}
}

// EmbeddingResponse from POST /getEmbedding
type EmbeddingResponse struct {
	Message   string    `json:"message"`
	UserName  string    `json:"user_name"`
	IsSaved   bool      `json:"is_saved"`
	Embedding []float64 `json:"embedding"`
}

// Client is the HTTP client for the ml-model service
type Client struct {
	httpClient *http.Client
	config     Config
}

// NewClient creates a new ml-model client
func NewClient(config Config) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		config: config,
	}
}

// ImageFile is an uploaded image forwarded as multipart content.
type ImageFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// GetEmbedding forwards an enrollment image to POST /getEmbedding.
func (c *Client) GetEmbedding(ctx context.Context, image ImageFile, userName string) (*EmbeddingResponse, error) {
	body, contentType, err := embeddingForm(image, userName)
	if err != nil {
		return nil, err
	}

	var resp EmbeddingResponse
	if err := c.doRequestWithRetry(ctx, "/getEmbedding", contentType, body, &resp, isRetryable); err != nil {
		return nil, err
	}

	return &resp, nil
}

// Authenticate calls POST /authenticate with the probe image and the known users.
func (c *Client) Authenticate(ctx context.Context, imageBase64 string, known *biometrics.KnownEmbeddings, threshold float64) (*domain.AuthResult, error) {
	knownJSON, err := json.Marshal(known)
	if err != nil {
		return nil, fmt.Errorf("marshal known embeddings: %w", err)
	}

	form := url.Values{}
	form.Set("image", imageBase64)
	form.Set("known_face_embeddings", string(knownJSON))
	form.Set("threshold", strconv.FormatFloat(threshold, 'f', -1, 64))

	// Inference is not repeated: only failures to connect are retried.
	var resp domain.AuthResult
	err = c.doRequestWithRetry(ctx, "/authenticate", "application/x-www-form-urlencoded", []byte(form.Encode()), &resp, isConnectError)
	if err != nil {
		return nil, err
	}

	if !resp.IsAuthenticated {
		resp.UserName = nil
	}
	return &resp, nil
}

// Health calls GET /health once.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}

func embeddingForm(image ImageFile, userName string) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, image.Filename))
	header.Set("Content-Type", image.ContentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create image part: %w", err)
	}
	if _, err := part.Write(image.Data); err != nil {
		return nil, "", fmt.Errorf("write image part: %w", err)
	}
	if err := writer.WriteField("user_name", userName); err != nil {
		return nil, "", fmt.Errorf("write user_name: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}

	return buf.Bytes(), writer.FormDataContentType(), nil
}

// maxBackoff is the maximum backoff duration for retries
const maxBackoff = 30 * time.Second

func (c *Client) newBackoff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.config.RetryBackoff
	if b.InitialInterval <= 0 {
		b.InitialInterval = time.Second
	}
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = maxBackoff
	b.MaxElapsedTime = 0

	retries := c.config.RetryCount
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

// doRequestWithRetry retries failures accepted by retryable with exponential
// backoff, up to RetryCount extra attempts.
func (c *Client) doRequestWithRetry(ctx context.Context, path, contentType string, body []byte, result interface{}, retryable func(error) bool) error {
	operation := func() error {
		err := c.doRequest(ctx, path, contentType, body, result)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		c.config.Logger.WarnContext(ctx, "ml service request failed, retrying",
			slog.String("path", path),
			slog.String("error", err.Error()),
			slog.Duration("wait", wait),
		)
	}

	err := backoff.RetryNotify(operation, c.newBackoff(ctx), notify)
	if err != nil && ctx.Err() != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
		}
		return ctx.Err()
	}
	return err
}

func (c *Client) doRequest(ctx context.Context, path, contentType string, body []byte, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifyTransportError(err)
	}

	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	return nil
}
