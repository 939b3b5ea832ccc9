// Package detection talks to the remote drowsiness detection service.
package detection

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"

	"drowsyguard/internal/config"
	"drowsyguard/internal/logger"
	"drowsyguard/internal/model"
)

const (
	// DefaultTimeout bounds a round trip when the caller passes no timeout.
	DefaultTimeout = 8 * time.Second

	detectPath       = "/detect"
	maxResponseBytes = 16 << 20 // processed image may be a full-size JPEG
)

type detectRequest struct {
	Image string `json:"image"`
}

type detectResponse struct {
	DrowsinessDetected *bool  `json:"drowsiness_detected"`
	ProcessedImage     string `json:"processed_image,omitempty"`
}

// Client posts encoded frames to <base>/detect.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient builds a client for the configured detection service.
func NewClient(cfg *config.Config, logger *logger.Logger) *Client {
	return New(cfg.DetectionURL, nil, logger)
}

// New builds a client for baseURL. A nil httpClient uses a dedicated client
// without its own timeout; Detect bounds every call.
func New(baseURL string, httpClient *http.Client, log *logger.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if log == nil {
		log = logger.Discard()
	}
	for len(baseURL) > 0 && baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}
	return &Client{
		endpoint:   baseURL + detectPath,
		httpClient: httpClient,
		logger:     log,
	}
}

type outcome struct {
	result model.DetectionResult
	err    error
}

// Detect sends one payload and waits at most timeout for the verdict. It never
// blocks past the bound, even when the transport ignores cancellation; the
// request is cancelled and its goroutine finishes on its own. There are no
// retries.
func (c *Client) Detect(ctx context.Context, payload model.Payload, timeout time.Duration) (model.DetectionResult, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		res, err := c.roundTrip(ctx, payload)
		done <- outcome{result: res, err: err}
	}()

	select {
	case o := <-done:
		return o.result, o.err
	case <-ctx.Done():
		return model.DetectionResult{}, classifyContext(ctx.Err())
	}
}

func (c *Client) roundTrip(ctx context.Context, payload model.Payload) (model.DetectionResult, error) {
	body, err := sonic.Marshal(detectRequest{Image: payload.Image})
	if err != nil {
		return model.DetectionResult{}, &model.DetectionError{Kind: model.DetectionTransport, Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return model.DetectionResult{}, &model.DetectionError{Kind: model.DetectionTransport, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.DetectionResult{}, classifyTransport(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return model.DetectionResult{}, &model.DetectionError{Kind: model.DetectionServerError, Status: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return model.DetectionResult{}, classifyTransport(ctx, err)
	}

	var out detectResponse
	if err := sonic.Unmarshal(data, &out); err != nil {
		return model.DetectionResult{}, &model.DetectionError{Kind: model.DetectionTransport, Err: fmt.Errorf("malformed response: %w", err)}
	}
	if out.DrowsinessDetected == nil {
		return model.DetectionResult{}, &model.DetectionError{Kind: model.DetectionTransport, Err: errors.New("malformed response: missing drowsiness_detected")}
	}

	return model.DetectionResult{
		AlertTriggered: *out.DrowsinessDetected,
		AnnotatedImage: out.ProcessedImage,
	}, nil
}

func classifyTransport(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return classifyContext(ctxErr)
	}
	return &model.DetectionError{Kind: model.DetectionTransport, Err: err}
}

// Deadline expiry is a timeout; cancellation by the caller is a transport failure.
func classifyContext(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &model.DetectionError{Kind: model.DetectionTimeout, Err: err}
	}
	return &model.DetectionError{Kind: model.DetectionTransport, Err: err}
}
