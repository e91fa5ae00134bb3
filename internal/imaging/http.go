package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultTargetLabel is the label that marks a cat.
	DefaultTargetLabel = "cat"
	// DefaultMaxLabels caps the labels requested from the service.
	DefaultMaxLabels = 10
	// maxResponseSize caps the decoded response body.
	maxResponseSize = 1 << 20
)

var (
	// ErrEndpointRequired is returned when the analyzer has no endpoint.
	ErrEndpointRequired = errors.New("label detection endpoint is required")
	// ErrUnexpectedStatus is returned for non-2xx responses.
	ErrUnexpectedStatus = errors.New("unexpected response status")
)

// HTTPAnalyzer calls a label detection service over HTTP.
//
// The request body is {"image": base64, "min_confidence": float, "max_labels": int}
// and the response body is {"labels": [{"name": string, "confidence": float}]}.
// An image contains the target when a label whose lower-cased name contains the
// target label reports at least the confidence threshold.
type HTTPAnalyzer struct {
	// endpoint is the URL receiving POST requests.
	endpoint string
	// target is the lower-cased label to look for.
	target string
	// client sends the requests.
	client *http.Client
}

// HTTPOption configures an HTTPAnalyzer.
type HTTPOption func(*HTTPAnalyzer)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(a *HTTPAnalyzer) {
		if client != nil {
			a.client = client
		}
	}
}

// WithTargetLabel replaces DefaultTargetLabel.
func WithTargetLabel(label string) HTTPOption {
	return func(a *HTTPAnalyzer) {
		if label = strings.ToLower(strings.TrimSpace(label)); label != "" {
			a.target = label
		}
	}
}

type detectRequest struct {
	Image         string  `json:"image"`
	MinConfidence float32 `json:"min_confidence"`
	MaxLabels     int     `json:"max_labels"`
}

type detectResponse struct {
	Labels []struct {
		Name       string  `json:"name"`
		Confidence float32 `json:"confidence"`
	} `json:"labels"`
}

// NewHTTPAnalyzer creates an analyzer posting to endpoint.
func NewHTTPAnalyzer(endpoint string, opts ...HTTPOption) (*HTTPAnalyzer, error) {
	if endpoint == "" {
		return nil, ErrEndpointRequired
	}

	a := &HTTPAnalyzer{
		endpoint: endpoint,
		target:   DefaultTargetLabel,
		client:   http.DefaultClient,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

// ContainsTarget asks the service for labels of image.
// Client errors (4xx) are marked permanent so Resilient does not retry them.
func (a *HTTPAnalyzer) ContainsTarget(ctx context.Context, image []byte, confidenceThreshold float32) (bool, error) {
	payload, err := json.Marshal(detectRequest{
		Image:         base64.StdEncoding.EncodeToString(image),
		MinConfidence: confidenceThreshold,
		MaxLabels:     DefaultMaxLabels,
	})
	if err != nil {
		return false, backoff.Permanent(fmt.Errorf("encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(payload))
	if err != nil {
		return false, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("detect labels: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))

		err = fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return false, backoff.Permanent(err)
		}

		return false, err
	}

	var detected detectResponse
	if err = json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&detected); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}

	for _, label := range detected.Labels {
		if label.Confidence >= confidenceThreshold && strings.Contains(strings.ToLower(label.Name), a.target) {
			return true, nil
		}
	}

	return false, nil
}
