// Package http talks to the explanation service over HTTP: the client side
// used by the viewer and an echo server that exposes any enveye.Explainer.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"github.com/usertbera/enveye"
	"go.uber.org/zap"
)

// ExplainPath is the endpoint of the explanation service.
const ExplainPath = "/explain"

// maxResponseSize bounds the explanation response body.
const maxResponseSize = 1 << 20

// ErrMalformedResponse is returned when a 2xx response does not carry an
// "explanation" string.
var ErrMalformedResponse = errors.New("malformed explanation response")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("explanation service returned status %d", e.Code)
	}
	return fmt.Sprintf("explanation service returned status %d: %s", e.Code, e.Body)
}

// Unwrap makes every StatusError match enveye.ErrRequestFailed.
func (e *StatusError) Unwrap() error {
	return enveye.ErrRequestFailed
}

// Compile-time interface verification.
var _ enveye.Explainer = (*Explainer)(nil)

// Explainer is an enveye.Explainer backed by a remote explanation service.
type Explainer struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// ExplainerOption configures an Explainer.
type ExplainerOption func(*Explainer)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) ExplainerOption {
	return func(e *Explainer) {
		e.client = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ExplainerOption {
	return func(e *Explainer) {
		e.logger = l
	}
}

// NewExplainer creates an Explainer posting to baseURL + ExplainPath.
func NewExplainer(baseURL string, opts ...ExplainerOption) *Explainer {
	e := &Explainer{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 2 * time.Minute},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Explain posts the explanation context and returns the explanation text.
// Every failure wraps enveye.ErrRequestFailed.
func (e *Explainer) Explain(ctx context.Context, ec enveye.ExplanationContext) (string, error) {
	payload, err := EncodeRequest(ec)
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %w", enveye.ErrRequestFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+ExplainPath, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: create request: %w", enveye.ErrRequestFailed, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", enveye.ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %w", enveye.ErrRequestFailed, err)
	}

	e.logger.Debug("explanation response",
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return DecodeResponse(body)
}

// EncodeRequest builds the /explain request body:
//
//	{"diff": <diff>, "error_message": s, "error_screenshot": s|null, "log_path": s}
//
// The diff is embedded verbatim when it was parsed from a document.
func EncodeRequest(ec enveye.ExplanationContext) ([]byte, error) {
	diff := []byte(`{}`)
	if ec.Diff != nil {
		raw, err := json.Marshal(ec.Diff)
		if err != nil {
			return nil, fmt.Errorf("marshal diff: %w", err)
		}
		diff = raw
	}

	body, err := sjson.SetRawBytes([]byte(`{}`), "diff", diff)
	if err != nil {
		return nil, err
	}
	if body, err = sjson.SetBytes(body, "error_message", ec.ErrorMessage); err != nil {
		return nil, err
	}
	if ec.ErrorScreenshot != nil {
		body, err = sjson.SetBytes(body, "error_screenshot", ec.ErrorScreenshot.DataURI)
	} else {
		body, err = sjson.SetRawBytes(body, "error_screenshot", []byte("null"))
	}
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(body, "log_path", ec.LogPath)
}

// DecodeResponse extracts the explanation text from a response body.
func DecodeResponse(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("%w: %w: invalid JSON", enveye.ErrRequestFailed, ErrMalformedResponse)
	}
	explanation := gjson.GetBytes(body, "explanation")
	if explanation.Type != gjson.String {
		if msg := gjson.GetBytes(body, "error"); msg.Exists() {
			return "", fmt.Errorf("%w: %w: service error: %s", enveye.ErrRequestFailed, ErrMalformedResponse, msg.String())
		}
		return "", fmt.Errorf("%w: %w: no explanation string", enveye.ErrRequestFailed, ErrMalformedResponse)
	}
	return explanation.String(), nil
}
