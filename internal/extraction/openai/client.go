// Package openai extracts structured fields from document images through the
// OpenAI chat completions vision API.
package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"cruce/internal/extraction"
	"cruce/internal/extraction/metrics"
	"cruce/internal/validation/models"
	dErrors "cruce/pkg/domain-errors"
	"cruce/pkg/platform/circuit"
)

var tracer = otel.Tracer("cruce/internal/extraction/openai")

// Config holds the upstream connection settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	// MaxRetries is the total number of attempts per document.
	MaxRetries int
	RetryDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}
	if c.Timeout <= 0 {
		c.Timeout = 90 * time.Second
	}
	if c.MaxRetries < 1 {
		c.MaxRetries = 1
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 2 * time.Second
	}
	return c
}

// Client calls the vision API once per document image. A shared circuit
// breaker cuts the retry budget to a single probe while the upstream is
// failing.
type Client struct {
	cfg     Config
	http    *http.Client
	breaker *circuit.Breaker
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures optional client collaborators.
type Option func(*Client)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics attaches extraction metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithHTTPClient overrides the HTTP client, used by tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New builds a Client. The API key is required; everything else defaults.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "openai api key is required")
	}
	cfg = cfg.withDefaults()

	c := &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: circuit.New("openai-extraction"),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ExtractAll runs extraction for all five images in parallel. A document
// whose extraction fails comes back with every field not_found and its kind
// listed in Result.Degraded; the error return is reserved for total failure
// or cancellation.
func (c *Client) ExtractAll(ctx context.Context, batch extraction.Batch) (extraction.Result, error) {
	type outcome struct {
		payload documentPayload
		err     error
	}

	images := []struct {
		kind extraction.ImageKind
		data []byte
	}{
		{kind: extraction.ImageDoda, data: batch.Doda},
		{kind: extraction.ImageManifest, data: batch.Manifest},
		{kind: extraction.ImagePrefile, data: batch.Prefile},
		{kind: extraction.ImageTractorPlate, data: batch.TractorPlate},
		{kind: extraction.ImageTrailerPlate, data: batch.TrailerPlate},
	}

	outcomes := make(map[extraction.ImageKind]*outcome, len(images))
	for _, img := range images {
		outcomes[img.kind] = &outcome{}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, img := range images {
		slot := outcomes[img.kind]
		g.Go(func() error {
			slot.payload, slot.err = c.extractDocument(gctx, img.kind, img.data)
			if slot.err != nil && gctx.Err() != nil {
				// Cancellation aborts the whole batch.
				return gctx.Err()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return extraction.Result{}, dErrors.Wrap(err, dErrors.CodeTimeout, "extraction cancelled")
	}

	result := extraction.Result{}
	failed := 0
	for _, img := range images {
		slot := outcomes[img.kind]
		if slot.err != nil {
			failed++
			result.Degraded = append(result.Degraded, img.kind)
			c.logger.WarnContext(ctx, "document extraction degraded",
				slog.String("kind", string(img.kind)),
				slog.String("error", slot.err.Error()),
			)
		}
	}
	if failed == len(images) {
		return extraction.Result{}, dErrors.New(dErrors.CodeUnavailable, "extraction failed for every document")
	}

	field := func(kind extraction.ImageKind, name, label string) models.Field {
		slot := outcomes[kind]
		if slot.err != nil {
			return missingField(name, label)
		}
		return toField(slot.payload, name, label)
	}
	plate := func(kind extraction.ImageKind, name, label string) models.Field {
		slot := outcomes[kind]
		if slot.err != nil {
			return missingField(name, label)
		}
		f := toField(slot.payload, "plate_number", label)
		f.Name = name
		return f
	}

	result.Documents = models.DocumentSet{
		Doda: models.DodaData{
			IssueDate:     field(extraction.ImageDoda, "issue_date", "Issue date"),
			CustomsOffice: field(extraction.ImageDoda, "customs_office", "Customs office"),
		},
		Manifest: models.ManifestData{
			TractorPlate:  field(extraction.ImageManifest, "tractor_plate", "Tractor plate"),
			TrailerPlate:  field(extraction.ImageManifest, "trailer_plate", "Trailer plate"),
			OperatorName:  field(extraction.ImageManifest, "operator_name", "Operator name"),
			CustomsOffice: field(extraction.ImageManifest, "customs_office", "Customs office"),
			EntryNumber:   field(extraction.ImageManifest, "entry_number", "Entry number"),
			BrokerCode:    field(extraction.ImageManifest, "broker_code", "Broker code"),
			Description:   field(extraction.ImageManifest, "description", "Cargo description"),
			Quantity:      field(extraction.ImageManifest, "quantity", "Quantity"),
			Weight:        field(extraction.ImageManifest, "weight", "Weight"),
		},
		Prefile: models.PrefileData{
			EntryNumber: field(extraction.ImagePrefile, "entry_number", "Entry number"),
			BrokerCode:  field(extraction.ImagePrefile, "broker_code", "Broker code"),
			Description: field(extraction.ImagePrefile, "description", "Cargo description"),
			Quantity:    field(extraction.ImagePrefile, "quantity", "Quantity"),
			Weight:      field(extraction.ImagePrefile, "weight", "Weight"),
		},
		Plates: models.PlatePairData{
			Tractor: plate(extraction.ImageTractorPlate, "tractor_plate", "Tractor plate"),
			Trailer: plate(extraction.ImageTrailerPlate, "trailer_plate", "Trailer plate"),
		},
	}
	return result, nil
}

// extractDocument runs the retry loop for one image.
func (c *Client) extractDocument(ctx context.Context, kind extraction.ImageKind, image []byte) (documentPayload, error) {
	if len(image) == 0 {
		return documentPayload{}, dErrors.New(dErrors.CodeInvalidInput, "image is empty")
	}
	spec, ok := documentSpecs[kind]
	if !ok {
		return documentPayload{}, dErrors.Newf(dErrors.CodeInvariantViolation, "unknown image kind %q", kind)
	}
	prompt := buildPrompt(spec)

	ctx, span := tracer.Start(ctx, "extraction.document",
		trace.WithAttributes(attribute.String("document", string(kind))),
	)
	defer span.End()

	attempts := c.cfg.MaxRetries
	if c.breaker.IsOpen() {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return documentPayload{}, ctx.Err()
			case <-time.After(c.cfg.RetryDelay):
			}
		}

		start := time.Now()
		content, err := c.callOnce(ctx, prompt, image)
		c.metrics.ObserveCallLatency(string(kind), time.Since(start))

		if err != nil {
			lastErr = err
			if _, change := c.breaker.RecordFailure(); change.Opened {
				c.metrics.IncrementBreakerTransition("opened")
				c.logger.Warn("extraction breaker opened",
					slog.String("breaker", c.breaker.Name()),
					slog.String("error", err.Error()),
				)
			}
			if !retryable(err) {
				break
			}
			continue
		}
		if _, change := c.breaker.RecordSuccess(); change.Closed {
			c.metrics.IncrementBreakerTransition("closed")
			c.logger.Info("extraction breaker closed",
				slog.String("breaker", c.breaker.Name()),
			)
		}

		payload, perr := parsePayload(content)
		if perr != nil {
			// A malformed answer is worth one more round trip.
			lastErr = perr
			continue
		}
		c.metrics.IncrementCallOutcome(string(kind), "ok")
		return payload, nil
	}

	span.RecordError(lastErr)
	c.metrics.IncrementCallOutcome(string(kind), "degraded")
	return documentPayload{}, lastErr
}

// retryable reports whether another attempt could help. Client-side request
// mistakes are final; timeouts, rate limits, and server errors are not.
func retryable(err error) bool {
	var apiErr *apiStatusError
	if errors.As(err, &apiErr) {
		return apiErr.status == http.StatusTooManyRequests || apiErr.status >= 500
	}
	return true
}

// apiStatusError carries the upstream HTTP status for retry decisions.
type apiStatusError struct {
	status  int
	message string
}

func (e *apiStatusError) Error() string {
	return fmt.Sprintf("openai: status %d: %s", e.status, e.message)
}

// callOnce performs a single chat completions request and returns the raw
// answer content.
func (c *Client) callOnce(ctx context.Context, prompt string, image []byte) (string, error) {
	body := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &imageURL{
					URL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image),
				}},
			},
		}},
		MaxTokens:      1024,
		Temperature:    0,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(encoded))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "call openai")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "read response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", &apiStatusError{status: resp.StatusCode, message: truncate(string(raw), 200)}
	}

	var decoded chatResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "decode response")
	}
	if len(decoded.Choices) == 0 {
		return "", dErrors.New(dErrors.CodeUnavailable, "response has no choices")
	}
	return decoded.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// Wire types for the chat completions API.

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}
