package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"product-drafts-service/internal/encoder"
)

// ErrTransportFailure is matched by every error the catalog client returns
// for a network problem or a non-success response.
var ErrTransportFailure = errors.New("transport failure")

// maxResponseBody bounds how much of a catalog response is read
const maxResponseBody = 64 << 10

// TransportError carries a message that can be shown to the user as is
type TransportError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("catalog service returned %d: %s", e.StatusCode, e.Message)
	}
	return e.Message
}

func (e *TransportError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrTransportFailure, e.Err}
	}
	return []error{ErrTransportFailure}
}

// CreatedProduct is what the catalog backend returns for a new product
type CreatedProduct struct {
	ID      string
	Message string
}

// catalogResponse is the envelope returned by the catalog backend
type catalogResponse struct {
	Success *bool           `json:"success,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   json.RawMessage `json:"error,omitempty"`
}

type catalogProductID struct {
	ID      json.RawMessage `json:"id"`
	MongoID json.RawMessage `json:"_id"`
}

// parseProductID accepts the id as a JSON string or number
func parseProductID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return "", fmt.Errorf("product id %s is neither a string nor a number", raw)
	}
	return n.String(), nil
}

// CatalogClient posts encoded drafts to the product catalog backend
type CatalogClient struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      *logrus.Entry
}

// CatalogClientConfig configures the catalog client
type CatalogClientConfig struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 disables limiting
}

// NewCatalogClient creates a new catalog backend client
func NewCatalogClient(cfg CatalogClientConfig, logger *logrus.Logger) *CatalogClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = os.Getenv("CATALOG_SERVICE_URL")
	}
	if baseURL == "" {
		baseURL = "http://catalog-service:8080"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	if logger == nil {
		logger = logrus.New()
	}

	return &CatalogClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		rateLimiter: rate.NewLimiter(limit, 1),
		logger:      logger.WithField("component", "catalog_client"),
	}
}

// CreateProduct sends one multipart POST to endpoint and returns the id the
// backend generated.
func (c *CatalogClient) CreateProduct(ctx context.Context, endpoint, tenantID string, payload *encoder.Payload) (*CreatedProduct, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, &TransportError{Message: "request was cancelled before it was sent", Err: err}
	}

	// Rendered in memory so Content-Length is set.
	body, contentType, err := payload.Body()
	if err != nil {
		return nil, fmt.Errorf("failed to encode multipart body: %w", err)
	}

	url := c.baseURL + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if tenantID != "" {
		req.Header.Set("X-Tenant-ID", tenantID)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).WithField("url", url).Warn("Catalog request failed")
		return nil, &TransportError{Message: "could not reach the catalog service, please try again", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Message: "failed to read catalog response", Err: err}
	}

	c.logger.WithFields(logrus.Fields{
		"url":         url,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Catalog request completed")

	var envelope catalogResponse
	decodeErr := json.Unmarshal(raw, &envelope)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := envelope.message()
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &TransportError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Message: "catalog service returned an unreadable response", Err: decodeErr}
	}
	if envelope.Success != nil && !*envelope.Success {
		msg := envelope.message()
		if msg == "" {
			msg = "catalog service rejected the product"
		}
		return nil, &TransportError{StatusCode: resp.StatusCode, Message: msg}
	}

	var ids catalogProductID
	if len(envelope.Data) > 0 && string(envelope.Data) != "null" {
		if err := json.Unmarshal(envelope.Data, &ids); err != nil {
			c.logger.WithError(err).WithField("status", resp.StatusCode).Error("Catalog accepted the product but its data could not be read")
			return nil, &TransportError{StatusCode: resp.StatusCode, Message: "catalog service returned unreadable product data", Err: err}
		}
	}
	id, err := parseProductID(ids.ID)
	if err == nil && id == "" {
		id, err = parseProductID(ids.MongoID)
	}
	if err != nil {
		c.logger.WithError(err).WithField("status", resp.StatusCode).Error("Catalog accepted the product but its id could not be read")
		return nil, &TransportError{StatusCode: resp.StatusCode, Message: "catalog service returned an unreadable product id", Err: err}
	}
	if id == "" {
		return nil, &TransportError{StatusCode: resp.StatusCode, Message: "catalog service did not return a product id"}
	}

	return &CreatedProduct{ID: id, Message: envelope.Message}, nil
}

// message returns the readable part of the envelope. The error member is
// either a plain string or an object with its own message.
func (r catalogResponse) message() string {
	if len(r.Error) > 0 {
		var s string
		if err := json.Unmarshal(r.Error, &s); err == nil && s != "" {
			return s
		}
		var obj struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(r.Error, &obj); err == nil && obj.Message != "" {
			return obj.Message
		}
	}
	return r.Message
}
