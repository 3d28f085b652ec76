package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jwebster45206/boardgame-console/pkg/ruledoc"
)

// ErrorResponse is the error body returned by the services.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HTTPClient implements Gateway over JSON/HTTP.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

var _ Gateway = (*HTTPClient)(nil)

// NewHTTPClient creates a client for the service at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration, logger *slog.Logger) (*HTTPClient, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid gateway base URL: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}, nil
}

// BaseURL returns the service address requests are sent to.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// Ping checks the service health endpoint.
func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+PathHealth, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return &TransportError{Op: "health", Err: err}
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	if resp.StatusCode != http.StatusOK {
		return &TransportError{Op: "health", Status: resp.StatusCode}
	}
	return nil
}

func (c *HTTPClient) GenerateRules(ctx context.Context, req GenerateRequest) (*ruledoc.GameDocument, error) {
	body, err := c.post(ctx, OpGenerateRules, PathGenerateRules, req)
	if err != nil {
		return nil, err
	}
	return decodeDocument(OpGenerateRules, body)
}

func (c *HTTPClient) OptimizeRules(ctx context.Context, req OptimizeRequest) (*ruledoc.GameDocument, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	body, err := c.post(ctx, OpOptimizeRules, PathOptimizeRules, req)
	if err != nil {
		return nil, err
	}
	return decodeDocument(OpOptimizeRules, body)
}

func (c *HTTPClient) StartGameplay(ctx context.Context, req StartRequest) (*StartResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	body, err := c.post(ctx, OpStartGameplay, PathStartGameplay, req)
	if err != nil {
		return nil, err
	}
	next, err := nextAction(OpStartGameplay, body)
	if err != nil {
		return nil, err
	}
	return &StartResponse{NextAction: next, Raw: body}, nil
}

func (c *HTTPClient) PlayRound(ctx context.Context, req RoundRequest) (*RoundResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	body, err := c.post(ctx, OpPlayRound, PathPlayRound, req)
	if err != nil {
		return nil, err
	}
	next, err := nextAction(OpPlayRound, body)
	if err != nil {
		return nil, err
	}

	resp := &RoundResponse{NextAction: next, Raw: body}
	// A missing or non-list history is treated as no history.
	if h := body.Get("history"); h.IsSequence() {
		resp.History = h.Items
	}
	return resp, nil
}

// post sends payload as JSON and returns the decoded response body.
func (c *HTTPClient) post(ctx context.Context, op, path string, payload any) (*ruledoc.Node, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to marshal request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("Gateway request failed", "op", op, "error", err)
		return nil, &TransportError{Op: op, Err: err}
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("Failed to read gateway response", "op", op, "error", err)
		return nil, &TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	c.logger.Debug("Gateway request completed",
		"op", op,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
		"response_bytes", len(body))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errorResp ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err != nil || errorResp.Error == "" {
			return nil, &TransportError{Op: op, Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		}
		return nil, &TransportError{Op: op, Status: resp.StatusCode, Message: errorResp.Error}
	}

	node, err := ruledoc.ParseJSON(body)
	if err != nil {
		return nil, &MalformedResponseError{Op: op, Reason: "body is not valid JSON", Err: err}
	}
	return node, nil
}

func decodeDocument(op string, body *ruledoc.Node) (*ruledoc.GameDocument, error) {
	doc, err := ruledoc.DocumentFromNode(body)
	if err != nil {
		return nil, &MalformedResponseError{Op: op, Reason: "invalid game document", Err: err}
	}
	return doc, nil
}

func nextAction(op string, body *ruledoc.Node) (*ruledoc.Node, error) {
	next := body.Get("next_action")
	if !next.IsMapping() {
		return nil, &MalformedResponseError{Op: op, Reason: "next_action is missing or not an object"}
	}
	return next, nil
}
