package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ErrUnavailable covers every failure to get a usable answer from the
// platform: transport errors, timeouts, non-2xx statuses, undecodable bodies
// and top-level GraphQL errors.
var ErrUnavailable = errors.New("commerce platform unavailable")

const (
	accessTokenHeader = "X-Shopify-Storefront-Access-Token"
	defaultAPIVersion = "2024-01"
	maxErrorBody      = 4 << 10
)

type Config struct {
	Domain     string
	Token      string
	APIVersion string
	Timeout    time.Duration
	// Endpoint overrides the URL derived from Domain and APIVersion.
	Endpoint string
}

// Client talks to the Storefront GraphQL API.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		if cfg.Domain == "" {
			return nil, errors.New("storefront domain is required")
		}
		version := cfg.APIVersion
		if version == "" {
			version = defaultAPIVersion
		}
		endpoint = fmt.Sprintf("https://%s/api/%s/graphql.json", strings.TrimSuffix(cfg.Domain, "/"), version)
	}
	if cfg.Token == "" {
		return nil, errors.New("storefront access token is required")
	}

	return &Client{
		endpoint: endpoint,
		token:    cfg.Token,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}, nil
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// do posts one GraphQL operation and decodes its data into out.
func (c *Client) do(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to marshal graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(accessTokenHeader, c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.WarnContext(ctx, "storefront api returned non-2xx status",
			"status", resp.StatusCode, "body", string(snippet))
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var gqlResp graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&gqlResp); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", ErrUnavailable, err)
	}
	if len(gqlResp.Errors) > 0 {
		msgs := make([]string, 0, len(gqlResp.Errors))
		for _, e := range gqlResp.Errors {
			msgs = append(msgs, e.Message)
		}
		return fmt.Errorf("%w: graphql errors: %s", ErrUnavailable, strings.Join(msgs, ", "))
	}
	if len(gqlResp.Data) == 0 || string(gqlResp.Data) == "null" {
		return fmt.Errorf("%w: empty response data", ErrUnavailable)
	}
	if err := json.Unmarshal(gqlResp.Data, out); err != nil {
		return fmt.Errorf("%w: failed to decode response data: %v", ErrUnavailable, err)
	}
	return nil
}
