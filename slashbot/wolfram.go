package slashbot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const wolframDefaultBaseURL = "https://api.wolframalpha.com"

// WolframClient queries the Wolfram Alpha short answers API, which
// returns a single plain-text line per query.
type WolframClient struct {
	appID      string
	baseURL    string
	httpClient *http.Client
}

func NewWolframClient(cfg *WolframConfig, httpClient *http.Client) *WolframClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = wolframDefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &WolframClient{
		appID:      cfg.AppID,
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// Enabled reports whether an app ID is configured.
func (c *WolframClient) Enabled() bool {
	return c != nil && c.appID != ""
}

// Query asks Wolfram Alpha for a short answer. A 501 response means
// Wolfram could not interpret the query, which is reported as-is so
// the user sees something actionable.
func (c *WolframClient) Query(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("appid", c.appID)
	params.Set("i", query)
	params.Set("units", "metric")

	endpoint := fmt.Sprintf("%s/v1/result?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("wolfram request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("error reading wolfram response: %w", err)
	}
	answer := strings.TrimSpace(string(body))

	switch resp.StatusCode {
	case http.StatusOK:
		return answer, nil
	case http.StatusNotImplemented:
		return "", fmt.Errorf("wolfram could not interpret the query: %s", answer)
	default:
		return "", fmt.Errorf("wolfram returned %d: %s", resp.StatusCode, answer)
	}
}
