package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/dirsoacha/resilience-api/internal/config"
)

const (
	DefaultHost       = "https://ollama.com"
	DefaultModel      = "gpt-oss:120b-cloud"
	MaxSearchResults  = 10
	placeholderAPIKey = "your_api_key_here"
)

var (
	ErrUnauthorized  = errors.New("ollama api key rejected")
	ErrNotConfigured = errors.New("ollama api key not configured")
)

// APIError is a non-2xx answer from the Ollama API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ollama returned status %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	host   string
	apiKey string
	model  string
	http   *retryablehttp.Client
}

func NewClient(cfg config.OllamaConfig) *Client {
	rc := retryablehttp.NewClient()
	rc.Logger = slog.Default()
	rc.RetryMax = cfg.RetryMax
	rc.HTTPClient.Timeout = cfg.Timeout
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	host := strings.TrimRight(cfg.Host, "/")
	if host == "" {
		host = DefaultHost
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	apiKey := cfg.APIKey
	if apiKey == placeholderAPIKey {
		apiKey = ""
	}
	if apiKey == "" {
		slog.Warn("ollama api key not configured, set OLLAMA_API_KEY")
	}

	return &Client{host: host, apiKey: apiKey, model: model, http: rc}
}

func (c *Client) Configured() bool {
	return c.apiKey != ""
}

func (c *Client) Model() string {
	return c.model
}

// Chat sends a non-streaming chat request. An empty model uses the client default.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if req.Model == "" {
		req.Model = c.model
	}
	req.Stream = false

	var out ChatResponse
	if err := c.postJSON(ctx, "/api/chat", req, &out); err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, &APIError{StatusCode: http.StatusOK, Message: out.Error}
	}
	return &out, nil
}

// ChatStream sends a streaming chat request and calls fn with every content
// chunk until the model reports done. Returning an error from fn aborts the stream.
func (c *Client) ChatStream(ctx context.Context, req ChatRequest, fn func(chunk string) error) error {
	if req.Model == "" {
		req.Model = c.model
	}
	req.Stream = true

	resp, err := c.do(ctx, "/api/chat", req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var part ChatResponse
		if err := json.Unmarshal(line, &part); err != nil {
			return fmt.Errorf("failed to decode stream chunk: %w", err)
		}
		if part.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: part.Error}
		}
		if part.Message.Content != "" {
			if err := fn(part.Message.Content); err != nil {
				return err
			}
		}
		if part.Done {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading stream: %w", err)
	}
	return nil
}

// WebSearch queries the hosted search API. maxResults is clamped to 1..10.
func (c *Client) WebSearch(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	if maxResults < 1 {
		maxResults = 5
	}
	if maxResults > MaxSearchResults {
		maxResults = MaxSearchResults
	}

	var out searchResponse
	if err := c.postJSON(ctx, "/api/web_search", searchRequest{Query: query, MaxResults: maxResults}, &out); err != nil {
		return nil, err
	}
	if out.Results == nil {
		out.Results = []SearchResult{}
	}
	return out.Results, nil
}

func (c *Client) WebFetch(ctx context.Context, url string) (*FetchResult, error) {
	var out FetchResult
	if err := c.postJSON(ctx, "/api/web_fetch", fetchRequest{URL: url}, &out); err != nil {
		return nil, err
	}
	if out.Links == nil {
		out.Links = []string{}
	}
	return &out, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	resp, err := c.do(ctx, path, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// do posts in as JSON and returns the response when the status is 2xx.
func (c *Client) do(ctx context.Context, path string, in any) (*http.Response, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := retryablehttp.NewRequest(http.MethodPost, c.host+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := errorMessage(raw)
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, fmt.Errorf("%w: %s", ErrUnauthorized, msg)
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	return resp, nil
}

// errorMessage pulls "error" out of a JSON error body, falling back to the raw text.
func errorMessage(raw []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(raw))
}
