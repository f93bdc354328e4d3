package agent

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
)

const (
	// DefaultBaseURL is the public DashScope endpoint.
	DefaultBaseURL = "https://dashscope.aliyuncs.com"

	defaultRequestTimeout = 60 * time.Second
	maxResponseSize       = 4 << 20 // 4MB
)

var errMissingOutputText = errors.New("response has no output.text")

// AppClient calls a Bailian (DashScope) application completion endpoint.
type AppClient struct {
	baseURL    string
	apiKey     string
	appID      string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// NewAppClient creates a client for one application. A non-positive
// timeout selects the default.
func NewAppClient(cfg AppConfig, timeout time.Duration, logger *slog.Logger) (*AppClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.APIKey == "" {
		return nil, errors.New("application api key is required")
	}
	if cfg.AppID == "" {
		return nil, errors.New("application id is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	return &AppClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		appID:      cfg.AppID,
		timeout:    timeout,
		httpClient: &http.Client{},
		logger:     logger.With("app_id", cfg.AppID),
	}, nil
}

type completionRequest struct {
	Input      completionInput `json:"input"`
	Parameters map[string]any  `json:"parameters"`
	Debug      map[string]any  `json:"debug"`
}

type completionInput struct {
	Prompt string `json:"prompt"`
}

// completionResponse covers both the success and the error body.
type completionResponse struct {
	Output *struct {
		Text         *string `json:"text"`
		FinishReason string  `json:"finish_reason"`
		SessionID    string  `json:"session_id"`
	} `json:"output"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

// Complete sends prompt to the application and validates the response.
func (c *AppClient) Complete(ctx context.Context, prompt string) (*Completion, error) {
	body, err := json.Marshal(completionRequest{
		Input:      completionInput{Prompt: prompt},
		Parameters: map[string]any{},
		Debug:      map[string]any{},
	})
	if err != nil {
		return nil, &CallError{Err: fmt.Errorf("marshaling request: %w", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/api/v1/apps/%s/completion", c.baseURL, c.appID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &CallError{Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Application call failed", "error", err)
		return nil, &CallError{Err: fmt.Errorf("executing request: %w", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &CallError{StatusCode: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
	}

	var parsed completionResponse
	decodeErr := json.Unmarshal(raw, &parsed)

	if resp.StatusCode != http.StatusOK {
		callErr := &CallError{StatusCode: resp.StatusCode, Code: parsed.Code, Message: parsed.Message, RequestID: parsed.RequestID}
		if decodeErr != nil || callErr.Message == "" {
			callErr.Message = strings.TrimSpace(string(raw))
		}
		c.logger.Error("Application returned error",
			"status", resp.StatusCode,
			"code", callErr.Code,
			"message", callErr.Message,
			"request_id", callErr.RequestID)
		return nil, callErr
	}
	if decodeErr != nil {
		return nil, &CallError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", decodeErr)}
	}
	if parsed.Output == nil || parsed.Output.Text == nil {
		return nil, &CallError{StatusCode: resp.StatusCode, RequestID: parsed.RequestID, Err: errMissingOutputText}
	}

	c.logger.Debug("Application call completed",
		"request_id", parsed.RequestID,
		"finish_reason", parsed.Output.FinishReason,
		"text_length", len(*parsed.Output.Text),
		"duration", time.Since(start))

	return &Completion{
		Text:      *parsed.Output.Text,
		RequestID: parsed.RequestID,
		SessionID: parsed.Output.SessionID,
	}, nil
}

// Generate returns only the completion text, for callers that do not need
// request metadata.
func (c *AppClient) Generate(ctx context.Context, prompt string) (string, error) {
	completion, err := c.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	return completion.Text, nil
}
