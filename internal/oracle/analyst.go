package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	messagePath           = "/api/v2/cortex/analyst/message"
	requestIDHeader       = "X-Snowflake-Request-Id"
	defaultAnalystTimeout = 30 * time.Second
	maxErrorBodyBytes     = 8 * 1024
	maxResponseBodyBytes  = 16 * 1024 * 1024
)

type AnalystConfig struct {
	BaseURL   string
	Database  string
	Schema    string
	Stage     string
	ModelFile string
	Timeout   time.Duration
}

// AnalystClient is the HTTP implementation of Client against the Cortex
// Analyst message endpoint.
type AnalystClient struct {
	baseURL   string
	modelFile string
	tokens    TokenProvider
	client    *http.Client
}

func NewAnalystClient(cfg AnalystConfig, tokens TokenProvider) (*AnalystClient, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token provider is required")
	}
	for _, part := range []struct{ name, value string }{
		{"database", cfg.Database},
		{"schema", cfg.Schema},
		{"stage", cfg.Stage},
		{"model file", cfg.ModelFile},
	} {
		if strings.TrimSpace(part.value) == "" {
			return nil, fmt.Errorf("semantic model %s is required", part.name)
		}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultAnalystTimeout
	}
	return &AnalystClient{
		baseURL:   strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		modelFile: fmt.Sprintf("@%s.%s.%s/%s", cfg.Database, cfg.Schema, cfg.Stage, cfg.ModelFile),
		tokens:    tokens,
		client:    &http.Client{Timeout: timeout},
	}, nil
}

// SemanticModelFile returns the stage reference sent with every request.
func (c *AnalystClient) SemanticModelFile() string {
	return c.modelFile
}

func (c *AnalystClient) Ask(ctx context.Context, prompt string) (Reply, error) {
	payload := map[string]any{
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]string{
					{"type": "text", "text": prompt},
				},
			},
		},
		"semantic_model_file": c.modelFile,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Reply{}, fmt.Errorf("marshal oracle payload: %w", err)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return Reply{}, fmt.Errorf("resolve oracle token: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagePath, bytes.NewReader(body))
	if err != nil {
		return Reply{}, fmt.Errorf("build oracle request: %w", err)
	}
	httpReq.Header.Set("Authorization", fmt.Sprintf("Snowflake Token=%q", token))
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Reply{}, fmt.Errorf("send oracle request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	requestID := resp.Header.Get(requestIDHeader)
	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return Reply{}, &Error{Status: resp.StatusCode, Body: string(raw), RequestID: requestID}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return Reply{}, fmt.Errorf("read oracle response body: %w", err)
	}

	var parsed struct {
		Message struct {
			Content []Block `json:"content"`
		} `json:"message"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Reply{}, fmt.Errorf("decode oracle response: %w", err)
	}

	return Reply{Content: parsed.Message.Content, RequestID: requestID}, nil
}
