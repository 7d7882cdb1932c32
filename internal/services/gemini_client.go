package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	pkgerr "github.com/verdantiq/labelproof-backend/internal/pkg/errors"
	"github.com/verdantiq/labelproof-backend/internal/platform/envutil"
	"github.com/verdantiq/labelproof-backend/internal/platform/logger"
)

// GeminiClient is the single-shot vision/LLM capability: every call embeds
// all needed context in the instruction, no streaming, no multi-turn state.
type GeminiClient interface {
	GenerateJSON(ctx context.Context, instruction string, schema map[string]any) (json.RawMessage, error)
	GenerateJSONWithImage(ctx context.Context, instruction string, image []byte, mimeType string, schema map[string]any) (json.RawMessage, error)
}

type geminiClient struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	maxRetries int
}

func NewGeminiClient(log *logger.Logger) (GeminiClient, error) {
	serviceLog := log.With("service", "GeminiClient")

	apiKey := envutil.GetEnv("GEMINI_API_KEY", "", log)
	if apiKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY")
	}
	baseURL := envutil.GetEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com", log)
	model := envutil.GetEnv("GEMINI_MODEL", "gemini-2.0-flash", log)

	// Vision extraction on large label images can run long.
	timeoutSec := envutil.GetEnvAsInt("GEMINI_TIMEOUT_SECONDS", 180, log)
	maxRetries := envutil.GetEnvAsInt("GEMINI_MAX_RETRIES", 4, log)

	return &geminiClient{
		log:        serviceLog,
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries: maxRetries,
	}, nil
}

type geminiHTTPError struct {
	StatusCode int
	Body       string
}

func (e *geminiHTTPError) Error() string {
	return fmt.Sprintf("gemini http %d: %s", e.StatusCode, e.Body)
}

func isRetryableHTTP(code int) bool {
	if code == 408 || code == 429 {
		return true
	}
	return code >= 500 && code <= 599
}

func isRetryableErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := err.Error()
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "EOF") {
		return true
	}
	var httpErr *geminiHTTPError
	if errors.As(err, &httpErr) {
		return isRetryableHTTP(httpErr.StatusCode)
	}
	return false
}

func jitterSleep(base time.Duration) time.Duration {
	// +/- 20%
	if base <= 0 {
		return 0
	}
	delta := base.Seconds() * 0.2
	low := base.Seconds() - delta
	v := low + rand.Float64()*(2*delta)
	return time.Duration(v * float64(time.Second))
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type generateContentRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		Temperature      float64        `json:"temperature"`
		ResponseMimeType string         `json:"responseMimeType,omitempty"`
		ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
	} `json:"generationConfig"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

func (c *geminiClient) doOnce(ctx context.Context, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, nil, err
	}
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &geminiHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *geminiClient) do(ctx context.Context, body any, out *generateContentResponse) error {
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, body)
		if err == nil {
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("gemini decode error: %w; raw=%s", uErr, string(raw))
			}
			return nil
		}
		if !isRetryableErr(err) {
			return err
		}
		if attempt == c.maxRetries {
			return err
		}

		sleepFor := backoff
		if resp != nil {
			ra := strings.TrimSpace(resp.Header.Get("Retry-After"))
			if ra != "" {
				if secs, parseErr := strconv.Atoi(ra); parseErr == nil && secs > 0 {
					sleepFor = time.Duration(secs) * time.Second
				}
			}
		}
		if sleepFor > 10*time.Second {
			sleepFor = 10 * time.Second
		}
		sleepFor = jitterSleep(sleepFor)

		c.log.Warn("Gemini request retrying",
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		time.Sleep(sleepFor)
		backoff *= 2
	}
	return fmt.Errorf("unreachable retry loop")
}

func (c *geminiClient) generate(ctx context.Context, parts []geminiPart, schema map[string]any) (json.RawMessage, error) {
	req := generateContentRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
	}
	req.GenerationConfig.Temperature = 0.2
	req.GenerationConfig.ResponseMimeType = "application/json"
	req.GenerationConfig.ResponseSchema = schema

	var resp generateContentResponse
	if err := c.do(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerr.ErrUpstream, err)
	}
	if resp.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("%w: prompt blocked: %s", pkgerr.ErrUpstream, resp.PromptFeedback.BlockReason)
	}

	var text string
	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			text += p.Text
		}
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty model response", pkgerr.ErrUpstream)
	}
	if !json.Valid([]byte(text)) {
		return nil, fmt.Errorf("%w: model response is not valid JSON", pkgerr.ErrUpstream)
	}
	return json.RawMessage(text), nil
}

func (c *geminiClient) GenerateJSON(ctx context.Context, instruction string, schema map[string]any) (json.RawMessage, error) {
	return c.generate(ctx, []geminiPart{{Text: instruction}}, schema)
}

func (c *geminiClient) GenerateJSONWithImage(ctx context.Context, instruction string, image []byte, mimeType string, schema map[string]any) (json.RawMessage, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: empty image payload", pkgerr.ErrInvalidArgument)
	}
	parts := []geminiPart{
		{Text: instruction},
		{InlineData: &geminiInlineData{
			MimeType: mimeType,
			Data:     base64.StdEncoding.EncodeToString(image),
		}},
	}
	return c.generate(ctx, parts, schema)
}
