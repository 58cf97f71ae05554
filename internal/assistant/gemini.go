package assistant

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/kjstillabower/weather-assistant-proxy/internal/observability"
)

// GeminiClient calls generateContent through the Google Gen AI SDK.
type GeminiClient struct {
	model   string
	timeout time.Duration
	client  *genai.Client
}

// NewGeminiClient returns a client for baseURL (e.g. https://generativelanguage.googleapis.com/v1beta).
// A trailing version segment becomes the SDK's API version. An empty apiKey is accepted;
// Configured reports it and Generate refuses to call.
func NewGeminiClient(apiKey, baseURL, model string, timeout time.Duration) (*GeminiClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Gemini URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid Gemini URL %q: scheme and host required", baseURL)
	}
	if model == "" {
		return nil, errors.New("gemini model is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	g := &GeminiClient{model: model, timeout: timeout}
	if apiKey == "" {
		return g, nil
	}

	base, version := splitAPIVersion(u)
	g.client, err = genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPClient: &http.Client{
			Timeout:   timeout,
			Transport: correlationTransport{base: http.DefaultTransport},
		},
		HTTPOptions: genai.HTTPOptions{BaseURL: base, APIVersion: version},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return g, nil
}

// splitAPIVersion peels a trailing v1 / v1beta style segment off u.
func splitAPIVersion(u *url.URL) (base, version string) {
	path := strings.TrimRight(u.Path, "/")
	i := strings.LastIndex(path, "/")
	last := path[i+1:]
	if len(last) >= 2 && last[0] == 'v' && last[1] >= '0' && last[1] <= '9' {
		version = last
		path = path[:max(i, 0)]
	}
	trimmed := *u
	trimmed.Path = path + "/"
	return trimmed.String(), version
}

// correlationTransport forwards the request's correlation ID upstream.
type correlationTransport struct {
	base http.RoundTripper
}

func (t correlationTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if corrID := observability.CorrelationID(req.Context()); corrID != "" {
		req = req.Clone(req.Context())
		req.Header.Set("X-Correlation-ID", corrID)
	}
	return t.base.RoundTrip(req)
}

func (g *GeminiClient) Name() string { return "gemini" }

func (g *GeminiClient) Configured() bool { return g.client != nil }

// ProviderError is a non-2xx answer from Gemini. Its text carries the provider status,
// message and ErrorInfo reasons (e.g. API_KEY_INVALID) so Classify can read them.
type ProviderError struct {
	StatusCode int
	Status     string
	Message    string
	Reasons    []string
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "gemini: [%d %s] %s", e.StatusCode, e.Status, e.Message)
	if len(e.Reasons) > 0 {
		b.WriteString(" (" + strings.Join(e.Reasons, ", ") + ")")
	}
	return b.String()
}

// Generate sends prompt as a single user turn and returns the text of the first candidate.
func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	if !g.Configured() {
		return "", ErrNotConfigured
	}

	reqCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(reqCtx, g.model, genai.Text(prompt), nil)
	if err != nil {
		if pe := providerError(err); pe != nil {
			return "", pe
		}
		if isTimeout(err) || errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	return extractText(resp)
}

// providerError converts the SDK's APIError, or returns nil for any other error.
func providerError(err error) *ProviderError {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		var ptr *genai.APIError
		if !errors.As(err, &ptr) || ptr == nil {
			return nil
		}
		apiErr = *ptr
	}
	pe := &ProviderError{StatusCode: apiErr.Code, Status: apiErr.Status, Message: apiErr.Message}
	if pe.Status == "" {
		pe.Status = http.StatusText(apiErr.Code)
	}
	for _, d := range apiErr.Details {
		if reason, ok := d["reason"].(string); ok && reason != "" {
			pe.Reasons = append(pe.Reasons, reason)
		}
	}
	return pe
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", errors.New("gemini: empty response")
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return "", fmt.Errorf("gemini: prompt blocked: %s", fb.BlockReason)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return "", errors.New("gemini: no candidates returned")
	}
	finish := resp.Candidates[0].FinishReason
	if finish == genai.FinishReasonSafety {
		return "", errors.New("gemini: response blocked: SAFETY")
	}
	text := resp.Text()
	if text == "" {
		if finish != "" {
			return "", fmt.Errorf("gemini: empty response, finish reason %s", finish)
		}
		return "", errors.New("gemini: empty response")
	}
	return text, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
