package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JexSrs/go-ollama"
)

// OllamaClient sends prompts to a local Ollama server through go-ollama's Generate.
type OllamaClient struct {
	host    string
	model   string
	timeout time.Duration
	client  *ollama.Ollama
}

// NewOllamaClient returns a client for host (e.g. http://localhost:11434). An empty
// host yields an unconfigured client.
func NewOllamaClient(host, model string, timeout time.Duration) (*OllamaClient, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &OllamaClient{host: host, model: model, timeout: timeout}
	if host == "" {
		return c, nil
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid Ollama URL %q: scheme and host required", host)
	}
	if model == "" {
		return nil, errors.New("ollama model is required")
	}
	c.client = ollama.New(*u)
	c.client.Http = &http.Client{Timeout: timeout}
	return c, nil
}

func (o *OllamaClient) Name() string { return "ollama" }

func (o *OllamaClient) Configured() bool { return o.client != nil }

type ollamaResult struct {
	text string
	err  error
}

// Generate runs one non-interactive Generate call. go-ollama takes no context, so the
// call runs in its own goroutine and the caller's deadline is enforced here. The
// underlying http.Client carries the same timeout, so an abandoned call is torn down
// within one timeout and its result is dropped.
func (o *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	if !o.Configured() {
		return "", ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	done := make(chan ollamaResult, 1)
	go func() {
		text, err := o.generate(prompt)
		done <- ollamaResult{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
	case r := <-done:
		return r.text, r.err
	}
}

func (o *OllamaClient) generate(prompt string) (string, error) {
	res, err := o.client.Generate(
		o.client.Generate.WithModel(o.model),
		o.client.Generate.WithSystem(SystemFraming),
		o.client.Generate.WithPrompt(prompt),
	)
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	if !res.Done {
		return "", errors.New("ollama generate: response not complete")
	}
	text := strings.TrimSpace(res.Response)
	if text == "" {
		return "", errors.New("ollama generate: empty response")
	}
	return text, nil
}
