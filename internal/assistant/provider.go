// Package assistant builds weather-grounded prompts and sends them to a generative
// language provider (Gemini over REST, or a local Ollama).
package assistant

import "context"

// Provider generates one completion for a prompt. Implementations are read-only
// after construction and safe for concurrent use. A single attempt per call.
type Provider interface {
	Name() string
	Configured() bool
	Generate(ctx context.Context, prompt string) (string, error)
}
