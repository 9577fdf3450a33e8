package llm

import (
	"context"
	"time"
)

// Default generation parameters
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 500
)

// DefaultSystemPrompt is the persona used when none is configured
const DefaultSystemPrompt = `You are Zen, a helpful and knowledgeable Travel AI Assistant specializing in India travel.

Your role is to:
- Help users plan trips to India
- Provide destination recommendations
- Give travel tips, visa info, and cultural advice
- Suggest itineraries, accommodations, and transportation
- Share information about Indian culture, food, and festivals
- Help with travel safety and health advice

Always respond in a friendly, helpful manner and focus on travel-related assistance.
If asked about non-travel topics, politely redirect to travel planning.`

// FallbackReply is spoken when no reasoning provider is left
const FallbackReply = "I'm sorry, I'm experiencing technical difficulties. Please try again later."

// Request is a single-turn generation request
type Request struct {
	SystemPrompt string
	Text         string
	Temperature  float64
	MaxTokens    int
}

// Reply is the generated answer to one request
type Reply struct {
	// Text is the generated reply, trimmed of surrounding whitespace
	Text string

	// Provider is the name of the provider that answered
	Provider string

	// Attempts is the number of providers called, the last one included
	Attempts int

	// Latency is the wall time spent in the provider chain
	Latency time.Duration
}

// Generator produces a reply for one request.
// Implementations must honour ctx and return promptly when it is done.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a plain function to Generator
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

// Generate calls f(ctx, req)
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
