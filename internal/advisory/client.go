// Package advisory generates a narrative summary of a completed plan using
// an LLM, a non-critical-path enrichment over core.OptimizationResult.
package advisory

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sashabaranov/go-openai"

	"github.com/fieldplan/allocator/internal/core"
)

var (
	defaultTimeout = 30 * time.Second
	maxRetries     = 3
	baseDelay      = 100 * time.Millisecond
	maxJitter      = 50 * time.Millisecond
)

// Client generates a natural-language advisory narrative for a plan via
// OpenAI's chat completion API, caching responses by plan fingerprint.
type Client struct {
	client        *openai.Client
	timeout       time.Duration
	rateLimiter   sync.Mutex
	responseCache *cache.Cache
	lastRequest   time.Time
}

// NewClient constructs a Client, verifying connectivity against apiKey.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	if len(apiKey) < 20 {
		return nil, fmt.Errorf("invalid API key: insufficient length")
	}

	client := openai.NewClient(apiKey)

	verifyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := client.ListModels(verifyCtx); err != nil {
		return nil, fmt.Errorf("failed to verify OpenAI connectivity: %w", err)
	}

	return &Client{
		client:        client,
		timeout:       defaultTimeout,
		responseCache: cache.New(1*time.Hour, 2*time.Hour),
		lastRequest:   time.Now(),
	}, nil
}

// Narrate summarizes result as a short advisory for the grower: what got
// planted where, and anything the diagnostic flagged.
func (c *Client) Narrate(ctx context.Context, result core.OptimizationResult) (string, error) {
	cacheKey := fingerprint(result)
	if cached, found := c.responseCache.Get(cacheKey); found {
		return cached.(string), nil
	}

	prompt := buildPrompt(result)

	completion, err := c.callWithRetry(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to generate plan narrative: %w", err)
	}

	c.responseCache.Set(cacheKey, completion, cache.DefaultExpiration)
	return completion, nil
}

func (c *Client) callWithRetry(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		if attempt > 0 {
			time.Sleep(c.backoff(attempt))
		}

		c.rateLimiter.Lock()
		elapsed := time.Since(c.lastRequest)
		if elapsed < time.Second {
			time.Sleep(time.Second - elapsed)
		}
		c.lastRequest = time.Now()
		c.rateLimiter.Unlock()

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := c.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
			Model: openai.GPT3Dot5Turbo,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			MaxTokens:   300,
			Temperature: 0.4,
		})
		cancel()

		if err == nil && len(resp.Choices) > 0 {
			return strings.TrimSpace(resp.Choices[0].Message.Content), nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) backoff(attempt int) time.Duration {
	delay := baseDelay * time.Duration(1<<uint(attempt))
	jitter := time.Duration(rand.Int63n(int64(maxJitter)))
	return delay + jitter
}

func buildPrompt(result core.OptimizationResult) string {
	var b strings.Builder
	b.WriteString("Summarize this field allocation plan for a grower in two or three sentences. ")
	fmt.Fprintf(&b, "Algorithm: %s. Total profit: %.2f. Allocations: %d scheduled. ",
		result.Algorithm, result.TotalProfit, len(result.Solution.Allocations))
	if result.Diagnostic != nil {
		fmt.Fprintf(&b, "Diagnostic: %s - %s. ", result.Diagnostic.Code, result.Diagnostic.Message)
	}
	if len(result.Warnings) > 0 {
		fmt.Fprintf(&b, "Warnings: %s.", strings.Join(result.Warnings, "; "))
	}
	return b.String()
}

func fingerprint(result core.OptimizationResult) string {
	return fmt.Sprintf("%s_%d_%.2f", result.Algorithm, len(result.Solution.Allocations), result.TotalProfit)
}
