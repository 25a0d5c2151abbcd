package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const systemPrompt = "You are a seed-stage venture analyst scoring an early startup profile on fixed 0-100 dimensions. Be conservative: unproven claims score low. Respond with strict JSON only."

const (
	maxCallAttempts = 3
	retryBaseDelay  = time.Second
)

type LLMCaller interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

type AnthropicCaller struct {
	messages AnthropicMessager
}

type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicClientCreator func(apiKey string) AnthropicMessager

func defaultAnthropicCreator(apiKey string) AnthropicMessager {
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &c.Messages
}

var newAnthropicClient AnthropicClientCreator = defaultAnthropicCreator

func NewAnthropicCallerFromEnv() (*AnthropicCaller, error) {
	apiKey := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY not configured")
	}
	return &AnthropicCaller{messages: newAnthropicClient(apiKey)}, nil
}

func (a *AnthropicCaller) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	resp, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.ModelClaudeSonnet4_20250514,
		MaxTokens:   4096,
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(0),
	})
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String(), nil
}

type CallMetrics struct {
	Attempts       int
	ContentRetries int
}

// Executor drives an LLMCaller to a validated JSON result. Transport faults
// back off and retry when worth it; unusable replies get one more chance with
// the rejection reason appended to the prompt.
type Executor struct {
	caller      LLMCaller
	maxAttempts int
	sleep       func(time.Duration)
}

func NewExecutor(caller LLMCaller) *Executor {
	return &Executor{caller: caller, maxAttempts: maxCallAttempts, sleep: time.Sleep}
}

// contentIssue is a reply that arrived but could not be used. Its feedback
// line goes into the next prompt; err surfaces if attempts run out.
type contentIssue struct {
	feedback string
	err      error
}

func (e *Executor) Run(ctx context.Context, callName, prompt string, out any, validate func() error) (CallMetrics, error) {
	var metrics CallMetrics
	feedback := ""
	for attempt := 1; ; attempt++ {
		metrics.Attempts = attempt

		issue, err := e.attempt(ctx, prompt, feedback, out, validate)
		if err == nil && issue == nil {
			return metrics, nil
		}
		if err != nil {
			if attempt < e.maxAttempts && retryableTransport(err) {
				e.sleep(retryDelay(attempt))
				continue
			}
			return metrics, fmt.Errorf("%s transport failure: %w", callName, err)
		}
		if attempt < e.maxAttempts {
			metrics.ContentRetries++
			feedback = issue.feedback
			continue
		}
		return metrics, fmt.Errorf("%s: %w", callName, issue.err)
	}
}

func (e *Executor) attempt(ctx context.Context, prompt, feedback string, out any, validate func() error) (*contentIssue, error) {
	full := prompt + "\n\nReturn only the JSON object, no commentary."
	if feedback != "" {
		full += "\n\nThe previous reply was rejected: " + feedback
	}

	raw, err := e.caller.GenerateJSON(ctx, full)
	if err != nil {
		return nil, err
	}

	clean := stripCodeFences(raw)
	if clean == "" {
		return &contentIssue{
			feedback: "it was empty. Return the JSON object.",
			err:      errors.New("empty response"),
		}, nil
	}
	if err := json.Unmarshal([]byte(clean), out); err != nil {
		return &contentIssue{
			feedback: "it was not valid JSON. Return only the JSON object.",
			err:      fmt.Errorf("parse response: %w", err),
		}, nil
	}
	if err := validate(); err != nil {
		return &contentIssue{
			feedback: fmt.Sprintf("%s. Correct these values.", err),
			err:      fmt.Errorf("validate response: %w", err),
		}, nil
	}
	return nil, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	body, fenced := strings.CutPrefix(s, "```")
	if !fenced {
		return s
	}
	body = strings.TrimPrefix(body, "json")
	body = strings.TrimSuffix(strings.TrimSpace(body), "```")
	return strings.TrimSpace(body)
}

// retryableTransport reports whether a failed call is worth another attempt.
// Timeouts, rate limits, and server faults are; our own bad requests (4xx)
// are not. Unrecognized errors retry, matching the SDK's transient bias.
func retryableTransport(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "429") {
		return true
	}
	if strings.Contains(msg, "status code: 4") || strings.Contains(msg, " 4") {
		return false
	}
	return true
}

func retryDelay(attempt int) time.Duration {
	return time.Duration(attempt) * retryBaseDelay
}
