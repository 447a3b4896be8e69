// Package emoji implements the Emoji Provider adapter (C10, §4.10): an
// LLM-backed emoji_for(text) call guarded by a circuit breaker and a
// process-wide daily budget, degrading to a fixed fallback pool on
// breaker trip or any call error, and returning "" on budget overrun so
// the caller applies its own fallback.
package emoji

import (
	"context"
	"hash/fnv"
	"sync/atomic"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/lassenordahl/rank-everything-sub001/internal/v1/logging"
	"github.com/lassenordahl/rank-everything-sub001/internal/v1/metrics"
)

// callTimeout bounds a single provider call; the Room Actor never waits
// on this directly (the split command pattern already moved it off the
// lock), but an unbounded external call would still pin a goroutine.
const callTimeout = 3 * time.Second

// fallbackPool is a fixed emoji set distinct from room's own fallback
// pool: this one is the adapter's last resort when it has no model
// response to validate at all, whereas room.fallbackEmojiFor covers the
// case where Provider.EmojiFor already returned "".
var fallbackPool = []string{"🙂", "🎉", "🧠", "🛠️", "🌟", "🎪", "🪁", "🧃"}

func fallbackFor(text string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	return fallbackPool[h.Sum32()%uint32(len(fallbackPool))]
}

// Provider assigns emoji via an OpenAI chat completion, enforcing a
// process-wide daily budget and a circuit breaker around the API call.
type Provider struct {
	client openai.Client
	cb     *gobreaker.CircuitBreaker
	model  string

	dailyBudget int64
	used        atomic.Int64
	budgetDay   atomic.Int64 // unix day number the budget counter applies to
}

// NewProvider constructs a Provider. dailyBudget <= 0 disables the
// provider entirely (EmojiFor always returns "", the caller falls back).
func NewProvider(apiKey string, dailyBudget int) *Provider {
	client := openai.NewClient(option.WithAPIKey(apiKey))

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "emoji-provider",
		MaxRequests: 3,
		Interval:    1 * time.Minute,
		Timeout:     30 * time.Second,
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.SetCircuitBreakerState("emoji-provider", to)
		},
	})

	p := &Provider{
		client:      client,
		cb:          cb,
		model:       openai.ChatModelGPT4oMini,
		dailyBudget: int64(dailyBudget),
	}
	p.budgetDay.Store(dayNumber(time.Now()))
	metrics.EmojiBudgetRemaining.Set(float64(dailyBudget))
	return p
}

// EmojiFor satisfies room.EmojiProvider. It returns "" when the provider
// is disabled or the daily budget is exhausted; the Room Actor treats an
// empty string as "use the fallback pool" (§4.5.5). When the breaker is
// open or the call fails, it returns an entry from this package's own
// fallbackPool instead.
func (p *Provider) EmojiFor(text string) string {
	if p == nil || p.dailyBudget <= 0 {
		return ""
	}
	if !p.takeBudget() {
		return ""
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	result, err := p.cb.Execute(func() (any, error) {
		return p.complete(ctx, text)
	})
	metrics.ObserveEmojiProviderCall(time.Since(start), err == nil)

	if err != nil {
		if err == gobreaker.ErrOpenState {
			logging.Warn(ctx, "emoji provider circuit open, falling back")
		} else {
			logging.Warn(ctx, "emoji provider call failed", zap.Error(err))
		}
		return fallbackFor(text)
	}

	emoji, _ := result.(string)
	return emoji
}

func (p *Provider) complete(ctx context.Context, text string) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: p.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("Reply with exactly one emoji character representing the given word or phrase. No words, no punctuation, no explanation."),
			openai.UserMessage(text),
		},
		MaxCompletionTokens: openai.Int(4),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// takeBudget resets the counter on day rollover and reports whether one
// more call fits under today's budget (§9: "shared process-wide integer
// incremented under a short lock or an atomic counter").
func (p *Provider) takeBudget() bool {
	today := dayNumber(time.Now())
	if p.budgetDay.Swap(today) != today {
		p.used.Store(0)
	}
	used := p.used.Add(1)
	remaining := p.dailyBudget - used
	if remaining < 0 {
		remaining = 0
	}
	metrics.EmojiBudgetRemaining.Set(float64(remaining))
	return used <= p.dailyBudget
}

func dayNumber(t time.Time) int64 {
	return t.Unix() / 86400
}
