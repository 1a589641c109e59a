package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"retailcopilot/internal/llm"
)

// ChatModel is the slice of the Ollama client the model-backed stages use.
type ChatModel interface {
	Generate(ctx context.Context, messages []llm.Message) (string, error)
}

const routerPrompt = `You route analytics questions about a retail database.
Reply with exactly one word:
- rag: the answer is in the policy, calendar, KPI or catalog documents
- sql: the answer comes only from the sales database
- hybrid: the answer needs both documents and the database`

// LLMDecider asks a chat model for the route.
type LLMDecider struct {
	chat ChatModel
}

var _ Decider = (*LLMDecider)(nil)

func NewLLMDecider(chat ChatModel) *LLMDecider {
	return &LLMDecider{chat: chat}
}

// Decide returns the first word of the model's reply.
func (d *LLMDecider) Decide(ctx context.Context, req DecisionRequest) (string, error) {
	out, err := d.chat.Generate(ctx, []llm.Message{
		{Role: "system", Content: routerPrompt},
		{Role: "user", Content: fmt.Sprintf("Question: %s\nAnswer format: %s", req.Question, req.FormatHint)},
	})
	if err != nil {
		return "", fmt.Errorf("route model: %w", err)
	}
	fields := strings.Fields(out)
	if len(fields) == 0 {
		return "", nil
	}
	return strings.Trim(fields[0], ".,:;!\"'`*"), nil
}

// CachedDecider memoises successful decisions per question and hint.
type CachedDecider struct {
	next  Decider
	cache *cache.Cache
}

var _ Decider = (*CachedDecider)(nil)

func NewCachedDecider(next Decider, ttl time.Duration) *CachedDecider {
	return &CachedDecider{next: next, cache: cache.New(ttl, 2*ttl)}
}

func (d *CachedDecider) Decide(ctx context.Context, req DecisionRequest) (string, error) {
	key := req.Question + "\x00" + string(req.FormatHint)
	if v, ok := d.cache.Get(key); ok {
		return v.(string), nil
	}
	out, err := d.next.Decide(ctx, req)
	if err != nil {
		return "", err
	}
	if _, valid := ParseRoute(strings.ToLower(strings.TrimSpace(out))); valid {
		d.cache.SetDefault(key, out)
	}
	return out, nil
}
