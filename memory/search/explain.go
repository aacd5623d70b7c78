package search

import (
	"context"
	"fmt"
	"os"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
)

// AssociationExplainer produces a short human-readable rationale for why
// two memories were linked. Off by default: wiring one in is an explicit
// opt-in on Planner, since it costs an API call per explanation.
type AssociationExplainer interface {
	Explain(ctx context.Context, a, b string, weight float64) (string, error)
}

// LLMAssociationExplainer answers AssociationExplainer with a single-turn
// Anthropic Messages call. Grounded on the teacher's
// pkg/models.AnthropicLLM, narrowed from a general-purpose Generate method
// to this package's specific explanation prompt.
type LLMAssociationExplainer struct {
	client *anthropic.Client
	model  string
}

// NewLLMAssociationExplainer builds an explainer reading ANTHROPIC_API_KEY
// from the environment. model defaults to "claude-3-5-haiku-latest" —
// explanations are a cheap, latency-sensitive side channel, not the
// primary query path.
func NewLLMAssociationExplainer(model string) *LLMAssociationExplainer {
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}
	client := anthropic.NewClient(anthropicopt.WithAPIKey(os.Getenv("ANTHROPIC_API_KEY")))
	return &LLMAssociationExplainer{client: &client, model: model}
}

func (e *LLMAssociationExplainer) Explain(ctx context.Context, contentA, contentB string, weight float64) (string, error) {
	prompt := fmt.Sprintf(
		"Two notes were linked with cosine similarity %.2f.\nNote A: %s\nNote B: %s\nIn one sentence, say what they have in common.",
		weight, contentA, contentB,
	)
	msg, err := e.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(e.model),
		MaxTokens: 128,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("explain association: %w", err)
	}
	var b strings.Builder
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(tb.Text)
		}
	}
	return strings.TrimSpace(b.String()), nil
}

// WithExplainer attaches an AssociationExplainer; ExplainAssociation is a
// no-op returning "" when none is set.
func (p *Planner) WithExplainer(explainer AssociationExplainer) *Planner {
	p.explainer = explainer
	return p
}

// ExplainAssociation looks up both memories' content and asks the
// configured explainer why they were linked.
func (p *Planner) ExplainAssociation(ctx context.Context, sourceID, targetID string, weight float64) (string, error) {
	if p.explainer == nil {
		return "", nil
	}
	source, err := p.mgr.Get(ctx, sourceID)
	if err != nil {
		return "", err
	}
	target, err := p.mgr.Get(ctx, targetID)
	if err != nil {
		return "", err
	}
	return p.explainer.Explain(ctx, source.Content, target.Content, weight)
}
