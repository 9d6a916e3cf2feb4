// Package oracle wraps the AI classifier behind the pipeline's two
// operations: per-cycle verification batches and the final consensus call.
// The model is treated as non-deterministic and fallible; all free-text
// handling lives here so the rest of the pipeline only sees typed results.
package oracle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/labellens/backend/internal/domain"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// defaultVerifyBatch bounds how many candidates one verification call
// carries when no explicit limit is configured.
const defaultVerifyBatch = 10

// maxExcerptChars bounds per-source text included in prompts.
const maxExcerptChars = 1500

// Client talks to an OpenAI-compatible chat completion endpoint.
type Client struct {
	api      *openai.Client
	model    string
	timeout  time.Duration
	maxBatch int
	logger   *zap.Logger
}

// NewClient builds the oracle client. baseURL overrides the default API host
// (used for self-hosted gateways and tests).
func NewClient(apiKey, baseURL, model string, timeout time.Duration, maxBatch int, logger *zap.Logger) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if maxBatch <= 0 {
		maxBatch = defaultVerifyBatch
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		api:      openai.NewClientWithConfig(cfg),
		model:    model,
		timeout:  timeout,
		maxBatch: maxBatch,
		logger:   logger,
	}
}

// verificationResponse is the JSON schema the verification prompt requests.
type verificationResponse struct {
	Sources []domain.Verdict `json:"sources"`
}

// VerifyBatch asks the model which candidates contain usable ingredient data.
// Batches above the per-call bound are split into sequential calls. Returns
// one verdict per candidate in candidate order; candidates missing from the
// answer default to a negative verdict.
func (c *Client) VerifyBatch(ctx context.Context, candidates []domain.FilteredCandidate) ([]domain.Verdict, error) {
	var verdicts []domain.Verdict

	for start := 0; start < len(candidates); start += c.maxBatch {
		end := start + c.maxBatch
		if end > len(candidates) {
			end = len(candidates)
		}

		chunk, err := c.verifyChunk(ctx, candidates[start:end])
		if err != nil {
			return nil, err
		}
		verdicts = append(verdicts, chunk...)
	}

	return verdicts, nil
}

func (c *Client) verifyChunk(ctx context.Context, candidates []domain.FilteredCandidate) ([]domain.Verdict, error) {
	raw, err := c.complete(ctx, verifySystemPrompt, buildVerifyPrompt(candidates))
	if err != nil {
		return nil, err
	}

	parsed, err := Decode[verificationResponse](raw)
	if err != nil {
		c.logger.Warn("verification response unparseable", zap.Error(err))
		return nil, err
	}

	// Re-key by URL; anything the model skipped stays negative.
	byURL := make(map[string]domain.Verdict, len(parsed.Sources))
	for _, v := range parsed.Sources {
		byURL[v.URL] = v
	}

	verdicts := make([]domain.Verdict, len(candidates))
	for i, candidate := range candidates {
		if v, ok := byURL[candidate.URL]; ok {
			verdicts[i] = v
			continue
		}
		if i < len(parsed.Sources) && parsed.Sources[i].URL == "" {
			// Position-aligned answer without echoed URLs.
			verdicts[i] = parsed.Sources[i]
			verdicts[i].URL = candidate.URL
			continue
		}
		verdicts[i] = domain.Verdict{URL: candidate.URL, HasIngredients: false}
	}

	return verdicts, nil
}

// Consensus unifies the verified set into one ingredient list, the top-9
// allergen subset, and dietary verdicts.
func (c *Client) Consensus(ctx context.Context, barcode string, sources []domain.VerifiedSource) (*domain.OracleConsensus, error) {
	raw, err := c.complete(ctx, consensusSystemPrompt, buildConsensusPrompt(barcode, sources))
	if err != nil {
		return nil, err
	}

	parsed, err := Decode[domain.OracleConsensus](raw)
	if err != nil {
		return nil, err
	}

	return &parsed, nil
}

// complete runs one chat completion with the configured timeout.
func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("oracle call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("oracle call: no response choices")
	}
	return resp.Choices[0].Message.Content, nil
}

const verifySystemPrompt = `You classify scraped web pages about a food product. For each source decide whether it contains a usable ingredient list for the product. Answer with JSON only.`

const consensusSystemPrompt = `You merge ingredient data about one food product from several sources into a single consensus. Answer with JSON only.`

// buildVerifyPrompt renders a numbered source list plus the answer schema.
func buildVerifyPrompt(candidates []domain.FilteredCandidate) string {
	var sb strings.Builder
	sb.WriteString("Sources:\n")
	for i, candidate := range candidates {
		fmt.Fprintf(&sb, "%d. url: %s\n   title: %s\n   text: %s\n",
			i+1, candidate.URL, candidate.Title, excerpt(&candidate.CandidateSource))
	}
	sb.WriteString("\nReturn JSON: {\"sources\":[{\"url\":\"...\",\"hasIngredients\":true|false,\"ingredients\":\"the ingredient list if present\"}]} with one entry per source, same order.")
	return sb.String()
}

// buildConsensusPrompt renders the verified set plus the consensus schema.
func buildConsensusPrompt(barcode string, sources []domain.VerifiedSource) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Barcode: %s\nVerified sources:\n", barcode)
	for i, source := range sources {
		fmt.Fprintf(&sb, "%d. url: %s\n   title: %s\n   ingredients: %s\n",
			i+1, source.URL, source.Title, source.Ingredients)
	}
	sb.WriteString("\nReturn JSON: {\"productName\":\"...\",\"unifiedIngredientList\":[\"...\"],")
	sb.WriteString("\"top9Allergens\":[\"only from: milk, eggs, fish, shellfish, tree nuts, peanuts, wheat, soybeans, sesame\"],")
	sb.WriteString("\"dietaryCompliance\":{\"vegan\":{\"isCompliant\":true|false,\"reason\":\"...\"},\"vegetarian\":{...},\"pescatarian\":{...},\"glutenFree\":{...}}}")
	return sb.String()
}

// excerpt prefers the targeted ingredient text and falls back to body text.
func excerpt(c *domain.CandidateSource) string {
	text := c.IngredientsText
	if text == "" {
		text = c.BodyText
	}
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > maxExcerptChars {
		text = text[:maxExcerptChars]
	}
	return text
}
