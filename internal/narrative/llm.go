/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package narrative

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"credshield-go/internal/models"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
)

// LLM writes reports through any OpenAI-compatible chat completions endpoint.
type LLM struct {
	client    *openai.Client
	model     string
	maxTokens int
	timeout   time.Duration
}

// NewLLM returns nil when no API key is configured, which disables the model.
func NewLLM(cfg models.NarrativeConfig, httpClient *http.Client) *LLM {
	if cfg.APIKey == "" {
		zap.L().Info("No narrative API key configured; reports use the deterministic fallback")
		return nil
	}

	baseURL := cfg.BaseURL
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	opts := []option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	return &LLM{
		client:    openai.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		timeout:   cfg.Timeout,
	}
}

func (l *LLM) Generate(ctx context.Context, req Request) (string, error) {
	if l == nil {
		return "", fmt.Errorf("narrative model not configured")
	}
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	params := openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(Prompt(req)),
		}),
		Model: openai.F(l.model),
	}
	if l.maxTokens > 0 {
		params.MaxTokens = openai.F(int64(l.maxTokens))
	}

	completion, err := l.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}

// Prompt renders the analyst instructions for one scored wallet.
func Prompt(req Request) string {
	result := req.Result
	tokens := make(map[string]struct{})
	for _, t := range req.Snapshot.TokenTransfers {
		tokens[t.TokenSymbol] = struct{}{}
	}

	var dims strings.Builder
	for _, d := range result.Dimensions {
		fmt.Fprintf(&dims, "- %s: %d/%d (weight: %d%%): %s\n", d.Name, d.Score, d.MaxScore, d.WeightBps/100, d.Rationale)
	}

	return fmt.Sprintf(`You are CredShield's credit analyst. Write a concise, professional credit report for a BNB Smart Chain wallet.

Wallet: %s
CredScore: %d/900
Tier: %s
%s balance: %s
Transactions: %d
Distinct tokens: %d

Dimension breakdown:
%s
Write three or four short paragraphs: the overall assessment and what the score means, the strongest dimensions and why they signal creditworthiness, what would raise the score, and a lending recommendation for the tier. Quote the actual numbers. Stay under 250 words.`,
		result.Address.Hex(), result.Score, result.Tier.String(),
		req.symbol(), models.FormatUnits(req.Snapshot.NativeBalance, 4),
		len(req.Snapshot.Transactions), len(tokens), dims.String())
}
