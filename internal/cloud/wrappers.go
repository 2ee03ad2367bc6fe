// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cloud provides components for interacting with external services.
// This file implements decorators around the GenAI client that add rate
// limiting and retries to model calls.
//
// Why this matters:
//   - Rate Limiting: Vertex AI enforces per-minute request quotas. The
//     wrapper keeps the application under them instead of burning the
//     quota into 429s.
//   - Retry Logic: Model calls fail for transient reasons. The wrapper
//     retries before giving up.
//
// Structs:
//   - QuotaAwareGenerativeAIModel: Wraps a model handle plus its generation
//     config behind a rate limiter.
//   - QuotaAwareEmbeddingModel: The same treatment for embedding calls.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

type retryKey struct{}

// QuotaAwareGenerativeAIModel decorates a GenAI model handle with a rate
// limiter. Calls that would exceed the limit are queued, and failed calls
// are retried a bounded number of times.
type QuotaAwareGenerativeAIModel struct {
	GenerativeContentConfig *genai.GenerateContentConfig // The generation config applied to every call.
	ModelName               string                       // The model identifier (e.g. "gemini-2.0-flash").
	ModelHandle             *genai.Models                // The underlying model collection from the GenAI client.
	RateLimit               *rate.Limiter                // Controls request frequency.
}

// NewQuotaAwareModel creates a rate-limited wrapper around a model handle.
//
// Inputs:
//   - config: The generation config (temperature, tokens, system prompt).
//   - name: The model identifier.
//   - handle: The *genai.Models handle from the client.
//   - requestsPerSecond: The maximum number of API calls allowed per second.
func NewQuotaAwareModel(config *genai.GenerateContentConfig, name string, handle *genai.Models, requestsPerSecond int) *QuotaAwareGenerativeAIModel {
	return &QuotaAwareGenerativeAIModel{
		GenerativeContentConfig: config,
		ModelName:               name,
		ModelHandle:             handle,
		RateLimit:               rate.NewLimiter(rate.Every(time.Second/1), requestsPerSecond),
	}
}

// GenerateContent calls the underlying model under the rate limiter.
//
// Logic Flow:
//  1. Check the rate limiter. If no token is available, wait and requeue.
//  2. Call the model. On failure, retry with a backoff until the retry
//     budget (tracked on the context) is exhausted.
func (q *QuotaAwareGenerativeAIModel) GenerateContent(ctx context.Context, content []*genai.Content) (resp *genai.GenerateContentResponse, err error) {
	if !q.RateLimit.Allow() {
		// Queue this request behind the limiter instead of failing it.
		if err := q.RateLimit.Wait(ctx); err != nil {
			return nil, err
		}
	}

	resp, err = q.ModelHandle.GenerateContent(ctx, q.ModelName, content, q.GenerativeContentConfig)
	if err != nil {
		retryCount, ok := ctx.Value(retryKey{}).(int)
		if !ok {
			retryCount = 0
		}
		if retryCount >= MaxRetries {
			return nil, fmt.Errorf("failed generation on max retries: %w", err)
		}
		errCtx := context.WithValue(ctx, retryKey{}, retryCount+1)
		// Give the service time to recover before the next attempt.
		time.Sleep(time.Second * time.Duration(5*(retryCount+1)))
		return q.GenerateContent(errCtx, content)
	}
	return resp, nil
}

// Complete is a convenience wrapper over GenerateContent for single-prompt
// text requests. Per-request temperature and token overrides are applied on
// a copy of the base config so concurrent callers do not race.
func (q *QuotaAwareGenerativeAIModel) Complete(ctx context.Context, system string, prompt string, temperature float32, maxTokens int32) (string, error) {
	cfg := *q.GenerativeContentConfig
	cfg.Temperature = genai.Ptr[float32](temperature)
	cfg.MaxOutputTokens = maxTokens
	if system != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}

	override := &QuotaAwareGenerativeAIModel{
		GenerativeContentConfig: &cfg,
		ModelName:               q.ModelName,
		ModelHandle:             q.ModelHandle,
		RateLimit:               q.RateLimit,
	}
	return GenerateTextResponse(ctx, 0, override, genai.Text(prompt))
}

// QuotaAwareEmbeddingModel decorates embedding calls with the same rate
// limiting treatment as the generative wrapper.
type QuotaAwareEmbeddingModel struct {
	ModelName   string
	ModelHandle *genai.Models
	RateLimit   *rate.Limiter
}

// NewQuotaAwareEmbeddingModel creates a rate-limited embedding wrapper.
// The limit is expressed in requests per minute to match how embedding
// quotas are published.
func NewQuotaAwareEmbeddingModel(name string, handle *genai.Models, requestsPerMinute int) *QuotaAwareEmbeddingModel {
	return &QuotaAwareEmbeddingModel{
		ModelName:   name,
		ModelHandle: handle,
		RateLimit:   rate.NewLimiter(rate.Every(time.Minute), requestsPerMinute),
	}
}

// Embed produces an embedding vector for the given text. The vector is
// widened to float64 to match the precision the document store keeps.
func (q *QuotaAwareEmbeddingModel) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := q.RateLimit.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := q.ModelHandle.EmbedContent(ctx, q.ModelName, genai.Text(text), nil)
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Embeddings) == 0 {
		return nil, errors.New("embedding response contained no vectors")
	}

	values := resp.Embeddings[0].Values
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out, nil
}
