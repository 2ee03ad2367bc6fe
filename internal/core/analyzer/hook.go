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

package analyzer

import (
	"context"
	"fmt"

	"github.com/cliplens/video-analysis/internal/core/model"
)

// HookAnalyzer scores the opening moment of the video: whether the first
// seconds earn a viewer's attention. It grounds its feedback in the hook
// topic of the knowledge base.
type HookAnalyzer struct {
	completer Completer
	embedder  Embedder
	retriever Retriever
}

// NewHookAnalyzer builds the hook analyzer.
func NewHookAnalyzer(completer Completer, embedder Embedder, retriever Retriever) *HookAnalyzer {
	return &HookAnalyzer{completer: completer, embedder: embedder, retriever: retriever}
}

// Name returns the feature identifier.
func (a *HookAnalyzer) Name() string { return model.FeatureHook }

// Analyze embeds the hook text, retrieves reference hooks from the
// knowledge base, and asks the model for a structured verdict.
func (a *HookAnalyzer) Analyze(ctx context.Context, in Input) (*model.AnalysisResult, error) {
	if err := requireScenes(model.FeatureHook, in); err != nil {
		return nil, err
	}
	if in.Hook == "" {
		return nil, fmt.Errorf("no hook text available for hook analysis")
	}

	ragContext, err := retrieveContext(ctx, a.embedder, a.retriever, model.FeatureHook, in.Hook)
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(`You are reviewing the hook of a short-form video against a curated knowledge base of proven hooks.

Hook under review:
%s

Scene breakdown:
%s
Knowledge base references:
%s
Rate the hook and explain. Respond in exactly this format:
Rating: (Strong/Medium/Weak)
Reasoning: one or two sentences
Suggestions:
- up to two concrete improvements`, in.Hook, formatScenes(in.Scenes), ragContext)

	raw, err := a.completer.Complete(ctx, systemPrompt("short-form video hook analyst"), prompt, ReportTemperature, ReportMaxTokens)
	if err != nil {
		return nil, err
	}
	return newResult(model.FeatureHook, raw), nil
}
