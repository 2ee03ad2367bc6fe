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
	"strings"
	"time"

	"github.com/cliplens/video-analysis/internal/core/model"
)

// CaptionAnalyzer scores the on-screen text usage across the video. A
// video with no captions at all gets a deterministic Weak verdict without
// spending a model call; there is nothing to grade.
type CaptionAnalyzer struct {
	completer Completer
	embedder  Embedder
	retriever Retriever
}

// NewCaptionAnalyzer builds the caption analyzer.
func NewCaptionAnalyzer(completer Completer, embedder Embedder, retriever Retriever) *CaptionAnalyzer {
	return &CaptionAnalyzer{completer: completer, embedder: embedder, retriever: retriever}
}

// Name returns the feature identifier.
func (a *CaptionAnalyzer) Name() string { return model.FeatureCaption }

// Analyze collects the captions from the scene breakdown, retrieves
// caption references from the knowledge base, and asks the model for a
// verdict. The no-caption short-circuit happens before any network call.
func (a *CaptionAnalyzer) Analyze(ctx context.Context, in Input) (*model.AnalysisResult, error) {
	if err := requireScenes(model.FeatureCaption, in); err != nil {
		return nil, err
	}

	var captions []string
	for _, s := range in.Scenes {
		if s.OnScreenText != "" {
			captions = append(captions, fmt.Sprintf("Scene %d: %s", s.SceneNumber, s.OnScreenText))
		}
	}

	if len(captions) == 0 {
		return &model.AnalysisResult{
			Feature:  model.FeatureCaption,
			Rating:   "Weak",
			Feedback: "No on-screen text or captions detected in any scene. Text overlays are one of the strongest retention levers in short-form video.",
			Suggestions: []string{
				"Add on-screen text to reinforce the hook in the first scene",
				"Use captions for any spoken content so the video works muted",
				"Consider text overlays to emphasize key moments and the call to action",
			},
			AnalyzedAt: time.Now(),
		}, nil
	}

	ragContext, err := retrieveContext(ctx, a.embedder, a.retriever, model.FeatureCaption, strings.Join(captions, "\n"))
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(`You are reviewing the on-screen text and caption usage of a short-form video.

Captions found (%d of %d scenes carry text):
%s

Scene breakdown:
%s
Knowledge base references:
%s
Rate the caption usage. Respond in exactly this format:
Rating: (Strong/Medium/Weak)
Reasoning: one or two sentences
Suggestions:
- up to two concrete improvements`, len(captions), len(in.Scenes), strings.Join(captions, "\n"), formatScenes(in.Scenes), ragContext)

	raw, err := a.completer.Complete(ctx, systemPrompt("video caption and on-screen text analyst"), prompt, ReportTemperature, ReportMaxTokens)
	if err != nil {
		return nil, err
	}
	return newResult(model.FeatureCaption, raw), nil
}
