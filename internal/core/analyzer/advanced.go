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

// AdvancedAnalyticsAnalyzer produces the whole-video structural read:
// narrative beat coverage, tone distribution, and text/audio coverage,
// grounded against the advanced analytics topic of the knowledge base.
type AdvancedAnalyticsAnalyzer struct {
	completer Completer
	embedder  Embedder
	retriever Retriever
}

// NewAdvancedAnalyticsAnalyzer builds the advanced analytics analyzer.
func NewAdvancedAnalyticsAnalyzer(completer Completer, embedder Embedder, retriever Retriever) *AdvancedAnalyticsAnalyzer {
	return &AdvancedAnalyticsAnalyzer{completer: completer, embedder: embedder, retriever: retriever}
}

// Name returns the feature identifier.
func (a *AdvancedAnalyticsAnalyzer) Name() string { return model.FeatureAdvancedAnalytics }

// Analyze summarizes the video's structure, retrieves references, and asks
// the model for the structural verdict.
func (a *AdvancedAnalyticsAnalyzer) Analyze(ctx context.Context, in Input) (*model.AnalysisResult, error) {
	if err := requireScenes(model.FeatureAdvancedAnalytics, in); err != nil {
		return nil, err
	}

	m := ComputeSceneMetrics(in.Scenes)

	textCoverage := 100 * float64(m.TextSceneCount) / float64(m.SceneCount)
	audioCoverage := 100 * float64(m.AudioSceneCount) / float64(m.SceneCount)

	summary := fmt.Sprintf(`Structure: hook=%t, buildup=%t, reveal=%t, cta=%t
Purpose distribution: %s
Tone distribution: %s
On-screen text coverage: %.0f%% of scenes
Audio coverage: %.0f%% of scenes
Runtime: %.1fs across %d scenes`,
		m.HasHook, m.HasBuildup, m.HasReveal, m.HasCTA,
		formatCounts(m.PurposeCounts), formatCounts(m.ToneCounts),
		textCoverage, audioCoverage, m.TotalDuration, m.SceneCount)

	ragContext, err := retrieveContext(ctx, a.embedder, a.retriever, model.FeatureAdvancedAnalytics, summary)
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(`You are producing an advanced structural analysis of a short-form video.

%s

Scene breakdown:
%s
Knowledge base references:
%s
Rate the overall structure. Respond in exactly this format:
Rating: (Strong/Medium/Weak)
Reasoning: one or two sentences
Suggestions:
- up to two concrete improvements`, summary, formatScenes(in.Scenes), ragContext)

	raw, err := a.completer.Complete(ctx, systemPrompt("video content strategy analyst"), prompt, ReportTemperature, ReportMaxTokens)
	if err != nil {
		return nil, err
	}
	return newResult(model.FeatureAdvancedAnalytics, raw), nil
}
