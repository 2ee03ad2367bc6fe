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

// ViewsPredictorAnalyzer estimates the video's distribution potential from
// its structural signals. Metrics-driven like pacing: no knowledge base
// topic is seeded for view prediction.
type ViewsPredictorAnalyzer struct {
	completer Completer
}

// NewViewsPredictorAnalyzer builds the views predictor.
func NewViewsPredictorAnalyzer(completer Completer) *ViewsPredictorAnalyzer {
	return &ViewsPredictorAnalyzer{completer: completer}
}

// Name returns the feature identifier.
func (a *ViewsPredictorAnalyzer) Name() string { return model.FeatureViewsPredictor }

// Analyze scores the structural signals and asks the model for a view
// potential estimate. This feature uses a Low/Medium/High vocabulary
// rather than the quality ratings of the other analyzers.
func (a *ViewsPredictorAnalyzer) Analyze(ctx context.Context, in Input) (*model.AnalysisResult, error) {
	if err := requireScenes(model.FeatureViewsPredictor, in); err != nil {
		return nil, err
	}

	m := ComputeSceneMetrics(in.Scenes)

	prompt := fmt.Sprintf(`You are estimating the view potential of a short-form video from its structural signals.

Signals:
- Structure score: %d of 3 (hook present: %t, reveal present: %t, CTA present: %t)
- Fast paced: %t (%.2f cuts per second)
- Runtime: %.1fs across %d scenes
- On-screen text in %d scenes, audio in %d scenes

Scene breakdown:
%s
Estimate the view potential. Respond in exactly this format:
Rating: (Low/Medium/High)
Reasoning: one or two sentences
Suggestions:
- up to two changes most likely to lift distribution`,
		m.StructureScore(), m.HasHook, m.HasReveal, m.HasCTA,
		m.IsFastPaced(), m.CutFrequency, m.TotalDuration, m.SceneCount,
		m.TextSceneCount, m.AudioSceneCount, formatScenes(in.Scenes))

	raw, err := a.completer.Complete(ctx, systemPrompt("video performance predictor"), prompt, ReportTemperature, ReportMaxTokens)
	if err != nil {
		return nil, err
	}
	return newResult(model.FeatureViewsPredictor, raw), nil
}
