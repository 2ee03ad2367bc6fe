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

	"github.com/cliplens/video-analysis/internal/core/model"
)

// PacingAnalyzer scores the edit rhythm of the video from the scene
// timings alone. It is metrics-driven: the knowledge base has no seeded
// pacing topic yet, so no retrieval happens here.
type PacingAnalyzer struct {
	completer Completer
}

// NewPacingAnalyzer builds the pacing analyzer.
func NewPacingAnalyzer(completer Completer) *PacingAnalyzer {
	return &PacingAnalyzer{completer: completer}
}

// Name returns the feature identifier.
func (a *PacingAnalyzer) Name() string { return model.FeaturePacing }

// Analyze derives the timing metrics and asks the model to judge the
// rhythm against short-form expectations.
func (a *PacingAnalyzer) Analyze(ctx context.Context, in Input) (*model.AnalysisResult, error) {
	if err := requireScenes(model.FeaturePacing, in); err != nil {
		return nil, err
	}

	m := ComputeSceneMetrics(in.Scenes)

	var timings strings.Builder
	for i, s := range in.Scenes {
		fmt.Fprintf(&timings, "Scene %d: %.1fs-%.1fs (%.1fs, %s)\n", s.SceneNumber, s.StartTime, s.EndTime, m.SceneDurations[i], s.Purpose)
	}

	prompt := fmt.Sprintf(`You are reviewing the pacing of a short-form video from its scene timings.

Metrics:
- Total duration: %.1fs across %d scenes
- Scene length: avg %.1fs, min %.1fs, max %.1fs
- Cut frequency: %.2f cuts per second
- Purpose distribution: %s

Scene timings:
%s
Rate the pacing for short-form platforms. Respond in exactly this format:
Rating: (Strong/Medium/Weak)
Reasoning: one or two sentences
Suggestions:
- up to two concrete improvements`,
		m.TotalDuration, m.SceneCount, m.AverageDuration, m.MinDuration, m.MaxDuration,
		m.CutFrequency, formatCounts(m.PurposeCounts), timings.String())

	raw, err := a.completer.Complete(ctx, systemPrompt("video pacing analyst"), prompt, ReportTemperature, ReportMaxTokens)
	if err != nil {
		return nil, err
	}
	return newResult(model.FeaturePacing, raw), nil
}
