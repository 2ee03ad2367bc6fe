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

// AudioAnalyzer scores the audio and speech usage across the video. Like
// the caption analyzer, a video with no audio signal at all gets a
// deterministic Weak verdict without a model call.
type AudioAnalyzer struct {
	completer Completer
	embedder  Embedder
	retriever Retriever
}

// NewAudioAnalyzer builds the audio analyzer.
func NewAudioAnalyzer(completer Completer, embedder Embedder, retriever Retriever) *AudioAnalyzer {
	return &AudioAnalyzer{completer: completer, embedder: embedder, retriever: retriever}
}

// Name returns the feature identifier.
func (a *AudioAnalyzer) Name() string { return model.FeatureAudio }

// Analyze collects the audio summaries, retrieves audio references from
// the knowledge base, and asks the model for a verdict.
func (a *AudioAnalyzer) Analyze(ctx context.Context, in Input) (*model.AnalysisResult, error) {
	if err := requireScenes(model.FeatureAudio, in); err != nil {
		return nil, err
	}

	var audio []string
	for _, s := range in.Scenes {
		if hasAudioSignal(s.AudioSummary) {
			audio = append(audio, fmt.Sprintf("Scene %d: %s", s.SceneNumber, s.AudioSummary))
		}
	}

	if len(audio) == 0 {
		return &model.AnalysisResult{
			Feature:  model.FeatureAudio,
			Rating:   "Weak",
			Feedback: "No audio content detected in any scene. Silent videos underperform on every short-form platform.",
			Suggestions: []string{
				"Add a voiceover or direct-to-camera speech to carry the narrative",
				"Layer a trending or energetic music track under the video",
				"Use sound effects to punctuate cuts and reveals",
			},
			AnalyzedAt: time.Now(),
		}, nil
	}

	ragContext, err := retrieveContext(ctx, a.embedder, a.retriever, model.FeatureAudio, strings.Join(audio, "\n"))
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(`You are reviewing the audio and speech usage of a short-form video.

Audio found (%d of %d scenes carry audio):
%s

Scene breakdown:
%s
Knowledge base references:
%s
Rate the audio usage. Respond in exactly this format:
Rating: (Strong/Medium/Weak)
Reasoning: one or two sentences
Suggestions:
- up to two concrete improvements`, len(audio), len(in.Scenes), strings.Join(audio, "\n"), formatScenes(in.Scenes), ragContext)

	raw, err := a.completer.Complete(ctx, systemPrompt("video audio and speech analyst"), prompt, ReportTemperature, ReportMaxTokens)
	if err != nil {
		return nil, err
	}
	return newResult(model.FeatureAudio, raw), nil
}
