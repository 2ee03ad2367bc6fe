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

// Package analyzer implements the per-feature content quality analyzers:
// hook, caption, pacing, audio, advanced analytics, and views prediction.
//
// Each analyzer scores one aspect of a video's scene breakdown and returns
// a structured result (rating, feedback, suggestions). Analyzers that have
// a seeded knowledge base topic ground their feedback through embedding
// plus vector search; the metrics-driven analyzers (pacing, views) work
// from the scene timings alone.
//
// The Set runs analyzers in selection order with per-feature failure
// isolation: one broken analyzer produces a failed result for its feature
// and the rest still run.
package analyzer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cliplens/video-analysis/internal/core/model"
)

// Shared generation settings for analyzer completions. Reports are meant
// to be short and structured, so the token budget is tight and the
// temperature low.
const (
	ReportTemperature = 0.2
	ReportMaxTokens   = 320
	RetrievalLimit    = 10
)

// Completer is the LLM used to write analyzer reports.
type Completer interface {
	Complete(ctx context.Context, system string, prompt string, temperature float32, maxTokens int32) (string, error)
}

// Embedder produces the query vector for knowledge base retrieval.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Retriever searches the knowledge base for documents near the query
// vector, filtered to one analyzer topic.
type Retriever interface {
	SearchByTopic(ctx context.Context, embedding []float64, topic string, limit int64) ([]model.KnowledgeHit, error)
}

// Input carries everything an analyzer needs: the scene breakdown and the
// hook text resolved from it.
type Input struct {
	Scenes []*model.Scene
	Hook   string
}

// Analyzer scores one feature of a video.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, in Input) (*model.AnalysisResult, error)
}

// Set holds the full analyzer collection keyed by feature name.
type Set struct {
	analyzers map[string]Analyzer
}

// NewSet builds the six analyzers over the given model and retrieval
// dependencies.
func NewSet(completer Completer, embedder Embedder, retriever Retriever) *Set {
	s := &Set{analyzers: make(map[string]Analyzer)}
	for _, a := range []Analyzer{
		NewHookAnalyzer(completer, embedder, retriever),
		NewCaptionAnalyzer(completer, embedder, retriever),
		NewPacingAnalyzer(completer),
		NewAudioAnalyzer(completer, embedder, retriever),
		NewAdvancedAnalyticsAnalyzer(completer, embedder, retriever),
		NewViewsPredictorAnalyzer(completer),
	} {
		s.analyzers[a.Name()] = a
	}
	return s
}

// Run executes the selected analyzers in order and returns one result per
// feature. An empty selection runs all features. The hook analyzer is
// skipped silently when no hook text could be resolved; every other
// failure is captured as a failed result for that feature so the
// remaining analyzers are unaffected.
func (s *Set) Run(ctx context.Context, in Input, selected []string) []model.AnalysisResult {
	if len(selected) == 0 {
		selected = model.AllFeatures
	}

	results := make([]model.AnalysisResult, 0, len(selected))
	for _, feature := range selected {
		analyzer, ok := s.analyzers[feature]
		if !ok {
			continue
		}
		if feature == model.FeatureHook && in.Hook == "" {
			continue
		}

		result, err := analyzer.Analyze(ctx, in)
		if err != nil {
			results = append(results, model.AnalysisResult{
				Feature:    feature,
				Feedback:   fmt.Sprintf("Analysis failed: %s", err.Error()),
				AnalyzedAt: time.Now(),
			})
			continue
		}
		results = append(results, *result)
	}
	return results
}

// systemPrompt builds the per-feature system instruction. Every analyzer
// shares the same contract: plain text, structured, short.
func systemPrompt(role string) string {
	return fmt.Sprintf("You are a concise %s. Keep outputs structured, plain text, and under 140 words.", role)
}

// requireScenes is the shared guard: analyzers cannot score a video with
// no scene breakdown.
func requireScenes(feature string, in Input) error {
	if len(in.Scenes) == 0 {
		return fmt.Errorf("no scenes available for %s analysis", feature)
	}
	return nil
}

// formatScenes renders the scene breakdown as the compact context block
// the report prompts embed.
func formatScenes(scenes []*model.Scene) string {
	var b strings.Builder
	for _, s := range scenes {
		fmt.Fprintf(&b, "Scene %d (%.1fs-%.1fs): %s", s.SceneNumber, s.StartTime, s.EndTime, s.VisualDescription)
		if s.OnScreenText != "" {
			fmt.Fprintf(&b, " | Text: %s", s.OnScreenText)
		}
		if s.AudioSummary != "" {
			fmt.Fprintf(&b, " | Audio: %s", s.AudioSummary)
		}
		fmt.Fprintf(&b, " | Tone: %s | Purpose: %s\n", s.EmotionalTone, s.Purpose)
	}
	return b.String()
}

// formatCounts renders a per-label counter as "label: n" pairs in label
// order, so the same metrics always produce the same prompt text.
func formatCounts(counts map[string]int) string {
	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	parts := make([]string, 0, len(labels))
	for _, label := range labels {
		parts = append(parts, fmt.Sprintf("%s: %d", label, counts[label]))
	}
	return strings.Join(parts, ", ")
}

// retrieveContext embeds the query, searches the knowledge base for the
// topic, and renders the hits as a numbered context block. Retrieval
// errors propagate so the feature is reported as failed rather than
// silently ungrounded.
func retrieveContext(ctx context.Context, embedder Embedder, retriever Retriever, topic string, query string) (string, error) {
	vector, err := embedder.Embed(ctx, query)
	if err != nil {
		return "", fmt.Errorf("failed to embed %s query: %w", topic, err)
	}

	hits, err := retriever.SearchByTopic(ctx, vector, topic, RetrievalLimit)
	if err != nil {
		return "", fmt.Errorf("knowledge base search failed for %s: %w", topic, err)
	}
	if len(hits) == 0 {
		return "No relevant knowledge base documents found", nil
	}

	var b strings.Builder
	for i, hit := range hits {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, strings.ToUpper(hit.Layer), hit.Content)
	}
	return b.String(), nil
}

// newResult assembles an AnalysisResult from a raw model report.
func newResult(feature string, raw string) *model.AnalysisResult {
	report := ParseReport(raw)
	return &model.AnalysisResult{
		Feature:     feature,
		Rating:      report.Rating,
		Feedback:    report.Feedback,
		Suggestions: report.Suggestions,
		AnalyzedAt:  time.Now(),
	}
}
