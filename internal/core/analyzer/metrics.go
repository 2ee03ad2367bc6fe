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
	"strings"

	"github.com/cliplens/video-analysis/internal/core/model"
)

// fastPacedCutFrequency is the cuts-per-second threshold above which a
// video reads as fast paced for short-form platforms.
const fastPacedCutFrequency = 0.5

// SceneMetrics are the timing and structure statistics derived from a
// scene breakdown. They drive the pacing and views analyzers and feed the
// structure summary in advanced analytics.
type SceneMetrics struct {
	TotalDuration    float64
	SceneDurations   []float64
	AverageDuration  float64
	MinDuration      float64
	MaxDuration      float64
	CutFrequency     float64 // Scene cuts per second of runtime.
	PurposeCounts    map[string]int
	ToneCounts       map[string]int
	HasHook          bool
	HasCTA           bool
	HasReveal        bool
	HasBuildup       bool
	TextSceneCount   int // Scenes carrying on-screen text.
	AudioSceneCount  int // Scenes carrying an audio summary.
	SceneCount       int
}

// ComputeSceneMetrics derives the metrics from a scene breakdown. The
// total duration is taken from the last scene's end time, matching how
// the breakdown format reports runtimes.
func ComputeSceneMetrics(scenes []*model.Scene) SceneMetrics {
	m := SceneMetrics{
		PurposeCounts: make(map[string]int),
		ToneCounts:    make(map[string]int),
		SceneCount:    len(scenes),
	}
	if len(scenes) == 0 {
		return m
	}

	m.TotalDuration = scenes[len(scenes)-1].EndTime
	m.MinDuration = scenes[0].EndTime - scenes[0].StartTime

	var sum float64
	for _, s := range scenes {
		d := s.EndTime - s.StartTime
		m.SceneDurations = append(m.SceneDurations, d)
		sum += d
		if d < m.MinDuration {
			m.MinDuration = d
		}
		if d > m.MaxDuration {
			m.MaxDuration = d
		}

		purpose := strings.ToLower(strings.TrimSpace(s.Purpose))
		if purpose != "" {
			m.PurposeCounts[purpose]++
		}
		tone := strings.ToLower(strings.TrimSpace(s.EmotionalTone))
		if tone != "" {
			m.ToneCounts[tone]++
		}
		if s.OnScreenText != "" {
			m.TextSceneCount++
		}
		if hasAudioSignal(s.AudioSummary) {
			m.AudioSceneCount++
		}
	}
	m.AverageDuration = sum / float64(len(scenes))

	duration := m.TotalDuration
	if duration == 0 {
		duration = 1
	}
	m.CutFrequency = float64(len(scenes)) / duration

	m.HasHook = m.PurposeCounts["hook"] > 0
	m.HasCTA = m.PurposeCounts["cta"] > 0
	m.HasReveal = m.PurposeCounts["reveal"] > 0
	m.HasBuildup = m.PurposeCounts["buildup"] > 0
	return m
}

// IsFastPaced reports whether the cut frequency crosses the short-form
// fast-pace threshold.
func (m SceneMetrics) IsFastPaced() bool {
	return m.CutFrequency > fastPacedCutFrequency
}

// StructureScore counts the core structural beats present (hook, reveal,
// CTA), yielding 0 through 3.
func (m SceneMetrics) StructureScore() int {
	score := 0
	if m.HasHook {
		score++
	}
	if m.HasReveal {
		score++
	}
	if m.HasCTA {
		score++
	}
	return score
}

// hasAudioSignal reports whether an audio summary field carries real
// content rather than a placeholder.
func hasAudioSignal(summary string) bool {
	s := strings.ToLower(strings.TrimSpace(summary))
	return s != "" && s != "none" && s != "n/a"
}
