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

package services_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliplens/video-analysis/internal/core/model"
	"github.com/cliplens/video-analysis/internal/core/services"
)

// TestBuildInitialAnalysisMessage verifies the shape of the chat seed:
// summary lines, the capped scene overview, and the per-feature digests.
func TestBuildInitialAnalysisMessage(t *testing.T) {
	video := &model.Video{
		Scenes: []*model.Scene{
			{SceneNumber: 1, VisualDescription: "Creator jumps into frame"},
			{SceneNumber: 2, VisualDescription: "Screen recording"},
			{SceneNumber: 3},
		},
		Analysis: []model.AnalysisResult{
			{Feature: model.FeatureHook, Rating: "Strong", Feedback: "Opens with motion."},
			{Feature: model.FeatureAdvancedAnalytics, Feedback: "Solid structure overall."},
			{Feature: model.FeatureViewsPredictor, Rating: "Medium"},
		},
	}

	message := services.BuildInitialAnalysisMessage(video)
	lines := strings.Split(message, "\n")

	assert.Equal(t, "Video analysis complete.", lines[0])
	assert.Contains(t, lines, "- Hook analysis completed.")
	assert.Contains(t, lines, "- Structure review: 3 scenes detected.")
	assert.Contains(t, lines, "- Scene 1: Creator jumps into frame")
	assert.Contains(t, lines, "- Scene 3: No description")
	assert.Contains(t, lines, "- Hook: Rating: Strong — Opens with motion.")
	assert.Contains(t, lines, "- Advanced analytics: Solid structure overall.")
	assert.Contains(t, lines, "- Views predictor: Rating: Medium")
	assert.Equal(t, "Detailed insights follow below.", lines[len(lines)-1])
	assert.NotContains(t, message, "additional scene")
}

// TestBuildInitialAnalysisMessageCapsScenes verifies overviews list five
// scenes and summarize the rest.
func TestBuildInitialAnalysisMessageCapsScenes(t *testing.T) {
	video := &model.Video{}
	for i := 1; i <= 8; i++ {
		video.Scenes = append(video.Scenes, &model.Scene{SceneNumber: i, VisualDescription: fmt.Sprintf("Scene %d action", i)})
	}

	message := services.BuildInitialAnalysisMessage(video)

	assert.Contains(t, message, "- Scene 5: Scene 5 action")
	assert.NotContains(t, message, "- Scene 6: Scene 6 action")
	assert.Contains(t, message, "- ...3 additional scenes.")
	assert.Contains(t, message, "- Hook analysis not available.")
}

// TestBuildInitialAnalysisMessageTruncatesFeedback verifies long feedback
// is cut to keep the digest line scannable.
func TestBuildInitialAnalysisMessageTruncatesFeedback(t *testing.T) {
	long := strings.Repeat("a", 120)
	video := &model.Video{
		Analysis: []model.AnalysisResult{
			{Feature: model.FeatureCaption, Rating: "Weak", Feedback: long},
		},
	}

	message := services.BuildInitialAnalysisMessage(video)

	expected := fmt.Sprintf("- Caption: Rating: Weak — %s...", strings.Repeat("a", 77))
	assert.Contains(t, message, expected)
	assert.NotContains(t, message, strings.Repeat("a", 78))
	assert.Contains(t, message, "- Structure review: no scenes detected.")
}

// TestBuildInitialAnalysisMessageSingularScene verifies the one-scene
// wording.
func TestBuildInitialAnalysisMessageSingularScene(t *testing.T) {
	video := &model.Video{Scenes: []*model.Scene{{SceneNumber: 1, VisualDescription: "Only scene"}}}

	message := services.BuildInitialAnalysisMessage(video)

	require.Contains(t, message, "- Structure review: 1 scene detected.")
}
