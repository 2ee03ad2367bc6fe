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

// This file defines the ChatStore, the data access layer for per-video
// conversations, and the builder for the summary message the pipeline
// seeds into the chat when an analysis completes.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cliplens/video-analysis/internal/cloud"
	"github.com/cliplens/video-analysis/internal/core/model"
)

// maxSeedFeedbackChars bounds per-feature feedback in the seed message so
// the summary stays scannable; full feedback lives on the video document.
const maxSeedFeedbackChars = 80

// featureLabels maps feature identifiers to the display names used in the
// seed message.
var featureLabels = map[string]string{
	model.FeatureHook:              "Hook",
	model.FeatureCaption:           "Caption",
	model.FeaturePacing:            "Pacing",
	model.FeatureAudio:             "Audio",
	model.FeatureAdvancedAnalytics: "Advanced analytics",
	model.FeatureViewsPredictor:    "Views predictor",
}

// ChatStore is the data access layer for video conversations.
type ChatStore struct {
	col *mongo.Collection
}

// NewChatStore binds the store to the configured chat collection.
func NewChatStore(client *mongo.Client, cfg *cloud.MongoDataSource) *ChatStore {
	return &ChatStore{col: client.Database(cfg.Database).Collection(cfg.ChatCollection)}
}

// AppendSystemMessage appends a pipeline-authored message to the (video,
// user) conversation, creating the conversation if it does not exist yet.
func (s *ChatStore) AppendSystemMessage(ctx context.Context, videoID string, userID string, text string) error {
	now := time.Now()
	message := model.ChatMessage{Text: text, IsUser: false, CreatedAt: now}

	opts := options.Update().SetUpsert(true)
	_, err := s.col.UpdateOne(ctx,
		bson.M{"videoId": videoID, "userId": userID},
		bson.M{
			"$push": bson.M{"messages": message},
			"$set":  bson.M{"updatedAt": now},
			"$setOnInsert": bson.M{
				"_id":       uuid.NewString(),
				"videoId":   videoID,
				"userId":    userID,
				"createdAt": now,
			},
		}, opts)
	return err
}

// DeleteByVideo removes every conversation attached to a video. Used by
// the video delete path, which is best-effort across all the video's
// resources.
func (s *ChatStore) DeleteByVideo(ctx context.Context, videoID string) error {
	_, err := s.col.DeleteMany(ctx, bson.M{"videoId": videoID})
	return err
}

// BuildInitialAnalysisMessage renders the summary the pipeline posts into
// the owner's chat after an analysis run: what was analyzed, the first few
// scenes, and a one-line digest per feature result.
func BuildInitialAnalysisMessage(video *model.Video) string {
	parts := []string{"Video analysis complete.", "", "Summary:"}
	sceneCount := len(video.Scenes)

	hasHook := false
	for _, result := range video.Analysis {
		if result.Feature == model.FeatureHook {
			hasHook = true
		}
	}
	if hasHook {
		parts = append(parts, "- Hook analysis completed.")
	} else {
		parts = append(parts, "- Hook analysis not available.")
	}
	if sceneCount > 0 {
		parts = append(parts, fmt.Sprintf("- Structure review: %d %s detected.", sceneCount, plural("scene", sceneCount)))
	} else {
		parts = append(parts, "- Structure review: no scenes detected.")
	}

	if sceneCount > 0 {
		parts = append(parts, "", "Scene overview:")
		for i, scene := range video.Scenes {
			if i == 5 {
				break
			}
			description := scene.VisualDescription
			if description == "" {
				description = "No description"
			}
			parts = append(parts, fmt.Sprintf("- Scene %d: %s", scene.SceneNumber, description))
		}
		if sceneCount > 5 {
			remaining := sceneCount - 5
			parts = append(parts, fmt.Sprintf("- ...%d additional %s.", remaining, plural("scene", remaining)))
		}
	}

	if len(video.Analysis) > 0 {
		parts = append(parts, "", "Analysis details:")
		for _, result := range video.Analysis {
			label, ok := featureLabels[result.Feature]
			if !ok {
				label = result.Feature
			}
			summary := make([]string, 0, 2)
			if result.Rating != "" {
				summary = append(summary, fmt.Sprintf("Rating: %s", result.Rating))
			}
			if result.Feedback != "" {
				feedback := result.Feedback
				if len(feedback) > maxSeedFeedbackChars {
					feedback = feedback[:maxSeedFeedbackChars-3] + "..."
				}
				summary = append(summary, feedback)
			}
			if len(summary) > 0 {
				parts = append(parts, fmt.Sprintf("- %s: %s", label, strings.Join(summary, " — ")))
			}
		}
	}

	parts = append(parts, "", "Detailed insights follow below.")
	return strings.Join(parts, "\n")
}

func plural(word string, count int) string {
	if count == 1 {
		return word
	}
	return word + "s"
}
