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

// Package model defines the core data structures for the application.
// This file contains the persistent video document and its embedded types:
// the chronological scene breakdown produced by the analysis pipeline and
// the per-feature results attached once analysis completes.
package model

import "time"

// Upload status values for a video document.
const (
	UploadStatusPending   = "pending"
	UploadStatusUploading = "uploading"
	UploadStatusCompleted = "completed"
	UploadStatusFailed    = "failed"
)

// Analysis status values for a video document. A video moves from pending
// to processing when a job is picked up, then to completed or failed.
const (
	AnalysisStatusPending    = "pending"
	AnalysisStatusProcessing = "processing"
	AnalysisStatusCompleted  = "completed"
	AnalysisStatusFailed     = "failed"
)

// Feature identifiers for the analyzer set. These are the only values
// accepted in a video's selected features and in analysis results.
const (
	FeatureHook              = "hook"
	FeatureCaption           = "caption"
	FeaturePacing            = "pacing"
	FeatureAudio             = "audio"
	FeatureAdvancedAnalytics = "advanced_analytics"
	FeatureViewsPredictor    = "views_predictor"
)

// AllFeatures lists every analyzer feature in its canonical run order. An
// analysis request with no explicit selection runs all of them.
var AllFeatures = []string{
	FeatureHook,
	FeatureCaption,
	FeaturePacing,
	FeatureAudio,
	FeatureAdvancedAnalytics,
	FeatureViewsPredictor,
}

// Scene is one chronological segment of a video as described by the video
// understanding service. Times are in seconds from the start of the video.
type Scene struct {
	SceneNumber       int     `json:"sceneNumber" bson:"sceneNumber"`
	StartTime         float64 `json:"startTime" bson:"startTime"`
	EndTime           float64 `json:"endTime" bson:"endTime"`
	VisualDescription string  `json:"visualDescription" bson:"visualDescription"`
	OnScreenText      string  `json:"onScreenText" bson:"onScreenText"`       // Empty when the source reported "None" or "N/A".
	AudioSummary      string  `json:"audioSummary" bson:"audioSummary"`
	PrimaryAction     string  `json:"primaryAction" bson:"primaryAction"`
	EmotionalTone     string  `json:"emotionalTone" bson:"emotionalTone"`
	Purpose           string  `json:"purpose" bson:"purpose"` // One of: hook, buildup, reveal, CTA, filler.
}

// AnalysisResult is the outcome of running a single feature analyzer. A
// failed analyzer still produces a result: the rating is empty and the
// feedback carries the failure message, so one broken feature never hides
// the others.
type AnalysisResult struct {
	Feature     string    `json:"feature" bson:"feature"`
	Rating      string    `json:"rating,omitempty" bson:"rating,omitempty"`
	Feedback    string    `json:"feedback" bson:"feedback"`
	Suggestions []string  `json:"suggestions,omitempty" bson:"suggestions,omitempty"`
	AnalyzedAt  time.Time `json:"analyzedAt" bson:"analyzedAt"`
}

// Video is the root persistent document for an uploaded video and
// everything the pipeline derives from it.
type Video struct {
	ID               string           `json:"id" bson:"_id"`
	UploaderID       string           `json:"uploaderId" bson:"uploader_id"`
	Title            string           `json:"title" bson:"title"`
	SourceURL        string           `json:"sourceUrl,omitempty" bson:"sourceUrl,omitempty"` // The URL the asset was ingested from.
	UploadStatus     string           `json:"uploadStatus" bson:"uploadStatus"`
	AnalysisStatus   string           `json:"analysisStatus" bson:"analysisStatus"`
	SelectedFeatures []string         `json:"selectedFeatures,omitempty" bson:"selectedFeatures,omitempty"`
	IsAnalysisReady  bool             `json:"isAnalysisReady" bson:"isAnalysisReady"`
	ExternalAssetID  string           `json:"externalAssetId,omitempty" bson:"externalAssetId,omitempty"`   // Handle of the raw asset at the video understanding service.
	IndexedVideoID   string           `json:"indexedVideoId,omitempty" bson:"indexedVideoId,omitempty"`     // Handle of the indexed asset used for analysis prompts.
	Scenes           []*Scene         `json:"scenes,omitempty" bson:"scenes,omitempty"`
	Analysis         []AnalysisResult `json:"analysis,omitempty" bson:"analysis,omitempty"`
	CreatedAt        time.Time        `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt" bson:"updatedAt"`
}

// IsValidFeature reports whether the given name is a known analyzer
// feature.
func IsValidFeature(name string) bool {
	for _, f := range AllFeatures {
		if f == name {
			return true
		}
	}
	return false
}
