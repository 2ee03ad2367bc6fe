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
// This file contains the transient models: objects that move through the
// workflow in memory or over the job queue but are never persisted in this
// form.
package model

// AnalysisJob is the payload published to the job topic when a video is
// ready for analysis, and decoded by the workflow when the message is
// delivered. IndexedVideoID may be empty when the upload path did not
// index the asset; the workflow falls back to the handle stored on the
// video document.
type AnalysisJob struct {
	VideoID        string `json:"videoId"`
	IndexedVideoID string `json:"indexedVideoId,omitempty"`
	UserID         string `json:"userId"`
}
