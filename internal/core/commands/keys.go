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

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface for the video analysis
// workflow. This file defines the well-known context keys commands use to
// share state beyond the default input/output piping.
package commands

// GetAnalysisJobName is the context key for the parsed analysis job.
func GetAnalysisJobName() string {
	return "ANALYSIS_JOB"
}

// GetVideoName is the context key for the resolved video document.
func GetVideoName() string {
	return "VIDEO"
}

// GetScenesName is the context key for the extracted scene breakdown.
func GetScenesName() string {
	return "SCENES"
}

// GetAnalysisResultsName is the context key for the feature results.
func GetAnalysisResultsName() string {
	return "ANALYSIS_RESULTS"
}
