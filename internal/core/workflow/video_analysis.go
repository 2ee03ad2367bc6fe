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

// Package workflow defines the high-level business logic orchestrations,
// combining commands into coherent pipelines. This file implements the
// video analysis workflow.
package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/cliplens/video-analysis/internal/cloud"
	"github.com/cliplens/video-analysis/internal/core/commands"
	"github.com/cliplens/video-analysis/internal/core/cor"
	"github.com/cliplens/video-analysis/internal/core/model"
	"github.com/cliplens/video-analysis/internal/core/scene"
)

// VideoState extends the command-level store contract with the failure
// transition this workflow applies when the pipeline breaks before the
// feature stage. Satisfied by services.VideoStore.
type VideoState interface {
	commands.VideoState
	FailAnalysis(ctx context.Context, id string) error
}

// UnderstandingAPI combines the slices of the video understanding client
// the workflow's commands use. Satisfied by cloud.VideoIntelClient.
type UnderstandingAPI interface {
	commands.IndexingAPI
	commands.AnalyzeAPI
}

// VideoAnalysisWorkflow orchestrates the analysis of an uploaded video.
// It is structured as a Chain of Responsibility (cor.Chain) that parses
// the queued job, claims the video, ensures the indexed asset is ready,
// requests the scene breakdown, runs the feature analyzers, and seeds the
// owner's chat with the summary.
//
// The workflow is triggered by a Pub/Sub message published when an upload
// finishes ingesting, and can also be invoked synchronously through the
// analyze API endpoint.
type VideoAnalysisWorkflow struct {
	cor.BaseCommand
	config    *cloud.Config
	api       UnderstandingAPI
	store     VideoState
	chats     commands.ChatSeeder
	runner    commands.FeatureRunner
	extractor *scene.Extractor
	chain     cor.Chain
}

// Execute runs the workflow chain. When the chain fails after the video
// was claimed, the failure transition is persisted so the document never
// sticks in processing.
func (w *VideoAnalysisWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)

	if !context.HasErrors() {
		return
	}
	video, ok := context.Get(commands.GetVideoName()).(*model.Video)
	if !ok {
		// The chain failed before a video was claimed; there is no
		// document state to unwind.
		return
	}
	if video.AnalysisStatus == model.AnalysisStatusCompleted {
		return
	}
	if err := w.store.FailAnalysis(context.GetContext(), video.ID); err != nil {
		slog.Error("failed to record analysis failure", "videoId", video.ID, "error", err)
		return
	}
	video.AnalysisStatus = model.AnalysisStatusFailed
}

// Result is what a synchronous run surfaces to the caller: the analyzed
// video, the indexed handle the analysis ran against, and the per-feature
// results.
type Result struct {
	VideoID        string
	IndexedVideoID string
	Analysis       []model.AnalysisResult
}

// Run executes the workflow for a single serialized job. It returns the
// run's result on success and the first recorded error otherwise. This is
// the synchronous entry point used by the analyze API endpoint; the
// Pub/Sub listener drives Execute directly.
func (w *VideoAnalysisWorkflow) Run(ctx context.Context, message string) (*Result, error) {
	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(ctx)
	chainCtx.Add(cor.CtxIn, message)

	w.Execute(chainCtx)

	for _, err := range chainCtx.GetErrors() {
		return nil, err
	}

	out := &Result{}
	if video, ok := chainCtx.Get(commands.GetVideoName()).(*model.Video); ok {
		out.VideoID = video.ID
		out.IndexedVideoID = video.IndexedVideoID
	}
	if results, ok := chainCtx.Get(commands.GetAnalysisResultsName()).([]model.AnalysisResult); ok {
		out.Analysis = results
	}
	return out, nil
}

// initializeChain builds the sequence of commands that make up this
// workflow. Each command is an atomic unit of work; the output of one
// serves as the input of the next.
func (w *VideoAnalysisWorkflow) initializeChain() {
	vu := &w.config.VideoUnderstanding

	// Readiness budgets for the two asynchronous stages at the video
	// understanding service.
	assetPoller := cloud.NewReadinessPoller(vu.AssetPollAttempts, time.Duration(vu.AssetPollSeconds)*time.Second)
	indexedPoller := cloud.NewReadinessPoller(vu.IndexedPollAttempts, time.Duration(vu.IndexedPollSeconds)*time.Second)

	out := cor.NewBaseChain(w.GetName())

	// Step 1: Parse the incoming Pub/Sub message into an analysis job.
	out.AddCommand(commands.NewAnalysisJobReader("read-analysis-job"))

	// Step 2: Load the video the job points at, resolve its indexed
	// handle, and claim it by flipping the analysis status to processing.
	out.AddCommand(commands.NewVideoResolver("resolve-video", w.store))

	// Step 3: Recover videos whose upload never finished indexing. Skips
	// itself when the video already carries an indexed handle.
	out.AddCommand(commands.NewIndexAssetCommand("index-asset", w.api, w.store, assetPoller, vu.EnableVideoStream))

	// Step 4: Wait for the indexed copy to report ready before using it.
	out.AddCommand(commands.NewAwaitIndexedAssetCommand("await-indexed-asset", w.api, indexedPoller))

	// Step 5: Ask the video understanding service for the scene-by-scene
	// breakdown of the indexed video.
	out.AddCommand(commands.NewSceneAnalyzeCommand("analyze-scenes", w.api,
		w.config.PromptTemplates.SceneBreakdown, vu.AnalyzeTemperature))

	// Step 6: Extract structured scenes from the raw payload and persist
	// them. Extraction is total; a hopeless payload yields zero scenes.
	out.AddCommand(commands.NewSceneExtractCommand("extract-scenes", w.extractor, w.store))

	// Step 7: Run the selected feature analyzers and complete the
	// analysis. Individual analyzer failures become failed results, not
	// workflow errors.
	out.AddCommand(commands.NewFeatureAnalysisCommand("analyze-features", w.runner, w.store))

	// Step 8: Seed the owner's chat with the analysis summary. Seeding
	// failures are logged and swallowed.
	out.AddCommand(commands.NewChatSeedCommand("seed-chat", w.chats))

	w.chain = out
}

// NewVideoAnalysisWorkflow is the constructor for the VideoAnalysisWorkflow.
//
// Inputs:
//   - config: The application's overall configuration.
//   - api: The video understanding service client.
//   - store: The video store.
//   - chats: The chat store, for the summary seed.
//   - runner: The feature analyzer set.
//   - extractor: The scene extractor.
//
// Returns:
//   - A pointer to a newly created and fully initialized workflow.
func NewVideoAnalysisWorkflow(
	config *cloud.Config,
	api UnderstandingAPI,
	store VideoState,
	chats commands.ChatSeeder,
	runner commands.FeatureRunner,
	extractor *scene.Extractor) *VideoAnalysisWorkflow {

	w := &VideoAnalysisWorkflow{
		BaseCommand: *cor.NewBaseCommand("video-analysis-pipeline"),
		config:      config,
		api:         api,
		store:       store,
		chats:       chats,
		runner:      runner,
		extractor:   extractor,
	}
	w.initializeChain()
	return w
}
