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

// Package workflow_test contains end-to-end tests for the video analysis
// workflow chain: the happy path through scene extraction and feature
// analysis, the recovery and rejection branches of the resolver, and the
// failure transitions.
package workflow_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliplens/video-analysis/internal/cloud"
	"github.com/cliplens/video-analysis/internal/core/analyzer"
	"github.com/cliplens/video-analysis/internal/core/model"
	"github.com/cliplens/video-analysis/internal/core/scene"
	"github.com/cliplens/video-analysis/internal/core/services"
	"github.com/cliplens/video-analysis/internal/core/workflow"
	"github.com/cliplens/video-analysis/internal/testutil"
)

// fakeStore is an in-memory video store recording status transitions.
type fakeStore struct {
	videos      map[string]*model.Video
	transitions []string
}

func newFakeStore(videos ...*model.Video) *fakeStore {
	s := &fakeStore{videos: make(map[string]*model.Video)}
	for _, v := range videos {
		s.videos[v.ID] = v
	}
	return s
}

func (s *fakeStore) Get(_ context.Context, id string) (*model.Video, error) {
	video, ok := s.videos[id]
	if !ok {
		return nil, services.ErrVideoNotFound
	}
	copied := *video
	return &copied, nil
}

func (s *fakeStore) BeginProcessing(_ context.Context, id string) error {
	video, ok := s.videos[id]
	if !ok {
		return services.ErrVideoNotFound
	}
	if video.AnalysisStatus == model.AnalysisStatusProcessing {
		return services.ErrAlreadyProcessing
	}
	video.AnalysisStatus = model.AnalysisStatusProcessing
	s.transitions = append(s.transitions, model.AnalysisStatusProcessing)
	return nil
}

func (s *fakeStore) SetExternalHandles(_ context.Context, id string, assetID string, indexedID string) error {
	if assetID != "" {
		s.videos[id].ExternalAssetID = assetID
	}
	if indexedID != "" {
		s.videos[id].IndexedVideoID = indexedID
	}
	return nil
}

func (s *fakeStore) SaveScenes(_ context.Context, id string, scenes []*model.Scene) error {
	s.videos[id].Scenes = scenes
	return nil
}

func (s *fakeStore) CompleteAnalysis(_ context.Context, id string, results []model.AnalysisResult) error {
	video := s.videos[id]
	video.Analysis = results
	video.AnalysisStatus = model.AnalysisStatusCompleted
	video.IsAnalysisReady = true
	s.transitions = append(s.transitions, model.AnalysisStatusCompleted)
	return nil
}

func (s *fakeStore) FailAnalysis(_ context.Context, id string) error {
	s.videos[id].AnalysisStatus = model.AnalysisStatusFailed
	s.transitions = append(s.transitions, model.AnalysisStatusFailed)
	return nil
}

// fakeUnderstandingAPI scripts the video understanding service.
type fakeUnderstandingAPI struct {
	payload      string
	analyzeErr   error
	analyzeCalls int
	indexCalls   int
	lastPrompt   string
	lastVideoID  string
}

func (f *fakeUnderstandingAPI) GetAssetStatus(_ context.Context, _ string) (string, error) {
	return cloud.AssetStatusReady, nil
}

func (f *fakeUnderstandingAPI) CreateIndexedAsset(_ context.Context, _ string, _ bool) (string, error) {
	f.indexCalls++
	return "idx-new", nil
}

func (f *fakeUnderstandingAPI) GetIndexedAssetStatus(_ context.Context, _ string) (string, error) {
	return cloud.AssetStatusReady, nil
}

func (f *fakeUnderstandingAPI) Analyze(_ context.Context, indexedVideoID string, prompt string, _ float64) ([]byte, error) {
	f.analyzeCalls++
	f.lastVideoID = indexedVideoID
	f.lastPrompt = prompt
	if f.analyzeErr != nil {
		return nil, f.analyzeErr
	}
	return []byte(f.payload), nil
}

type fakeChats struct {
	messages []string
	err      error
}

func (f *fakeChats) AppendSystemMessage(_ context.Context, _ string, _ string, text string) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, text)
	return nil
}

// fakeRunner returns one result per selected feature (or all by default),
// recording the input it was given.
type fakeRunner struct {
	in       analyzer.Input
	selected []string
	failing  string
}

func (f *fakeRunner) Run(_ context.Context, in analyzer.Input, selected []string) []model.AnalysisResult {
	f.in = in
	f.selected = selected
	features := selected
	if len(features) == 0 {
		features = model.AllFeatures
	}
	results := make([]model.AnalysisResult, 0, len(features))
	for _, feature := range features {
		result := model.AnalysisResult{Feature: feature, Rating: "Strong", Feedback: "Looks good.", AnalyzedAt: time.Now()}
		if feature == f.failing {
			result = model.AnalysisResult{Feature: feature, Feedback: "Analysis failed: model unavailable", AnalyzedAt: time.Now()}
		}
		results = append(results, result)
	}
	return results
}

// failingFormatter forces the scene extractor onto its regex tiers.
type failingFormatter struct{}

func (failingFormatter) Complete(_ context.Context, _ string, _ string, _ float32, _ int32) (string, error) {
	return "", errors.New("formatter offline")
}

func testConfig() *cloud.Config {
	cfg := cloud.NewConfig()
	cfg.VideoUnderstanding = cloud.VideoUnderstanding{
		AssetPollAttempts:   3,
		AssetPollSeconds:    0,
		IndexedPollAttempts: 3,
		IndexedPollSeconds:  0,
		EnableVideoStream:   true,
		AnalyzeTemperature:  0.2,
	}
	cfg.PromptTemplates.SceneBreakdown = "Provide a scene-by-scene breakdown of this video."
	return cfg
}

func newWorkflow(store *fakeStore, api *fakeUnderstandingAPI, chats *fakeChats, runner *fakeRunner) *workflow.VideoAnalysisWorkflow {
	extractor := scene.NewExtractor(failingFormatter{}, "")
	return workflow.NewVideoAnalysisWorkflow(testConfig(), api, store, chats, runner, extractor)
}

// TestWorkflowHappyPath runs a complete job: resolve, analyze, extract,
// feature analysis, completion, and the chat seed.
func TestWorkflowHappyPath(t *testing.T) {
	store := newFakeStore(&model.Video{ID: "video-0001", UploaderID: "user-0001", AnalysisStatus: model.AnalysisStatusPending})
	api := &fakeUnderstandingAPI{payload: testutil.GetTestAnalyzePayloadText()}
	chats := &fakeChats{}
	runner := &fakeRunner{}
	w := newWorkflow(store, api, chats, runner)

	result, err := w.Run(context.Background(), testutil.GetTestAnalysisJobText())
	require.NoError(t, err)

	// The run's result surfaces the analyzed video, the indexed handle the
	// analysis ran against, and the per-feature results.
	require.NotNil(t, result)
	assert.Equal(t, "video-0001", result.VideoID)
	assert.Equal(t, "idx-0001", result.IndexedVideoID)
	assert.Len(t, result.Analysis, len(model.AllFeatures))

	video := store.videos["video-0001"]
	assert.Equal(t, model.AnalysisStatusCompleted, video.AnalysisStatus)
	assert.True(t, video.IsAnalysisReady)
	assert.Equal(t, "idx-0001", video.IndexedVideoID)
	require.Len(t, video.Scenes, 3)
	assert.Equal(t, "WAIT FOR IT", video.Scenes[0].OnScreenText)
	assert.Len(t, video.Analysis, len(model.AllFeatures))

	// The job's handle was used for the analyze call, with the configured
	// prompt, and no re-indexing happened.
	assert.Equal(t, "idx-0001", api.lastVideoID)
	assert.Equal(t, "Provide a scene-by-scene breakdown of this video.", api.lastPrompt)
	assert.Zero(t, api.indexCalls)

	// The hook seed came from the scene marked as the hook.
	assert.Equal(t, "Jump cut entrance", runner.in.Hook)

	require.Len(t, chats.messages, 1)
	assert.True(t, strings.HasPrefix(chats.messages[0], "Video analysis complete."))
	assert.Contains(t, chats.messages[0], "- Structure review: 3 scenes detected.")

	assert.Equal(t, []string{model.AnalysisStatusProcessing, model.AnalysisStatusCompleted}, store.transitions)
}

// TestWorkflowFeatureFailureStillCompletes verifies a failed feature
// result does not fail the workflow or the video.
func TestWorkflowFeatureFailureStillCompletes(t *testing.T) {
	store := newFakeStore(&model.Video{ID: "video-0001", AnalysisStatus: model.AnalysisStatusPending})
	api := &fakeUnderstandingAPI{payload: testutil.GetTestAnalyzePayloadText()}
	runner := &fakeRunner{failing: model.FeatureAudio}
	w := newWorkflow(store, api, &fakeChats{}, runner)

	_, err := w.Run(context.Background(), testutil.GetTestAnalysisJobText())
	require.NoError(t, err)

	video := store.videos["video-0001"]
	assert.Equal(t, model.AnalysisStatusCompleted, video.AnalysisStatus)
	for _, result := range video.Analysis {
		if result.Feature == model.FeatureAudio {
			assert.True(t, strings.HasPrefix(result.Feedback, "Analysis failed: "))
		}
	}
}

// TestWorkflowBadJobMessage verifies unparseable jobs fail without
// touching any video.
func TestWorkflowBadJobMessage(t *testing.T) {
	store := newFakeStore()
	w := newWorkflow(store, &fakeUnderstandingAPI{}, &fakeChats{}, &fakeRunner{})

	_, err := w.Run(context.Background(), "not json")

	require.Error(t, err)
	assert.Empty(t, store.transitions)
}

// TestWorkflowVideoNotFound verifies a job for a deleted video surfaces
// the not-found error.
func TestWorkflowVideoNotFound(t *testing.T) {
	store := newFakeStore()
	w := newWorkflow(store, &fakeUnderstandingAPI{}, &fakeChats{}, &fakeRunner{})

	_, err := w.Run(context.Background(), testutil.GetTestAnalysisJobText())

	assert.ErrorIs(t, err, services.ErrVideoNotFound)
}

// TestWorkflowAnalyzeFailureMarksFailed verifies a pre-feature failure
// flips the claimed video to failed and skips the chat seed.
func TestWorkflowAnalyzeFailureMarksFailed(t *testing.T) {
	store := newFakeStore(&model.Video{ID: "video-0001", AnalysisStatus: model.AnalysisStatusPending})
	api := &fakeUnderstandingAPI{analyzeErr: errors.New("service unavailable")}
	chats := &fakeChats{}
	w := newWorkflow(store, api, chats, &fakeRunner{})

	_, err := w.Run(context.Background(), testutil.GetTestAnalysisJobText())

	require.Error(t, err)
	assert.Equal(t, model.AnalysisStatusFailed, store.videos["video-0001"].AnalysisStatus)
	assert.Empty(t, chats.messages)
}

// TestWorkflowRecoversUnindexedAsset verifies a video left with only a
// raw asset handle gets indexed before analysis.
func TestWorkflowRecoversUnindexedAsset(t *testing.T) {
	store := newFakeStore(&model.Video{ID: "video-0001", ExternalAssetID: "asset-1", AnalysisStatus: model.AnalysisStatusPending})
	api := &fakeUnderstandingAPI{payload: testutil.GetTestAnalyzePayloadText()}
	w := newWorkflow(store, api, &fakeChats{}, &fakeRunner{})

	job := `{"videoId": "video-0001", "userId": "user-0001"}`
	_, err := w.Run(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, 1, api.indexCalls)
	assert.Equal(t, "idx-new", store.videos["video-0001"].IndexedVideoID)
	assert.Equal(t, "idx-new", api.lastVideoID)
}

// TestWorkflowRejectsUnaddressableVideo verifies a video with no handles
// at all fails with the missing-handle error before being claimed.
func TestWorkflowRejectsUnaddressableVideo(t *testing.T) {
	store := newFakeStore(&model.Video{ID: "video-0001", AnalysisStatus: model.AnalysisStatusPending})
	w := newWorkflow(store, &fakeUnderstandingAPI{}, &fakeChats{}, &fakeRunner{})

	job := `{"videoId": "video-0001", "userId": "user-0001"}`
	_, err := w.Run(context.Background(), job)

	require.Error(t, err)
	assert.Equal(t, model.AnalysisStatusPending, store.videos["video-0001"].AnalysisStatus)
}

// TestWorkflowRejectsConcurrentRun verifies a duplicate delivery loses
// the processing claim and leaves the first run's state alone.
func TestWorkflowRejectsConcurrentRun(t *testing.T) {
	store := newFakeStore(&model.Video{ID: "video-0001", IndexedVideoID: "idx-0001", AnalysisStatus: model.AnalysisStatusProcessing})
	api := &fakeUnderstandingAPI{payload: testutil.GetTestAnalyzePayloadText()}
	w := newWorkflow(store, api, &fakeChats{}, &fakeRunner{})

	_, err := w.Run(context.Background(), testutil.GetTestAnalysisJobText())

	assert.ErrorIs(t, err, services.ErrAlreadyProcessing)
	assert.Equal(t, model.AnalysisStatusProcessing, store.videos["video-0001"].AnalysisStatus)
	assert.Zero(t, api.analyzeCalls)
}

// TestWorkflowChatSeedFailureSwallowed verifies a chat store outage does
// not fail a completed analysis.
func TestWorkflowChatSeedFailureSwallowed(t *testing.T) {
	store := newFakeStore(&model.Video{ID: "video-0001", AnalysisStatus: model.AnalysisStatusPending})
	api := &fakeUnderstandingAPI{payload: testutil.GetTestAnalyzePayloadText()}
	chats := &fakeChats{err: errors.New("chat store down")}
	w := newWorkflow(store, api, chats, &fakeRunner{})

	_, err := w.Run(context.Background(), testutil.GetTestAnalysisJobText())

	require.NoError(t, err)
	assert.Equal(t, model.AnalysisStatusCompleted, store.videos["video-0001"].AnalysisStatus)
}

// TestWorkflowSelectedFeaturesForwarded verifies the video's selection
// reaches the analyzer set untouched.
func TestWorkflowSelectedFeaturesForwarded(t *testing.T) {
	store := newFakeStore(&model.Video{
		ID:               "video-0001",
		AnalysisStatus:   model.AnalysisStatusPending,
		SelectedFeatures: []string{model.FeaturePacing, model.FeatureHook},
	})
	api := &fakeUnderstandingAPI{payload: testutil.GetTestAnalyzePayloadText()}
	runner := &fakeRunner{}
	w := newWorkflow(store, api, &fakeChats{}, runner)

	_, err := w.Run(context.Background(), testutil.GetTestAnalysisJobText())
	require.NoError(t, err)

	assert.Equal(t, []string{model.FeaturePacing, model.FeatureHook}, runner.selected)
	require.Len(t, store.videos["video-0001"].Analysis, 2)
}
