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

// Package api_test exercises the video endpoints through a real gin router
// with in-memory backends: request validation, the identity header, and
// the mapping of service errors onto HTTP statuses.
package api_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/cliplens/video-analysis/internal/api"
	"github.com/cliplens/video-analysis/internal/cloud"
	"github.com/cliplens/video-analysis/internal/core/model"
	"github.com/cliplens/video-analysis/internal/core/services"
	"github.com/cliplens/video-analysis/internal/core/workflow"
)

const userIDHeader = "X-User-Id"

type fakeVideoRepo struct {
	videos map[string]*model.Video
	nextID int
}

func newFakeVideoRepo(videos ...*model.Video) *fakeVideoRepo {
	r := &fakeVideoRepo{videos: make(map[string]*model.Video)}
	for _, v := range videos {
		r.videos[v.ID] = v
	}
	return r
}

func (r *fakeVideoRepo) Create(_ context.Context, video *model.Video) error {
	r.nextID++
	video.ID = fmt.Sprintf("video-%04d", r.nextID)
	video.CreatedAt = time.Now()
	copied := *video
	r.videos[video.ID] = &copied
	return nil
}

func (r *fakeVideoRepo) Get(_ context.Context, id string) (*model.Video, error) {
	video, ok := r.videos[id]
	if !ok {
		return nil, services.ErrVideoNotFound
	}
	copied := *video
	return &copied, nil
}

func (r *fakeVideoRepo) ListByUploader(_ context.Context, uploaderID string) ([]*model.Video, error) {
	out := []*model.Video{}
	for _, v := range r.videos {
		if v.UploaderID == uploaderID {
			copied := *v
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeVideoRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.videos[id]; !ok {
		return services.ErrVideoNotFound
	}
	delete(r.videos, id)
	return nil
}

func (r *fakeVideoRepo) SetUploadStatus(_ context.Context, id string, status string) error {
	r.videos[id].UploadStatus = status
	return nil
}

func (r *fakeVideoRepo) SetAnalysisStatus(_ context.Context, id string, status string) error {
	r.videos[id].AnalysisStatus = status
	return nil
}

func (r *fakeVideoRepo) SetExternalHandles(_ context.Context, id string, assetID string, indexedID string) error {
	if assetID != "" {
		r.videos[id].ExternalAssetID = assetID
	}
	if indexedID != "" {
		r.videos[id].IndexedVideoID = indexedID
	}
	return nil
}

func (r *fakeVideoRepo) MarkAnalysisViewed(_ context.Context, id string) error {
	r.videos[id].IsAnalysisReady = true
	return nil
}

type fakeChatRepo struct{ deleted []string }

func (r *fakeChatRepo) DeleteByVideo(_ context.Context, videoID string) error {
	r.deleted = append(r.deleted, videoID)
	return nil
}

type fakeAssetAPI struct{}

func (a *fakeAssetAPI) CreateAssetFromURL(context.Context, string) (string, error) {
	return "asset-1", nil
}

func (a *fakeAssetAPI) GetAssetStatus(context.Context, string) (string, error) {
	return cloud.AssetStatusReady, nil
}

func (a *fakeAssetAPI) CreateIndexedAsset(context.Context, string, bool) (string, error) {
	return "idx-1", nil
}

func (a *fakeAssetAPI) GetIndexedAssetStatus(context.Context, string) (string, error) {
	return cloud.AssetStatusReady, nil
}

func (a *fakeAssetAPI) DeleteAsset(context.Context, string) error        { return nil }
func (a *fakeAssetAPI) DeleteIndexedAsset(context.Context, string) error { return nil }

type fakePublisher struct{ jobs []*model.AnalysisJob }

func (p *fakePublisher) PublishAnalysisJob(_ context.Context, job *model.AnalysisJob) (string, error) {
	p.jobs = append(p.jobs, job)
	return "msg-1", nil
}

type fakeRunner struct {
	messages []string
	result   *workflow.Result
	err      error
}

func (r *fakeRunner) Run(_ context.Context, message string) (*workflow.Result, error) {
	r.messages = append(r.messages, message)
	if r.err != nil {
		return nil, r.err
	}
	if r.result != nil {
		return r.result, nil
	}
	return &workflow.Result{}, nil
}

func instantPoller() *cloud.ReadinessPoller {
	p := cloud.NewReadinessPoller(3, time.Second)
	p.Sleep = func(time.Duration) {}
	return p
}

// newTestRouter assembles the full route group over in-memory backends.
func newTestRouter(repo *fakeVideoRepo, runner *fakeRunner) (*gin.Engine, *fakePublisher) {
	gin.SetMode(gin.TestMode)
	publisher := &fakePublisher{}
	ingest := services.NewIngestService(
		repo, &fakeChatRepo{}, &fakeAssetAPI{}, publisher,
		instantPoller(), instantPoller(), true)

	r := gin.New()
	apiV1 := r.Group("/api/v1")
	api.NewVideoAPI(ingest, runner, userIDHeader).Videos(apiV1)
	return r, publisher
}

func doJSON(r *gin.Engine, method string, path string, body string, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(userIDHeader, userID)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUploadFromURL(t *testing.T) {
	repo := newFakeVideoRepo()
	router, publisher := newTestRouter(repo, &fakeRunner{})

	w := doJSON(router, http.MethodPost, "/api/v1/videos/url",
		`{"title": "Demo", "url": "https://example.com/clip.mp4", "selectedFeatures": ["hook", "pacing"]}`,
		"user-1")

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := gjson.Parse(w.Body.String())
	assert.Equal(t, "completed", body.Get("uploadStatus").String())
	assert.Equal(t, "pending", body.Get("analysisStatus").String())
	assert.Equal(t, "idx-1", body.Get("indexedVideoId").String())
	require.Len(t, publisher.jobs, 1)
	assert.Equal(t, body.Get("id").String(), publisher.jobs[0].VideoID)
}

func TestUploadRequiresUserHeader(t *testing.T) {
	router, _ := newTestRouter(newFakeVideoRepo(), &fakeRunner{})

	w := doJSON(router, http.MethodPost, "/api/v1/videos/url",
		`{"url": "https://example.com/clip.mp4"}`, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "User ID is required")
}

func TestUploadRejectsUnknownFeature(t *testing.T) {
	router, publisher := newTestRouter(newFakeVideoRepo(), &fakeRunner{})

	w := doJSON(router, http.MethodPost, "/api/v1/videos/url",
		`{"url": "https://example.com/clip.mp4", "selectedFeatures": ["sparkle"]}`, "user-1")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "sparkle")
	assert.Empty(t, publisher.jobs)
}

func TestUploadRejectsBadURL(t *testing.T) {
	router, _ := newTestRouter(newFakeVideoRepo(), &fakeRunner{})

	w := doJSON(router, http.MethodPost, "/api/v1/videos/url",
		`{"url": "not a url"}`, "user-1")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyzeRunsWorkflow(t *testing.T) {
	runner := &fakeRunner{result: &workflow.Result{
		VideoID:        "video-0001",
		IndexedVideoID: "idx-0001",
		Analysis: []model.AnalysisResult{
			{Feature: model.FeatureHook, Rating: "Strong", Feedback: "Opens fast."},
			{Feature: model.FeaturePacing, Rating: "Good", Feedback: "Even cuts."},
		},
	}}
	router, _ := newTestRouter(newFakeVideoRepo(), runner)

	w := doJSON(router, http.MethodPost, "/api/v1/videos/analyze",
		`{"videoId": "video-0001"}`, "user-1")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, runner.messages, 1)
	job := gjson.Parse(runner.messages[0])
	assert.Equal(t, "video-0001", job.Get("videoId").String())
	assert.Equal(t, "user-1", job.Get("userId").String())

	// The response carries the indexed handle and the per-feature results,
	// not just an acknowledgement.
	body := gjson.Parse(w.Body.String())
	assert.Equal(t, "video-0001", body.Get("videoId").String())
	assert.Equal(t, "idx-0001", body.Get("indexedVideoId").String())
	results := body.Get("analysisResults").Array()
	require.Len(t, results, 2)
	assert.Equal(t, model.FeatureHook, results[0].Get("feature").String())
	assert.Equal(t, "Even cuts.", results[1].Get("feedback").String())
}

func TestAnalyzeConflictOnConcurrentRun(t *testing.T) {
	runner := &fakeRunner{err: services.ErrAlreadyProcessing}
	router, _ := newTestRouter(newFakeVideoRepo(), runner)

	w := doJSON(router, http.MethodPost, "/api/v1/videos/analyze",
		`{"videoId": "video-0001"}`, "user-1")

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestListReturnsOwnVideosOnly(t *testing.T) {
	repo := newFakeVideoRepo(
		&model.Video{ID: "video-0001", UploaderID: "user-1", Title: "Mine"},
		&model.Video{ID: "video-0002", UploaderID: "user-2", Title: "Theirs"})
	router, _ := newTestRouter(repo, &fakeRunner{})

	w := doJSON(router, http.MethodGet, "/api/v1/videos", "", "user-1")

	require.Equal(t, http.StatusOK, w.Code)
	list := gjson.Parse(w.Body.String()).Array()
	require.Len(t, list, 1)
	assert.Equal(t, "Mine", list[0].Get("title").String())
}

func TestDeleteUnknownVideo(t *testing.T) {
	router, _ := newTestRouter(newFakeVideoRepo(), &fakeRunner{})

	w := doJSON(router, http.MethodDelete, "/api/v1/videos/video-0099", "", "user-1")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteHidesOtherUsersVideos(t *testing.T) {
	repo := newFakeVideoRepo(&model.Video{ID: "video-0001", UploaderID: "user-2"})
	router, _ := newTestRouter(repo, &fakeRunner{})

	w := doJSON(router, http.MethodDelete, "/api/v1/videos/video-0001", "", "user-1")

	assert.Equal(t, http.StatusNotFound, w.Code)
	_, err := repo.Get(context.Background(), "video-0001")
	assert.NoError(t, err)
}

func TestMarkViewed(t *testing.T) {
	repo := newFakeVideoRepo(&model.Video{ID: "video-0001", UploaderID: "user-1"})
	router, _ := newTestRouter(repo, &fakeRunner{})

	w := doJSON(router, http.MethodPatch, "/api/v1/videos/video-0001/viewed", "", "user-1")

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, gjson.Parse(w.Body.String()).Get("isAnalysisReady").Bool())
	video, err := repo.Get(context.Background(), "video-0001")
	require.NoError(t, err)
	assert.True(t, video.IsAnalysisReady)
}
