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

// Package services_test contains unit tests for the ingest service: the
// upload-from-URL sequence, its failure modes, and best-effort deletion.
package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliplens/video-analysis/internal/cloud"
	"github.com/cliplens/video-analysis/internal/core/model"
	"github.com/cliplens/video-analysis/internal/core/services"
)

// fakeVideoRepo is an in-memory VideoRepository.
type fakeVideoRepo struct {
	videos map[string]*model.Video
}

func newFakeVideoRepo() *fakeVideoRepo {
	return &fakeVideoRepo{videos: make(map[string]*model.Video)}
}

func (f *fakeVideoRepo) Create(_ context.Context, video *model.Video) error {
	if video.ID == "" {
		video.ID = "video-0001"
	}
	copied := *video
	f.videos[video.ID] = &copied
	return nil
}

func (f *fakeVideoRepo) Get(_ context.Context, id string) (*model.Video, error) {
	video, ok := f.videos[id]
	if !ok {
		return nil, services.ErrVideoNotFound
	}
	copied := *video
	return &copied, nil
}

func (f *fakeVideoRepo) ListByUploader(_ context.Context, uploaderID string) ([]*model.Video, error) {
	out := make([]*model.Video, 0)
	for _, v := range f.videos {
		if v.UploaderID == uploaderID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeVideoRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.videos[id]; !ok {
		return services.ErrVideoNotFound
	}
	delete(f.videos, id)
	return nil
}

func (f *fakeVideoRepo) SetUploadStatus(_ context.Context, id string, status string) error {
	f.videos[id].UploadStatus = status
	return nil
}

func (f *fakeVideoRepo) SetAnalysisStatus(_ context.Context, id string, status string) error {
	f.videos[id].AnalysisStatus = status
	return nil
}

func (f *fakeVideoRepo) SetExternalHandles(_ context.Context, id string, assetID string, indexedID string) error {
	if assetID != "" {
		f.videos[id].ExternalAssetID = assetID
	}
	if indexedID != "" {
		f.videos[id].IndexedVideoID = indexedID
	}
	return nil
}

func (f *fakeVideoRepo) MarkAnalysisViewed(_ context.Context, id string) error {
	f.videos[id].IsAnalysisReady = true
	return nil
}

type fakeChatRepo struct {
	deleted []string
	err     error
}

func (f *fakeChatRepo) DeleteByVideo(_ context.Context, videoID string) error {
	f.deleted = append(f.deleted, videoID)
	return f.err
}

// fakeAssetAPI scripts the video understanding service.
type fakeAssetAPI struct {
	createErr         error
	indexErr          error
	assetStatuses     []string
	indexedStatuses   []string
	assetCalls        int
	indexedCalls      int
	deletedAssets     []string
	deletedIndexed    []string
	deleteAssetErr    error
	deleteIndexedErr  error
	lastEnableStream  bool
	lastIndexedAsset  string
	lastCreateFromURL string
}

func (f *fakeAssetAPI) CreateAssetFromURL(_ context.Context, videoURL string) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.lastCreateFromURL = videoURL
	return "asset-1", nil
}

func (f *fakeAssetAPI) GetAssetStatus(_ context.Context, _ string) (string, error) {
	status := f.assetStatuses[f.assetCalls]
	if f.assetCalls < len(f.assetStatuses)-1 {
		f.assetCalls++
	}
	return status, nil
}

func (f *fakeAssetAPI) CreateIndexedAsset(_ context.Context, assetID string, enableStream bool) (string, error) {
	if f.indexErr != nil {
		return "", f.indexErr
	}
	f.lastIndexedAsset = assetID
	f.lastEnableStream = enableStream
	return "idx-1", nil
}

func (f *fakeAssetAPI) GetIndexedAssetStatus(_ context.Context, _ string) (string, error) {
	status := f.indexedStatuses[f.indexedCalls]
	if f.indexedCalls < len(f.indexedStatuses)-1 {
		f.indexedCalls++
	}
	return status, nil
}

func (f *fakeAssetAPI) DeleteAsset(_ context.Context, assetID string) error {
	f.deletedAssets = append(f.deletedAssets, assetID)
	return f.deleteAssetErr
}

func (f *fakeAssetAPI) DeleteIndexedAsset(_ context.Context, indexedID string) error {
	f.deletedIndexed = append(f.deletedIndexed, indexedID)
	return f.deleteIndexedErr
}

type fakePublisher struct {
	jobs []*model.AnalysisJob
	err  error
}

func (f *fakePublisher) PublishAnalysisJob(_ context.Context, job *model.AnalysisJob) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.jobs = append(f.jobs, job)
	return "msg-1", nil
}

func instantPoller(maxAttempts int) *cloud.ReadinessPoller {
	p := cloud.NewReadinessPoller(maxAttempts, time.Second)
	p.Sleep = func(time.Duration) {}
	return p
}

func newIngestService(repo *fakeVideoRepo, chats *fakeChatRepo, assets *fakeAssetAPI, publisher *fakePublisher) *services.IngestService {
	return services.NewIngestService(repo, chats, assets, publisher, instantPoller(30), instantPoller(30), true)
}

// TestCreateFromURLHappyPath verifies the full upload sequence: asset
// creation, both readiness waits, the status transitions, and the job
// handed to the queue.
func TestCreateFromURLHappyPath(t *testing.T) {
	repo := newFakeVideoRepo()
	assets := &fakeAssetAPI{
		assetStatuses:   []string{"processing", "ready"},
		indexedStatuses: []string{"indexing", "ready"},
	}
	publisher := &fakePublisher{}
	svc := newIngestService(repo, &fakeChatRepo{}, assets, publisher)

	video, err := svc.CreateFromURL(context.Background(), "user-1", "My clip", "https://cdn.example.com/clip.mp4", nil)
	require.NoError(t, err)

	assert.Equal(t, model.UploadStatusCompleted, video.UploadStatus)
	assert.Equal(t, model.AnalysisStatusPending, video.AnalysisStatus)
	assert.Equal(t, "asset-1", video.ExternalAssetID)
	assert.Equal(t, "idx-1", video.IndexedVideoID)
	assert.Equal(t, "asset-1", assets.lastIndexedAsset)
	assert.True(t, assets.lastEnableStream)

	stored, err := repo.Get(context.Background(), video.ID)
	require.NoError(t, err)
	assert.Equal(t, model.UploadStatusCompleted, stored.UploadStatus)
	assert.Equal(t, model.AnalysisStatusPending, stored.AnalysisStatus)
	assert.NotNil(t, stored.SelectedFeatures)

	require.Len(t, publisher.jobs, 1)
	assert.Equal(t, video.ID, publisher.jobs[0].VideoID)
	assert.Equal(t, "idx-1", publisher.jobs[0].IndexedVideoID)
	assert.Equal(t, "user-1", publisher.jobs[0].UserID)
}

// TestCreateFromURLInvalidURL verifies malformed URLs are rejected before
// any document or remote resource is created.
func TestCreateFromURLInvalidURL(t *testing.T) {
	repo := newFakeVideoRepo()
	svc := newIngestService(repo, &fakeChatRepo{}, &fakeAssetAPI{}, &fakePublisher{})

	_, err := svc.CreateFromURL(context.Background(), "user-1", "My clip", "not a url", nil)

	assert.ErrorIs(t, err, services.ErrInvalidSourceURL)
	assert.Empty(t, repo.videos)
}

// TestCreateFromURLVendorFailure verifies a failed remote ingest marks
// the upload failed and surfaces the error.
func TestCreateFromURLVendorFailure(t *testing.T) {
	repo := newFakeVideoRepo()
	assets := &fakeAssetAPI{createErr: errors.New("service unavailable")}
	svc := newIngestService(repo, &fakeChatRepo{}, assets, &fakePublisher{})

	_, err := svc.CreateFromURL(context.Background(), "user-1", "My clip", "https://cdn.example.com/clip.mp4", nil)
	require.Error(t, err)

	stored, getErr := repo.Get(context.Background(), "video-0001")
	require.NoError(t, getErr)
	assert.Equal(t, model.UploadStatusFailed, stored.UploadStatus)
}

// TestCreateFromURLQueueFailure verifies a publish failure leaves the
// upload successful with the analysis still pending.
func TestCreateFromURLQueueFailure(t *testing.T) {
	repo := newFakeVideoRepo()
	assets := &fakeAssetAPI{assetStatuses: []string{"ready"}, indexedStatuses: []string{"ready"}}
	publisher := &fakePublisher{err: errors.New("queue down")}
	svc := newIngestService(repo, &fakeChatRepo{}, assets, publisher)

	video, err := svc.CreateFromURL(context.Background(), "user-1", "My clip", "https://cdn.example.com/clip.mp4", nil)
	require.NoError(t, err)

	assert.Equal(t, model.UploadStatusCompleted, video.UploadStatus)
	assert.Equal(t, model.AnalysisStatusPending, video.AnalysisStatus)
	assert.Empty(t, publisher.jobs)

	stored, err := repo.Get(context.Background(), video.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AnalysisStatusPending, stored.AnalysisStatus)
}

// TestDeleteBestEffort verifies remote and chat cleanup failures do not
// stop the document from being removed.
func TestDeleteBestEffort(t *testing.T) {
	repo := newFakeVideoRepo()
	require.NoError(t, repo.Create(context.Background(), &model.Video{
		ID: "video-1", UploaderID: "user-1",
		ExternalAssetID: "asset-1", IndexedVideoID: "idx-1",
	}))
	assets := &fakeAssetAPI{
		deleteAssetErr:   errors.New("gone already"),
		deleteIndexedErr: errors.New("gone already"),
	}
	chats := &fakeChatRepo{err: errors.New("chat store down")}
	svc := newIngestService(repo, chats, assets, &fakePublisher{})

	err := svc.Delete(context.Background(), "video-1", "user-1")
	require.NoError(t, err)

	assert.Equal(t, []string{"idx-1"}, assets.deletedIndexed)
	assert.Equal(t, []string{"asset-1"}, assets.deletedAssets)
	assert.Equal(t, []string{"video-1"}, chats.deleted)
	assert.Empty(t, repo.videos)
}

// TestDeleteHidesOtherUsersVideos verifies ownership is enforced as a
// not-found rather than a permissions hint.
func TestDeleteHidesOtherUsersVideos(t *testing.T) {
	repo := newFakeVideoRepo()
	require.NoError(t, repo.Create(context.Background(), &model.Video{ID: "video-1", UploaderID: "user-1"}))
	svc := newIngestService(repo, &fakeChatRepo{}, &fakeAssetAPI{}, &fakePublisher{})

	err := svc.Delete(context.Background(), "video-1", "user-2")

	assert.ErrorIs(t, err, services.ErrVideoNotFound)
	assert.Len(t, repo.videos, 1)
}

// TestMarkViewed verifies the acknowledgement flag is persisted for the
// owner and hidden from others.
func TestMarkViewed(t *testing.T) {
	repo := newFakeVideoRepo()
	require.NoError(t, repo.Create(context.Background(), &model.Video{ID: "video-1", UploaderID: "user-1"}))
	svc := newIngestService(repo, &fakeChatRepo{}, &fakeAssetAPI{}, &fakePublisher{})

	video, err := svc.MarkViewed(context.Background(), "video-1", "user-1")
	require.NoError(t, err)
	assert.True(t, video.IsAnalysisReady)

	stored, err := repo.Get(context.Background(), "video-1")
	require.NoError(t, err)
	assert.True(t, stored.IsAnalysisReady)

	_, err = svc.MarkViewed(context.Background(), "video-1", "user-2")
	assert.ErrorIs(t, err, services.ErrVideoNotFound)
}
