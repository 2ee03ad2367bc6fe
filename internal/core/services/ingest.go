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

// This file implements the video ingest service. Logic Flow:
//
//  1. Register the video document with upload status "uploading".
//  2. Create an asset at the video understanding service from the source
//     URL and wait for it to become ready.
//  3. Submit the ready asset to the index and wait for the indexed copy.
//  4. Mark the upload completed and publish the analysis job. The video
//     stays analysis-pending until the pipeline claims it; a publish
//     failure is logged but never fails the upload itself.
//
// Deletion is best-effort in the opposite order: remote resources first,
// then chats, then the document, continuing past individual failures.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/cliplens/video-analysis/internal/cloud"
	"github.com/cliplens/video-analysis/internal/core/model"
)

// ErrInvalidSourceURL reports a source URL that cannot be parsed.
var ErrInvalidSourceURL = errors.New("invalid source url")

// VideoRepository is the slice of the video store the ingest service
// uses. Satisfied by VideoStore.
type VideoRepository interface {
	Create(ctx context.Context, video *model.Video) error
	Get(ctx context.Context, id string) (*model.Video, error)
	ListByUploader(ctx context.Context, uploaderID string) ([]*model.Video, error)
	Delete(ctx context.Context, id string) error
	SetUploadStatus(ctx context.Context, id string, status string) error
	SetAnalysisStatus(ctx context.Context, id string, status string) error
	SetExternalHandles(ctx context.Context, id string, assetID string, indexedID string) error
	MarkAnalysisViewed(ctx context.Context, id string) error
}

// ChatRepository is the slice of the chat store the ingest service uses.
// Satisfied by ChatStore.
type ChatRepository interface {
	DeleteByVideo(ctx context.Context, videoID string) error
}

// AssetAPI is the slice of the video understanding client the ingest
// service uses. Satisfied by cloud.VideoIntelClient.
type AssetAPI interface {
	CreateAssetFromURL(ctx context.Context, videoURL string) (string, error)
	GetAssetStatus(ctx context.Context, assetID string) (string, error)
	CreateIndexedAsset(ctx context.Context, assetID string, enableStream bool) (string, error)
	GetIndexedAssetStatus(ctx context.Context, indexedID string) (string, error)
	DeleteAsset(ctx context.Context, assetID string) error
	DeleteIndexedAsset(ctx context.Context, indexedID string) error
}

// JobPublisher hands completed uploads off to the analysis pipeline.
type JobPublisher interface {
	PublishAnalysisJob(ctx context.Context, job *model.AnalysisJob) (string, error)
}

// IngestService owns the upload, listing, and deletion of videos.
type IngestService struct {
	videos        VideoRepository
	chats         ChatRepository
	assets        AssetAPI
	publisher     JobPublisher
	assetPoller   *cloud.ReadinessPoller
	indexedPoller *cloud.ReadinessPoller
	enableStream  bool
}

// NewIngestService wires the ingest service. The two pollers carry the
// asset and indexed-asset wait budgets from configuration.
func NewIngestService(videos VideoRepository, chats ChatRepository, assets AssetAPI, publisher JobPublisher,
	assetPoller *cloud.ReadinessPoller, indexedPoller *cloud.ReadinessPoller, enableStream bool) *IngestService {
	return &IngestService{
		videos:        videos,
		chats:         chats,
		assets:        assets,
		publisher:     publisher,
		assetPoller:   assetPoller,
		indexedPoller: indexedPoller,
		enableStream:  enableStream,
	}
}

// CreateFromURL ingests a video from a publicly reachable URL and queues
// it for analysis. The returned video reflects the state after the
// attempted handoff.
func (s *IngestService) CreateFromURL(ctx context.Context, userID string, title string, sourceURL string, selectedFeatures []string) (*model.Video, error) {
	parsed, err := url.Parse(sourceURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSourceURL, sourceURL)
	}
	if selectedFeatures == nil {
		selectedFeatures = []string{}
	}

	video := &model.Video{
		UploaderID:       userID,
		Title:            title,
		SourceURL:        sourceURL,
		UploadStatus:     model.UploadStatusUploading,
		AnalysisStatus:   model.AnalysisStatusPending,
		SelectedFeatures: selectedFeatures,
	}
	if err := s.videos.Create(ctx, video); err != nil {
		return nil, err
	}

	assetID, indexedID, err := s.ingestRemote(ctx, video.ID, sourceURL)
	if err != nil {
		if statusErr := s.videos.SetUploadStatus(ctx, video.ID, model.UploadStatusFailed); statusErr != nil {
			slog.Error("failed to record upload failure", "videoId", video.ID, "error", statusErr)
		}
		return nil, fmt.Errorf("failed to ingest video from url: %w", err)
	}

	video.ExternalAssetID = assetID
	video.IndexedVideoID = indexedID
	video.UploadStatus = model.UploadStatusCompleted
	if err := s.videos.SetExternalHandles(ctx, video.ID, assetID, indexedID); err != nil {
		return nil, err
	}
	if err := s.videos.SetUploadStatus(ctx, video.ID, model.UploadStatusCompleted); err != nil {
		return nil, err
	}

	// The video stays analysis-pending here. The pipeline owns the
	// pending-to-processing transition, which doubles as its guard against
	// duplicate job deliveries.
	job := &model.AnalysisJob{VideoID: video.ID, IndexedVideoID: indexedID, UserID: userID}
	messageID, err := s.publisher.PublishAnalysisJob(ctx, job)
	if err != nil {
		// The upload itself succeeded; leave the video pending for a
		// later retry instead of failing the request.
		slog.Error("failed to publish analysis job", "videoId", video.ID, "error", err)
		return video, nil
	}
	slog.Info("analysis job published", "videoId", video.ID, "indexedVideoId", indexedID, "messageId", messageID)

	return video, nil
}

// ingestRemote runs the asset create, wait, index, wait sequence and
// returns both handles.
func (s *IngestService) ingestRemote(ctx context.Context, videoID string, sourceURL string) (string, string, error) {
	assetID, err := s.assets.CreateAssetFromURL(ctx, sourceURL)
	if err != nil {
		return "", "", err
	}
	slog.Info("asset created", "videoId", videoID, "assetId", assetID)

	// Persist the asset handle before the wait so a timeout still leaves
	// the remote resource traceable for deletion.
	if err := s.videos.SetExternalHandles(ctx, videoID, assetID, ""); err != nil {
		return "", "", err
	}
	if err := s.assetPoller.Await(ctx, assetID, s.assets.GetAssetStatus); err != nil {
		return "", "", err
	}

	indexedID, err := s.assets.CreateIndexedAsset(ctx, assetID, s.enableStream)
	if err != nil {
		return "", "", err
	}
	slog.Info("asset indexed", "videoId", videoID, "indexedVideoId", indexedID)

	if err := s.indexedPoller.Await(ctx, indexedID, s.assets.GetIndexedAssetStatus); err != nil {
		return "", "", err
	}
	return assetID, indexedID, nil
}

// List returns the user's videos, newest first.
func (s *IngestService) List(ctx context.Context, userID string) ([]*model.Video, error) {
	return s.videos.ListByUploader(ctx, userID)
}

// Get returns one of the user's videos.
func (s *IngestService) Get(ctx context.Context, videoID string, userID string) (*model.Video, error) {
	return s.ownedVideo(ctx, videoID, userID)
}

// Delete removes a video along with its remote assets and conversations.
// Remote and chat cleanup is best-effort: failures are logged and the
// remaining resources are still attempted, the document delete last.
func (s *IngestService) Delete(ctx context.Context, videoID string, userID string) error {
	video, err := s.ownedVideo(ctx, videoID, userID)
	if err != nil {
		return err
	}

	if video.IndexedVideoID != "" {
		if err := s.assets.DeleteIndexedAsset(ctx, video.IndexedVideoID); err != nil {
			slog.Error("failed to delete indexed asset", "videoId", videoID, "indexedVideoId", video.IndexedVideoID, "error", err)
		}
	}
	if video.ExternalAssetID != "" {
		if err := s.assets.DeleteAsset(ctx, video.ExternalAssetID); err != nil {
			slog.Error("failed to delete asset", "videoId", videoID, "assetId", video.ExternalAssetID, "error", err)
		}
	}
	if err := s.chats.DeleteByVideo(ctx, videoID); err != nil {
		slog.Error("failed to delete chats", "videoId", videoID, "error", err)
	}

	return s.videos.Delete(ctx, videoID)
}

// MarkViewed acknowledges the analysis for the owner.
func (s *IngestService) MarkViewed(ctx context.Context, videoID string, userID string) (*model.Video, error) {
	video, err := s.ownedVideo(ctx, videoID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.videos.MarkAnalysisViewed(ctx, videoID); err != nil {
		return nil, err
	}
	video.IsAnalysisReady = true
	return video, nil
}

// ownedVideo loads a video and hides it from everyone but its uploader.
func (s *IngestService) ownedVideo(ctx context.Context, videoID string, userID string) (*model.Video, error) {
	video, err := s.videos.Get(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if video.UploaderID != userID {
		return nil, ErrVideoNotFound
	}
	return video, nil
}
