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

// Package services contains the business logic for interacting with data
// sources. This file defines the VideoStore, the data access layer for
// video documents in MongoDB: creation, lookup, the analysis status
// machine, and the persistence steps the workflow commands call.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cliplens/video-analysis/internal/cloud"
	"github.com/cliplens/video-analysis/internal/core/model"
)

// Sentinel errors for the store's callers to branch on.
var (
	ErrVideoNotFound     = errors.New("video not found")
	ErrAlreadyProcessing = errors.New("video analysis already in progress")
)

// VideoStore is the data access layer for video documents.
type VideoStore struct {
	col *mongo.Collection
}

// NewVideoStore binds the store to the configured video collection.
func NewVideoStore(client *mongo.Client, cfg *cloud.MongoDataSource) *VideoStore {
	return &VideoStore{col: client.Database(cfg.Database).Collection(cfg.VideoCollection)}
}

// Create inserts a new video document, assigning an ID and timestamps
// when they are missing.
func (s *VideoStore) Create(ctx context.Context, video *model.Video) error {
	now := time.Now()
	if video.ID == "" {
		video.ID = uuid.NewString()
	}
	if video.CreatedAt.IsZero() {
		video.CreatedAt = now
	}
	video.UpdatedAt = now
	_, err := s.col.InsertOne(ctx, video)
	return err
}

// Get retrieves a video by its ID, returning ErrVideoNotFound when no
// document exists.
func (s *VideoStore) Get(ctx context.Context, id string) (*model.Video, error) {
	video := &model.Video{}
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(video)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrVideoNotFound
	}
	if err != nil {
		return nil, err
	}
	return video, nil
}

// ListByUploader returns the uploader's videos, newest first.
func (s *VideoStore) ListByUploader(ctx context.Context, uploaderID string) ([]*model.Video, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.col.Find(ctx, bson.M{"uploader_id": uploaderID}, opts)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cursor.Close(ctx) }()

	videos := make([]*model.Video, 0)
	if err := cursor.All(ctx, &videos); err != nil {
		return nil, err
	}
	return videos, nil
}

// Delete removes a video document.
func (s *VideoStore) Delete(ctx context.Context, id string) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrVideoNotFound
	}
	return nil
}

// update applies a $set patch plus the updatedAt bump.
func (s *VideoStore) update(ctx context.Context, id string, set bson.M) error {
	set["updatedAt"] = time.Now()
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrVideoNotFound
	}
	return nil
}

// SetUploadStatus records an upload status transition.
func (s *VideoStore) SetUploadStatus(ctx context.Context, id string, status string) error {
	return s.update(ctx, id, bson.M{"uploadStatus": status})
}

// SetAnalysisStatus records an analysis status transition.
func (s *VideoStore) SetAnalysisStatus(ctx context.Context, id string, status string) error {
	return s.update(ctx, id, bson.M{"analysisStatus": status})
}

// BeginProcessing flips the video into the processing state, rejecting
// the transition when another run already holds it. The compare is done
// in the update filter so two concurrent job deliveries cannot both win.
func (s *VideoStore) BeginProcessing(ctx context.Context, id string) error {
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": id, "analysisStatus": bson.M{"$ne": model.AnalysisStatusProcessing}},
		bson.M{"$set": bson.M{"analysisStatus": model.AnalysisStatusProcessing, "updatedAt": time.Now()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// Either the video is gone or another run owns it; disambiguate.
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return getErr
		}
		return ErrAlreadyProcessing
	}
	return nil
}

// SetExternalHandles stores the service-side asset handles on the video.
// Empty values are skipped so partial progress is never erased.
func (s *VideoStore) SetExternalHandles(ctx context.Context, id string, assetID string, indexedID string) error {
	set := bson.M{}
	if assetID != "" {
		set["externalAssetId"] = assetID
	}
	if indexedID != "" {
		set["indexedVideoId"] = indexedID
	}
	if len(set) == 0 {
		return nil
	}
	return s.update(ctx, id, set)
}

// SaveScenes persists the extracted scene breakdown.
func (s *VideoStore) SaveScenes(ctx context.Context, id string, scenes []*model.Scene) error {
	return s.update(ctx, id, bson.M{"scenes": scenes})
}

// CompleteAnalysis persists the feature results and flips the video to
// completed with its analysis ready for the owner.
func (s *VideoStore) CompleteAnalysis(ctx context.Context, id string, results []model.AnalysisResult) error {
	return s.update(ctx, id, bson.M{
		"analysis":        results,
		"analysisStatus":  model.AnalysisStatusCompleted,
		"isAnalysisReady": true,
	})
}

// FailAnalysis flips the video to failed. Called when the pipeline breaks
// before the feature stage; per-feature failures do not land here.
func (s *VideoStore) FailAnalysis(ctx context.Context, id string) error {
	return s.update(ctx, id, bson.M{"analysisStatus": model.AnalysisStatusFailed})
}

// MarkAnalysisViewed acknowledges the analysis for the owner.
func (s *VideoStore) MarkAnalysisViewed(ctx context.Context, id string) error {
	return s.update(ctx, id, bson.M{"isAnalysisReady": true})
}
