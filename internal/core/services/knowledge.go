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

// This file defines the KnowledgeStore, the retrieval layer over the
// knowledge base collection. Feature analyzers ground their prompts on
// documents fetched here via Atlas vector search.
package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/cliplens/video-analysis/internal/cloud"
	"github.com/cliplens/video-analysis/internal/core/model"
)

// KnowledgeStore is the retrieval layer for knowledge base documents.
type KnowledgeStore struct {
	col           *mongo.Collection
	index         string
	numCandidates int64
}

// NewKnowledgeStore binds the store to the configured knowledge collection
// and its vector index.
func NewKnowledgeStore(client *mongo.Client, cfg *cloud.MongoDataSource) *KnowledgeStore {
	return &KnowledgeStore{
		col:           client.Database(cfg.Database).Collection(cfg.KnowledgeCollection),
		index:         cfg.VectorIndex,
		numCandidates: cfg.VectorNumCandidates,
	}
}

// SearchByTopic runs an approximate nearest neighbor search over the
// knowledge base, restricted to documents tagged with the given topic.
// Results come back ordered by similarity score, best first.
func (s *KnowledgeStore) SearchByTopic(ctx context.Context, embedding []float64, topic string, limit int64) ([]model.KnowledgeHit, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$vectorSearch", Value: bson.D{
			{Key: "index", Value: s.index},
			{Key: "path", Value: "embedding"},
			{Key: "queryVector", Value: embedding},
			{Key: "numCandidates", Value: s.numCandidates},
			{Key: "limit", Value: limit},
			{Key: "filter", Value: bson.D{{Key: "metadata.topic", Value: topic}}},
		}}},
		bson.D{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "content", Value: 1},
			{Key: "layer", Value: "$metadata.layer"},
			{Key: "score", Value: bson.D{{Key: "$meta", Value: "vectorSearchScore"}}},
		}}},
	}

	cursor, err := s.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cursor.Close(ctx) }()

	hits := make([]model.KnowledgeHit, 0)
	if err := cursor.All(ctx, &hits); err != nil {
		return nil, err
	}
	return hits, nil
}

// Insert stores a knowledge base document, typically from a seeding run.
func (s *KnowledgeStore) Insert(ctx context.Context, doc *model.KnowledgeDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	_, err := s.col.InsertOne(ctx, doc)
	return err
}
