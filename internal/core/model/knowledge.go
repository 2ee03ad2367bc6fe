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

package model

import "time"

// Knowledge layer values. Raw entries are verbatim observations, patterns
// are distilled heuristics, and examples are concrete reference clips.
const (
	KnowledgeLayerRaw     = "raw"
	KnowledgeLayerPattern = "pattern"
	KnowledgeLayerExample = "example"
)

// KnowledgeMetadata describes where a knowledge base entry came from and
// which analyzer topic it informs.
type KnowledgeMetadata struct {
	Topic      string    `json:"topic" bson:"topic"` // Matches a feature name (e.g. "hook", "caption").
	Layer      string    `json:"layer" bson:"layer"`
	VideoID    string    `json:"videoId,omitempty" bson:"video_id,omitempty"`
	Views      int64     `json:"views,omitempty" bson:"views,omitempty"`
	Author     string    `json:"author" bson:"author"`
	Date       time.Time `json:"date,omitempty" bson:"date,omitempty"`
	Source     string    `json:"source" bson:"source"`
	Tags       []string  `json:"tags,omitempty" bson:"tags,omitempty"`
	Confidence float64   `json:"confidence,omitempty" bson:"confidence,omitempty"`
}

// KnowledgeDocument is one entry in the knowledge base: a piece of content
// with its embedding vector, retrieved by the analyzers through vector
// search to ground their feedback.
type KnowledgeDocument struct {
	ID        string            `json:"id" bson:"_id"`
	Content   string            `json:"content" bson:"content"`
	Embedding []float64         `json:"-" bson:"embedding"`
	Metadata  KnowledgeMetadata `json:"metadata" bson:"metadata"`
	CreatedAt time.Time         `json:"createdAt" bson:"createdAt"`
}

// KnowledgeHit is a single vector search match handed to an analyzer.
type KnowledgeHit struct {
	Content string  `bson:"content"`
	Layer   string  `bson:"layer"`
	Score   float64 `bson:"score"`
}
