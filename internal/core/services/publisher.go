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

package services

import (
	"context"
	"encoding/json"

	"cloud.google.com/go/pubsub"

	"github.com/cliplens/video-analysis/internal/core/model"
)

// TopicPublisher publishes analysis jobs to a Pub/Sub topic, where the
// analysis workflow's listener picks them up.
type TopicPublisher struct {
	topic *pubsub.Topic
}

// NewTopicPublisher wraps an existing topic handle.
func NewTopicPublisher(topic *pubsub.Topic) *TopicPublisher {
	return &TopicPublisher{topic: topic}
}

// PublishAnalysisJob serializes the job and blocks until the server
// acknowledges it, returning the server-assigned message ID.
func (p *TopicPublisher) PublishAnalysisJob(ctx context.Context, job *model.AnalysisJob) (string, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return "", err
	}
	result := p.topic.Publish(ctx, &pubsub.Message{Data: data})
	return result.Get(ctx)
}
