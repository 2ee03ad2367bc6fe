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

// This file defines the command that turns a parsed analysis job into a
// runnable unit of work.
//
// Logic Flow:
//  1. Load the video document the job points at; a missing video fails the
//     workflow.
//  2. Resolve the indexed video handle: the document's handle wins, the
//     job's handle is the fallback and is persisted onto the document when
//     used. A video with neither an indexed handle nor a raw asset handle
//     cannot be analyzed.
//  3. Claim the video by flipping its analysis status to processing. The
//     claim is a compare-and-set in the store, so a duplicate delivery of
//     the same job loses here instead of running the analysis twice.
package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/cliplens/video-analysis/internal/core/cor"
	"github.com/cliplens/video-analysis/internal/core/model"
)

// ErrNoIndexedHandle reports a video that has no handle the analysis
// endpoint could address.
var ErrNoIndexedHandle = errors.New("video has no indexed handle for analysis")

// VideoState is the slice of the video store the workflow commands use.
// Satisfied by services.VideoStore.
type VideoState interface {
	Get(ctx context.Context, id string) (*model.Video, error)
	BeginProcessing(ctx context.Context, id string) error
	SetExternalHandles(ctx context.Context, id string, assetID string, indexedID string) error
	SaveScenes(ctx context.Context, id string, scenes []*model.Scene) error
	CompleteAnalysis(ctx context.Context, id string, results []model.AnalysisResult) error
}

// VideoResolver is a command that loads and claims the job's video.
type VideoResolver struct {
	cor.BaseCommand
	store VideoState
}

// NewVideoResolver is the constructor for the VideoResolver command.
func NewVideoResolver(name string, store VideoState) *VideoResolver {
	return &VideoResolver{BaseCommand: *cor.NewBaseCommand(name), store: store}
}

// Execute loads the video, resolves its indexed handle, and claims it.
func (c *VideoResolver) Execute(context cor.Context) {
	job := context.Get(c.GetInputParam()).(*model.AnalysisJob)
	ctx := context.GetContext()

	video, err := c.store.Get(ctx, job.VideoID)
	if err != nil {
		c.GetErrorCounter().Add(ctx, 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to load video %s: %w", job.VideoID, err))
		return
	}

	if video.IndexedVideoID == "" && job.IndexedVideoID != "" {
		video.IndexedVideoID = job.IndexedVideoID
		if err := c.store.SetExternalHandles(ctx, video.ID, "", job.IndexedVideoID); err != nil {
			c.GetErrorCounter().Add(ctx, 1)
			context.AddError(c.GetName(), fmt.Errorf("failed to persist indexed handle for video %s: %w", video.ID, err))
			return
		}
	}
	if video.IndexedVideoID == "" && video.ExternalAssetID == "" {
		c.GetErrorCounter().Add(ctx, 1)
		context.AddError(c.GetName(), fmt.Errorf("video %s: %w", video.ID, ErrNoIndexedHandle))
		return
	}

	if err := c.store.BeginProcessing(ctx, video.ID); err != nil {
		c.GetErrorCounter().Add(ctx, 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to claim video %s: %w", video.ID, err))
		return
	}
	video.AnalysisStatus = model.AnalysisStatusProcessing

	c.GetSuccessCounter().Add(ctx, 1)
	context.Add(GetVideoName(), video)
	context.Add(c.GetOutputParam(), video)
}
