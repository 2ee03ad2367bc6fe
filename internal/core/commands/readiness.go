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

// This file defines the readiness commands of the analysis workflow. Asset
// ingestion and indexing are asynchronous at the video understanding
// service, so the workflow blocks on the bounded pollers in the cloud
// package before addressing a handle.
//
// Two commands share this file:
//
//   - IndexAssetCommand recovers videos whose upload created an asset but
//     never finished indexing (e.g. the process died between the two
//     steps). It waits for the raw asset, submits it to the index, and
//     persists the new handle. It skips itself when the video already
//     carries an indexed handle, which is the common case.
//   - AwaitIndexedAssetCommand waits for the indexed copy to become ready
//     before the analyze call. Jobs are published as soon as indexing
//     completes, but a redelivered or recovered job can arrive earlier.
package commands

import (
	"context"
	"fmt"

	"github.com/cliplens/video-analysis/internal/cloud"
	"github.com/cliplens/video-analysis/internal/core/cor"
	"github.com/cliplens/video-analysis/internal/core/model"
)

// IndexingAPI is the slice of the video understanding client the readiness
// commands use. Satisfied by cloud.VideoIntelClient.
type IndexingAPI interface {
	GetAssetStatus(ctx context.Context, assetID string) (string, error)
	CreateIndexedAsset(ctx context.Context, assetID string, enableStream bool) (string, error)
	GetIndexedAssetStatus(ctx context.Context, indexedID string) (string, error)
}

// IndexAssetCommand indexes a ready asset for videos that missed the step
// during upload.
type IndexAssetCommand struct {
	cor.BaseCommand
	api          IndexingAPI
	store        VideoState
	poller       *cloud.ReadinessPoller
	enableStream bool
}

// NewIndexAssetCommand is the constructor for the IndexAssetCommand.
//
// Inputs:
//   - name: A string name for this command instance.
//   - api: The video understanding service client.
//   - store: The video store, for persisting the new indexed handle.
//   - poller: The asset readiness poller (upload-path budget).
//   - enableStream: Whether indexed copies should carry a streamable
//     rendition.
func NewIndexAssetCommand(name string, api IndexingAPI, store VideoState, poller *cloud.ReadinessPoller, enableStream bool) *IndexAssetCommand {
	return &IndexAssetCommand{
		BaseCommand:  *cor.NewBaseCommand(name),
		api:          api,
		store:        store,
		poller:       poller,
		enableStream: enableStream,
	}
}

// IsExecutable skips the command when the video already has an indexed
// handle. The resolver guarantees an asset handle exists otherwise.
func (c *IndexAssetCommand) IsExecutable(context cor.Context) bool {
	video, ok := context.Get(GetVideoName()).(*model.Video)
	return ok && video.IndexedVideoID == ""
}

// Execute waits for the raw asset, indexes it, and persists the handle.
func (c *IndexAssetCommand) Execute(context cor.Context) {
	video := context.Get(GetVideoName()).(*model.Video)
	ctx := context.GetContext()

	if err := c.poller.Await(ctx, video.ExternalAssetID, c.api.GetAssetStatus); err != nil {
		c.GetErrorCounter().Add(ctx, 1)
		context.AddError(c.GetName(), err)
		return
	}

	indexedID, err := c.api.CreateIndexedAsset(ctx, video.ExternalAssetID, c.enableStream)
	if err != nil {
		c.GetErrorCounter().Add(ctx, 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to index asset %s: %w", video.ExternalAssetID, err))
		return
	}
	if err := c.store.SetExternalHandles(ctx, video.ID, "", indexedID); err != nil {
		c.GetErrorCounter().Add(ctx, 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to persist indexed handle for video %s: %w", video.ID, err))
		return
	}
	video.IndexedVideoID = indexedID

	c.GetSuccessCounter().Add(ctx, 1)
	context.Add(c.GetOutputParam(), video)
}

// AwaitIndexedAssetCommand blocks until the video's indexed copy reports
// ready.
type AwaitIndexedAssetCommand struct {
	cor.BaseCommand
	api    IndexingAPI
	poller *cloud.ReadinessPoller
}

// NewAwaitIndexedAssetCommand is the constructor for the
// AwaitIndexedAssetCommand.
func NewAwaitIndexedAssetCommand(name string, api IndexingAPI, poller *cloud.ReadinessPoller) *AwaitIndexedAssetCommand {
	return &AwaitIndexedAssetCommand{BaseCommand: *cor.NewBaseCommand(name), api: api, poller: poller}
}

// Execute waits for the indexed asset and passes the video through.
func (c *AwaitIndexedAssetCommand) Execute(context cor.Context) {
	video := context.Get(GetVideoName()).(*model.Video)
	ctx := context.GetContext()

	if err := c.poller.Await(ctx, video.IndexedVideoID, c.api.GetIndexedAssetStatus); err != nil {
		c.GetErrorCounter().Add(ctx, 1)
		context.AddError(c.GetName(), err)
		return
	}

	c.GetSuccessCounter().Add(ctx, 1)
	context.Add(c.GetOutputParam(), video)
}
