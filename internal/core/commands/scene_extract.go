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

// This file defines the command that turns the raw analyze payload into
// structured scenes and persists them on the video document. Extraction is
// total: a payload nothing can be salvaged from yields an empty breakdown,
// not a failed workflow, and the feature analyzers report on whatever
// survived.
package commands

import (
	"fmt"

	"github.com/cliplens/video-analysis/internal/core/cor"
	"github.com/cliplens/video-analysis/internal/core/model"
	"github.com/cliplens/video-analysis/internal/core/scene"
)

// SceneExtractCommand extracts and persists the scene breakdown.
type SceneExtractCommand struct {
	cor.BaseCommand
	extractor *scene.Extractor
	store     VideoState
}

// NewSceneExtractCommand is the constructor for the SceneExtractCommand.
func NewSceneExtractCommand(name string, extractor *scene.Extractor, store VideoState) *SceneExtractCommand {
	return &SceneExtractCommand{BaseCommand: *cor.NewBaseCommand(name), extractor: extractor, store: store}
}

// Execute extracts scenes from the raw payload and saves them.
func (c *SceneExtractCommand) Execute(context cor.Context) {
	payload := context.Get(c.GetInputParam()).(string)
	video := context.Get(GetVideoName()).(*model.Video)
	ctx := context.GetContext()

	scenes := c.extractor.Extract(ctx, []byte(payload))
	if err := c.store.SaveScenes(ctx, video.ID, scenes); err != nil {
		c.GetErrorCounter().Add(ctx, 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to save scenes for video %s: %w", video.ID, err))
		return
	}
	video.Scenes = scenes

	c.GetSuccessCounter().Add(ctx, 1)
	context.Add(GetScenesName(), scenes)
	context.Add(c.GetOutputParam(), scenes)
}
