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

// This file defines the command that asks the video understanding service
// for a scene-by-scene breakdown of the indexed video. The raw response
// payload is passed downstream untouched; the scene extractor owns its
// interpretation.
package commands

import (
	"context"
	"fmt"

	"github.com/cliplens/video-analysis/internal/core/cor"
	"github.com/cliplens/video-analysis/internal/core/model"
)

// AnalyzeAPI is the slice of the video understanding client the analyze
// command uses. Satisfied by cloud.VideoIntelClient.
type AnalyzeAPI interface {
	Analyze(ctx context.Context, indexedVideoID string, prompt string, temperature float64) ([]byte, error)
}

// SceneAnalyzeCommand requests the scene breakdown for a video.
type SceneAnalyzeCommand struct {
	cor.BaseCommand
	api         AnalyzeAPI
	prompt      string
	temperature float64
}

// NewSceneAnalyzeCommand is the constructor for the SceneAnalyzeCommand.
//
// Inputs:
//   - name: A string name for this command instance.
//   - api: The video understanding service client.
//   - prompt: The scene breakdown prompt template.
//   - temperature: The generation temperature for the analyze call.
func NewSceneAnalyzeCommand(name string, api AnalyzeAPI, prompt string, temperature float64) *SceneAnalyzeCommand {
	return &SceneAnalyzeCommand{
		BaseCommand: *cor.NewBaseCommand(name),
		api:         api,
		prompt:      prompt,
		temperature: temperature,
	}
}

// Execute calls the analyze endpoint and stores the raw payload.
func (c *SceneAnalyzeCommand) Execute(context cor.Context) {
	video := context.Get(GetVideoName()).(*model.Video)
	ctx := context.GetContext()

	payload, err := c.api.Analyze(ctx, video.IndexedVideoID, c.prompt, c.temperature)
	if err != nil {
		c.GetErrorCounter().Add(ctx, 1)
		context.AddError(c.GetName(), fmt.Errorf("analyze call failed for video %s: %w", video.ID, err))
		return
	}

	c.GetSuccessCounter().Add(ctx, 1)
	context.Add(c.GetOutputParam(), string(payload))
}
