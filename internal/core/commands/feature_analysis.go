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

// This file defines the command that runs the feature analyzers over the
// extracted scenes and persists the completed analysis.
//
// Logic Flow:
//  1. Resolve the hook seed: the first scene whose purpose is "hook"
//     (case-insensitive), falling back to the first scene. The seed text is
//     the scene's primary action, then its visual description.
//  2. Run the analyzer set with the video's selected features. Individual
//     analyzer failures are isolated inside the set and come back as failed
//     results, so this command never fails the chain on a model error.
//  3. Persist the results and flip the video to completed with its
//     analysis ready. Only that persistence step can fail the chain.
package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/cliplens/video-analysis/internal/core/analyzer"
	"github.com/cliplens/video-analysis/internal/core/cor"
	"github.com/cliplens/video-analysis/internal/core/model"
)

// FeatureRunner is the slice of the analyzer set this command uses.
// Satisfied by analyzer.Set.
type FeatureRunner interface {
	Run(ctx context.Context, in analyzer.Input, selected []string) []model.AnalysisResult
}

// FeatureAnalysisCommand runs the feature analyzers and completes the
// analysis.
type FeatureAnalysisCommand struct {
	cor.BaseCommand
	runner FeatureRunner
	store  VideoState
}

// NewFeatureAnalysisCommand is the constructor for the
// FeatureAnalysisCommand.
func NewFeatureAnalysisCommand(name string, runner FeatureRunner, store VideoState) *FeatureAnalysisCommand {
	return &FeatureAnalysisCommand{BaseCommand: *cor.NewBaseCommand(name), runner: runner, store: store}
}

// Execute runs the analyzers and persists the completed analysis.
func (c *FeatureAnalysisCommand) Execute(context cor.Context) {
	scenes := context.Get(c.GetInputParam()).([]*model.Scene)
	video := context.Get(GetVideoName()).(*model.Video)
	ctx := context.GetContext()

	in := analyzer.Input{Scenes: scenes, Hook: HookSeed(scenes)}
	results := c.runner.Run(ctx, in, video.SelectedFeatures)

	if err := c.store.CompleteAnalysis(ctx, video.ID, results); err != nil {
		c.GetErrorCounter().Add(ctx, 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to complete analysis for video %s: %w", video.ID, err))
		return
	}
	video.Analysis = results
	video.AnalysisStatus = model.AnalysisStatusCompleted
	video.IsAnalysisReady = true

	c.GetSuccessCounter().Add(ctx, 1)
	context.Add(GetAnalysisResultsName(), results)
	context.Add(c.GetOutputParam(), results)
}

// HookSeed picks the text the hook analyzer grades: the primary action of
// the hook scene, falling back to its visual description, empty when the
// breakdown has no scenes.
func HookSeed(scenes []*model.Scene) string {
	if len(scenes) == 0 {
		return ""
	}
	seed := scenes[0]
	for _, s := range scenes {
		if strings.EqualFold(s.Purpose, "hook") {
			seed = s
			break
		}
	}
	if seed.PrimaryAction != "" {
		return seed.PrimaryAction
	}
	return seed.VisualDescription
}
