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

// This file defines the initial command in the video analysis workflow.
//
// Logic Flow:
// The upload path publishes an analysis job to a Pub/Sub topic when a video
// finishes ingesting. This command is the entry point of the workflow that
// consumes those messages.
//
//  1. The command receives the raw Pub/Sub message data as a JSON string
//     from the context.
//  2. It unmarshals the JSON into a `model.AnalysisJob`.
//  3. It validates that the job names a video; a job without a video ID can
//     never be processed and fails the workflow immediately.
//  4. The job is placed back into the context under a well-known key so any
//     later command can reach it, and under the default output parameter to
//     become the next command's input.
package commands

import (
	"encoding/json"
	"fmt"

	"github.com/cliplens/video-analysis/internal/core/cor"
	"github.com/cliplens/video-analysis/internal/core/model"
)

// AnalysisJobReader is a command that parses a queued analysis job message.
type AnalysisJobReader struct {
	cor.BaseCommand
}

// NewAnalysisJobReader is the constructor for the AnalysisJobReader command.
func NewAnalysisJobReader(name string) *AnalysisJobReader {
	return &AnalysisJobReader{BaseCommand: *cor.NewBaseCommand(name)}
}

// Execute parses the job message and validates its required fields.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution,
//     containing the raw message data in the input parameter.
func (c *AnalysisJobReader) Execute(context cor.Context) {
	in := context.Get(c.GetInputParam()).(string)

	var job model.AnalysisJob
	if err := json.Unmarshal([]byte(in), &job); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to unmarshal analysis job: %w", err))
		return
	}
	if job.VideoID == "" {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("analysis job is missing a video id"))
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(GetAnalysisJobName(), &job)
	context.Add(c.GetOutputParam(), &job)
}
