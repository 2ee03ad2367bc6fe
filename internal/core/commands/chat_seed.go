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

// This file defines the final command of the analysis workflow: seeding the
// owner's chat with the analysis summary. The analysis is already completed
// and persisted by the time this runs, so seeding failures are logged and
// swallowed rather than failing the workflow.
package commands

import (
	"context"
	"log/slog"

	"github.com/cliplens/video-analysis/internal/core/cor"
	"github.com/cliplens/video-analysis/internal/core/model"
	"github.com/cliplens/video-analysis/internal/core/services"
)

// ChatSeeder is the slice of the chat store this command uses. Satisfied
// by services.ChatStore.
type ChatSeeder interface {
	AppendSystemMessage(ctx context.Context, videoID string, userID string, text string) error
}

// ChatSeedCommand posts the analysis summary into the owner's chat.
type ChatSeedCommand struct {
	cor.BaseCommand
	chats ChatSeeder
}

// NewChatSeedCommand is the constructor for the ChatSeedCommand.
func NewChatSeedCommand(name string, chats ChatSeeder) *ChatSeedCommand {
	return &ChatSeedCommand{BaseCommand: *cor.NewBaseCommand(name), chats: chats}
}

// IsExecutable requires a resolved video and a job naming the user whose
// chat receives the seed.
func (c *ChatSeedCommand) IsExecutable(context cor.Context) bool {
	job, ok := context.Get(GetAnalysisJobName()).(*model.AnalysisJob)
	if !ok || job.UserID == "" {
		return false
	}
	_, ok = context.Get(GetVideoName()).(*model.Video)
	return ok
}

// Execute builds and appends the seed message. Failures never propagate.
func (c *ChatSeedCommand) Execute(context cor.Context) {
	job := context.Get(GetAnalysisJobName()).(*model.AnalysisJob)
	video := context.Get(GetVideoName()).(*model.Video)
	ctx := context.GetContext()

	message := services.BuildInitialAnalysisMessage(video)
	if err := c.chats.AppendSystemMessage(ctx, video.ID, job.UserID, message); err != nil {
		// The analysis itself succeeded; losing the seed is not worth a
		// redelivery of the whole job.
		slog.Error("failed to seed analysis chat", "videoId", video.ID, "userId", job.UserID, "error", err)
		c.GetErrorCounter().Add(ctx, 1)
		return
	}

	c.GetSuccessCounter().Add(ctx, 1)
}
