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

// ChatMessage is one entry in a video's conversation history. Messages
// written by the pipeline (like the analysis summary seed) have IsUser set
// to false.
type ChatMessage struct {
	Text      string    `json:"text" bson:"text"`
	IsUser    bool      `json:"isUser" bson:"isUser"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Chat holds the conversation a user has about one of their videos. There
// is at most one chat per (video, user) pair; it is upserted when the first
// message arrives.
type Chat struct {
	ID        string        `json:"id" bson:"_id"`
	VideoID   string        `json:"videoId" bson:"videoId"`
	UserID    string        `json:"userId" bson:"userId"`
	Messages  []ChatMessage `json:"messages" bson:"messages"`
	CreatedAt time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt" bson:"updatedAt"`
}
