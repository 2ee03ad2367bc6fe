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

package model_test

import (
	"encoding/json"
	"testing"

	"github.com/zeebo/assert"

	"github.com/cliplens/video-analysis/internal/core/model"
)

// TestIsValidFeature checks the feature whitelist against each canonical
// name and a few values that must never pass.
func TestIsValidFeature(t *testing.T) {
	for _, f := range model.AllFeatures {
		assert.True(t, model.IsValidFeature(f))
	}
	assert.False(t, model.IsValidFeature(""))
	assert.False(t, model.IsValidFeature("Hook"))
	assert.False(t, model.IsValidFeature("advanced-analytics"))
}

// TestAnalysisJobWireFormat pins the queue message field names, which the
// publisher and the workflow reader must agree on.
func TestAnalysisJobWireFormat(t *testing.T) {
	out, err := json.Marshal(&model.AnalysisJob{
		VideoID:        "video-0001",
		IndexedVideoID: "idx-0001",
		UserID:         "user-0001",
	})
	assert.NoError(t, err)
	assert.Equal(t, `{"videoId":"video-0001","indexedVideoId":"idx-0001","userId":"user-0001"}`, string(out))

	// An unindexed upload omits the handle entirely.
	out, err = json.Marshal(&model.AnalysisJob{VideoID: "video-0002", UserID: "user-0001"})
	assert.NoError(t, err)
	assert.Equal(t, `{"videoId":"video-0002","userId":"user-0001"}`, string(out))
}
