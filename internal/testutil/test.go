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

// Package testutil provides utility functions and mock data to support the
// application's test suite: a cached test configuration, sample analysis
// payloads in the exact format the scene breakdown prompt requests, and a
// sample job message.
package testutil

import (
	"log"
	"os"
	"testing"

	"github.com/cliplens/video-analysis/internal/cloud"
)

// StateManager is a simple in-memory cache for the application
// configuration during test runs, so the TOML files are loaded once per
// test binary.
type StateManager struct {
	config *cloud.Config
}

var state = &StateManager{}

// HandleErr fails the test when err is non-nil. Convenience to reduce
// boilerplate in test setup paths.
func HandleErr(err error, t *testing.T) {
	if err != nil {
		t.Errorf("Error reading config file: %v", err)
	}
}

// SceneBreakdownText is a canned analysis response in the exact plain-text
// format the scene breakdown prompt requests. It covers a hook, a scene
// with no on-screen text, and a CTA close.
const SceneBreakdownText = `1. Scene Number: 1
- Start Time: 0s (00:00)
- End Time: 2.5s (00:02)
- What is Visually Happening: Creator jumps into frame holding a phone
- On-Screen Text/Captions: WAIT FOR IT
- Audio/Speech Summary: Upbeat music with a shouted greeting
- Primary Action or Hook: Jump cut entrance
- Emotional Tone: Excited
- Purpose of the Scene: hook

2. Scene Number: 2
- Start Time: 2.5s (00:02)
- End Time: 9s (00:09)
- What is Visually Happening: Screen recording of the app being used
- On-Screen Text/Captions: None
- Audio/Speech Summary: Voiceover explaining the feature
- Primary Action or Hook: Feature walkthrough
- Emotional Tone: Informative
- Purpose of the Scene: buildup

3. Scene Number: 3
- Start Time: 9s (00:09)
- End Time: 14s (00:14)
- What is Visually Happening: Creator points at a subscribe button overlay
- On-Screen Text/Captions: FOLLOW FOR PART 2
- Audio/Speech Summary: Call to action spoken directly to camera
- Primary Action or Hook: Subscribe prompt
- Emotional Tone: Urgent
- Purpose of the Scene: CTA
`

// GetTestAnalyzePayloadText returns a canned video understanding response
// envelope wrapping the scene breakdown, as the non-streaming deployment
// returns it.
func GetTestAnalyzePayloadText() string {
	return `{"data": {"response": ` + jsonQuote(SceneBreakdownText) + `}}`
}

// GetTestAnalysisJobText returns a canned job message as published to the
// analysis topic.
func GetTestAnalysisJobText() string {
	return `{"videoId": "video-0001", "indexedVideoId": "idx-0001", "userId": "user-0001"}`
}

// jsonQuote escapes a string for embedding in a JSON document without
// pulling in a full encoder at every call site.
func jsonQuote(in string) string {
	out := make([]byte, 0, len(in)+2)
	out = append(out, '"')
	for i := 0; i < len(in); i++ {
		switch c := in[i]; c {
		case '"':
			out = append(out, '\\', '"')
		case '\\':
			out = append(out, '\\', '\\')
		case '\n':
			out = append(out, '\\', 'n')
		case '\t':
			out = append(out, '\\', 't')
		default:
			out = append(out, c)
		}
	}
	return string(append(out, '"'))
}

// SetupOS configures the environment variables the configuration loader
// depends on, pointing it at the test configuration files.
func SetupOS() (err error) {
	err = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
	if err != nil {
		return err
	}
	// The loader looks for ".env.test.toml" overrides under this runtime.
	err = os.Setenv(cloud.EnvConfigRuntime, "test")
	return err
}

// GetConfig is a singleton accessor for the test configuration. The TOML
// files are loaded on first use and cached for subsequent calls.
func GetConfig() *cloud.Config {
	if state.config == nil {
		err := SetupOS()
		if err != nil {
			log.Fatalf("failed to setup environment for test: %v\n", err)
		}
		config := cloud.NewConfig()
		cloud.LoadConfig(&config)
		state.config = config
	}
	return state.config
}
