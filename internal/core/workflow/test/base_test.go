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

// This file provides the shared setup for the workflow test suite via
// TestMain: structured logging wired to the OpenTelemetry slog bridge, so
// the chain's per-command logs stay readable during test runs.
package workflow_test

import (
	"os"
	"testing"

	"go.opentelemetry.io/contrib/bridges/otelslog"

	"github.com/cliplens/video-analysis/internal/telemetry"
)

const tName = "github.com/cliplens/video-analysis/tests/workflow"

var logger = otelslog.NewLogger(tName)

// TestMain initializes logging once for the whole package before any of
// the workflow tests run.
func TestMain(m *testing.M) {
	telemetry.SetupLogging()
	logger.Info("starting workflow test suite")

	code := m.Run()

	logger.Info("workflow test suite complete")
	os.Exit(code)
}
