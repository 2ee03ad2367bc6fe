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

// Package cloud provides components for interacting with external services.
// This file contains general-purpose utilities that support the package:
// hierarchical configuration loading and a resilient text-generation helper.
//
// Functions:
//   - fileExists: Checks whether a file exists.
//   - LoadConfig: Hierarchical configuration loader. It reads a base
//     configuration file and then overwrites values with an
//     environment-specific file (e.g. .env.local.toml, .env.test.toml).
//     The environment is selected by an environment variable.
//   - GenerateTextResponse: A wrapper for calls to a GenAI model with a
//     retry mechanism for transient errors and OpenTelemetry counters for
//     token usage and retries.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/BurntSushi/toml"
	"google.golang.org/genai"
)

// Constants for configuration loading and API interaction policies.
const (
	ConfigFileBaseName  = ".env"          // The base name for configuration files (e.g. ".env.toml").
	ConfigFileExtension = ".toml"         // The file extension for configuration files.
	ConfigSeparator     = "."             // The separator used in config file names (e.g. ".env.local.toml").
	EnvConfigFilePrefix = "CONFIG_PREFIX" // The environment variable for specifying the config directory.
	EnvConfigRuntime    = "RUNTIME"       // The environment variable for the runtime context (e.g. "local", "test", "prod").
	MaxRetries          = 3               // The maximum number of times to retry a failed model call.
)

// fileExists checks if a file or directory exists at the given path.
func fileExists(in string) bool {
	_, err := os.Stat(in)
	return !errors.Is(err, os.ErrNotExist)
}

// LoadConfig provides hierarchical configuration loading. It first loads a
// base configuration file and then overwrites its values with an
// environment-specific file. The directory and environment come from the
// CONFIG_PREFIX and RUNTIME environment variables.
//
// Inputs:
//   - baseConfig: A pointer to the target configuration struct that will be
//     populated from the TOML files.
func LoadConfig(baseConfig interface{}) {
	configurationFilePrefix := os.Getenv(EnvConfigFilePrefix)
	if len(configurationFilePrefix) > 0 && !strings.HasSuffix(configurationFilePrefix, string(os.PathSeparator)) {
		configurationFilePrefix = configurationFilePrefix + string(os.PathSeparator)
	}

	runtimeEnvironment := os.Getenv(EnvConfigRuntime)
	if runtimeEnvironment == "" {
		runtimeEnvironment = "test"
	}

	baseConfigFileName := configurationFilePrefix + ConfigFileBaseName + ConfigFileExtension
	envConfigFileName := configurationFilePrefix + ConfigFileBaseName + ConfigSeparator + runtimeEnvironment + ConfigFileExtension

	if fileExists(baseConfigFileName) {
		_, err := toml.DecodeFile(baseConfigFileName, baseConfig)
		if err != nil {
			log.Fatalf("failed to decode base configuration file %s with error: %s", baseConfigFileName, err)
		}
	}

	// Values in the environment-specific file overwrite the base config.
	if fileExists(envConfigFileName) {
		_, err := toml.DecodeFile(envConfigFileName, baseConfig)
		if err != nil {
			log.Fatalf("failed to decode environment configuration file: %s with error: %s", envConfigFileName, err)
		}
	}
}

// Token and retry counters for model text generation, shared by every
// wrapped model in the process.
var (
	genCountersOnce    sync.Once
	inputTokenCounter  metric.Int64Counter
	outputTokenCounter metric.Int64Counter
	genRetryCounter    metric.Int64Counter
)

func generationCounters() {
	meter := otel.Meter("github.com/cliplens/video-analysis")
	var err error
	if inputTokenCounter, err = meter.Int64Counter("genai.tokens.input"); err != nil {
		log.Printf("failed to create input token counter: %v\n", err)
	}
	if outputTokenCounter, err = meter.Int64Counter("genai.tokens.output"); err != nil {
		log.Printf("failed to create output token counter: %v\n", err)
	}
	if genRetryCounter, err = meter.Int64Counter("genai.generate.retries"); err != nil {
		log.Printf("failed to create generation retry counter: %v\n", err)
	}
}

// GenerateTextResponse executes a text request against a generative model
// with retries and telemetry. The concatenated candidate text is returned
// with any markdown JSON fences stripped, so callers can hand the output
// straight to a JSON decoder when they asked for JSON.
//
// Inputs:
//   - ctx: The context for the request.
//   - tryCount: The current attempt number for this request (starts at 0).
//   - model: The rate-limited, quota-aware generative model to use.
//   - content: The prompt content.
//
// Outputs:
//   - string: The concatenated text content from the model's response.
//   - error: An error if the request fails after all retries.
func GenerateTextResponse(
	ctx context.Context,
	tryCount int,
	model *QuotaAwareGenerativeAIModel,
	content []*genai.Content) (value string, err error) {
	genCountersOnce.Do(generationCounters)
	resp, err := model.GenerateContent(ctx, content)

	if err != nil {
		if tryCount < MaxRetries {
			if genRetryCounter != nil {
				genRetryCounter.Add(ctx, 1)
			}
			return GenerateTextResponse(ctx, tryCount+1, model, content)
		}
		return "", err
	}

	if resp.UsageMetadata != nil && inputTokenCounter != nil && outputTokenCounter != nil {
		inputTokenCounter.Add(ctx, int64(resp.UsageMetadata.PromptTokenCount))
		outputTokenCounter.Add(ctx, int64(resp.UsageMetadata.CandidatesTokenCount))
	}

	value = ""
	for _, candidate := range resp.Candidates {
		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				value += fmt.Sprint(part.Text)
			}
		}
	}
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, "```json")
	value = strings.TrimSuffix(value, "```")
	return value, nil
}
