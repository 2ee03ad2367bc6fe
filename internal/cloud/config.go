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

// Package cloud defines the data structures for application configuration,
// loaded from TOML files. It provides a structured way to manage settings
// for the external services the pipeline depends on: the video understanding
// service, MongoDB, Pub/Sub, and the GenAI models.
//
// Structs:
//   - MongoDataSource: Connection and collection settings for MongoDB.
//   - VideoUnderstanding: Settings for the video understanding service,
//     including the readiness polling budgets.
//   - PromptTemplates: Text templates for prompts sent to GenAI models.
//   - VertexAiEmbeddingModel: Configuration for an embedding model.
//   - VertexAiLLMModel: Configuration for a Large Language Model (LLM).
//   - TopicSubscription: Configuration for a single Pub/Sub subscription.
//   - Config: The top-level struct that aggregates all of the above.
//
// Functions:
//   - NewConfig: A constructor that initializes a new Config with empty maps.
package cloud

import "google.golang.org/genai"

// DefaultSafetySettings defines the default content safety thresholds for
// GenAI models. All categories pass through without blocking, which is the
// standard setup when the input data is trusted creator content.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

// MongoDataSource represents the configuration for the MongoDB deployment
// that stores videos, chats, and the knowledge base.
type MongoDataSource struct {
	URI                 string `toml:"uri"`                   // The MongoDB connection string.
	Database            string `toml:"database"`              // The database name.
	VideoCollection     string `toml:"video_collection"`      // The collection holding video documents.
	ChatCollection      string `toml:"chat_collection"`       // The collection holding chat documents.
	KnowledgeCollection string `toml:"knowledge_collection"`  // The collection holding knowledge base documents.
	VectorIndex         string `toml:"vector_index"`          // The Atlas vector search index on the knowledge collection.
	VectorNumCandidates int64  `toml:"vector_num_candidates"` // Candidate pool size for vector search.
}

// VideoUnderstanding represents the configuration for the external video
// understanding service that hosts assets and answers analysis prompts.
type VideoUnderstanding struct {
	BaseURL             string  `toml:"base_url"`              // The service endpoint.
	APIKey              string  `toml:"api_key"`               // Bearer token for the service.
	IndexID             string  `toml:"index_id"`              // The index that receives indexed assets.
	TimeoutInSeconds    int     `toml:"timeout_in_seconds"`    // Per-request HTTP timeout.
	AssetPollAttempts   int     `toml:"asset_poll_attempts"`   // Attempt budget while waiting for an asset to become ready.
	AssetPollSeconds    int     `toml:"asset_poll_seconds"`    // Delay between asset readiness checks.
	IndexedPollAttempts int     `toml:"indexed_poll_attempts"` // Attempt budget while waiting for an indexed asset.
	IndexedPollSeconds  int     `toml:"indexed_poll_seconds"`  // Delay between indexed asset readiness checks.
	EnableVideoStream   bool    `toml:"enable_video_stream"`   // Whether indexed assets are created with streaming enabled.
	AnalyzeTemperature  float64 `toml:"analyze_temperature"`   // Sampling temperature for the scene breakdown request.
}

// PromptTemplates holds the templates for the prompts sent to the models.
type PromptTemplates struct {
	SceneBreakdown string `toml:"scene_breakdown"` // Prompt sent to the video understanding service for scene analysis.
	SceneToJSON    string `toml:"scene_to_json"`   // Prompt asking an LLM to reshape scene text into a JSON array.
}

// VertexAiEmbeddingModel represents the configuration for an embedding model.
type VertexAiEmbeddingModel struct {
	Model                string `toml:"model"`                   // The name of the embedding model.
	MaxRequestsPerMinute int    `toml:"max_requests_per_minute"` // The maximum number of requests allowed per minute.
}

// VertexAiLLMModel represents the configuration for a large language model.
type VertexAiLLMModel struct {
	Model              string  `toml:"model"`               // The name of the LLM.
	SystemInstructions string  `toml:"system_instructions"` // The system instructions for the LLM.
	Temperature        float32 `toml:"temperature"`         // The temperature parameter for the LLM.
	TopP               float32 `toml:"top_p"`               // The top_p parameter for the LLM.
	TopK               float32 `toml:"top_k"`               // The top_k parameter for the LLM.
	MaxTokens          int32   `toml:"max_tokens"`          // The maximum number of tokens for the LLM output.
	OutputFormat       string  `toml:"output_format"`       // The desired output MIME type for the LLM.
	RateLimit          int     `toml:"rate_limit"`          // The rate limit for the LLM in requests per second.
}

// TopicSubscription represents the configuration for a Pub/Sub subscription.
type TopicSubscription struct {
	Name             string `toml:"name"`               // The name of the Pub/Sub subscription.
	Topic            string `toml:"topic"`              // The topic jobs are published to.
	DeadLetterTopic  string `toml:"dead_letter_topic"`  // The dead-letter topic for the subscription.
	TimeoutInSeconds int    `toml:"timeout_in_seconds"` // The timeout for the subscription in seconds.
}

// Config represents the overall configuration for the application, loaded
// from TOML files. It is the root container for all other configuration
// structs.
type Config struct {
	// Application holds general application settings.
	Application struct {
		Name            string `toml:"name"`              // The name of the application.
		GoogleProjectId string `toml:"google_project_id"` // The Google Cloud project ID.
		GoogleLocation  string `toml:"location"`          // The Google Cloud location.
		Port            int    `toml:"port"`              // The HTTP listen port.
		UserIDHeader    string `toml:"user_id_header"`    // The header the gateway sets with the caller's user id.
	} `toml:"application"`
	Mongo              MongoDataSource                   `toml:"mongo"`               // MongoDB configuration.
	VideoUnderstanding VideoUnderstanding                `toml:"video_understanding"` // Video understanding service configuration.
	PromptTemplates    PromptTemplates                   `toml:"prompt_templates"`    // Prompt templates configuration.
	TopicSubscriptions map[string]TopicSubscription      `toml:"topic_subscriptions"` // Pub/Sub subscriptions, keyed by a logical name (e.g. "AnalysisJobs").
	EmbeddingModels    map[string]VertexAiEmbeddingModel `toml:"embedding_models"`    // Embedding models, keyed by a logical name (e.g. "knowledge").
	AgentModels        map[string]VertexAiLLMModel       `toml:"agent_models"`        // LLM models, keyed by a logical name (e.g. "analyst", "formatter").
}

// NewConfig creates a new, initialized Config instance. The maps must be
// initialized before the loader populates them.
func NewConfig() *Config {
	return &Config{
		TopicSubscriptions: make(map[string]TopicSubscription),
		EmbeddingModels:    make(map[string]VertexAiEmbeddingModel),
		AgentModels:        make(map[string]VertexAiLLMModel),
	}
}
