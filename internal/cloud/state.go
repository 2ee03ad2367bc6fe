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
// This file initializes and holds all of the client objects the application
// talks through: Pub/Sub, GenAI, MongoDB, and the video understanding
// service. It acts as a dependency injection container, creating a single
// shared `ServiceClients` struct that is passed throughout the application.
//
// Logic Flow:
//  1. `NewCloudServiceClients` is called at application startup with the
//     loaded configuration.
//  2. It initializes the Pub/Sub, GenAI, and MongoDB clients and the video
//     understanding HTTP client.
//  3. It reads the configuration to create service wrappers: Pub/Sub
//     listeners and topics, rate-limited agent models, and embedding
//     models, stored in maps keyed by their logical config names.
//  4. Everything is bundled into one `ServiceClients` struct consumed by
//     the API handlers and workflows.
package cloud

import (
	"context"
	"log/slog"

	"cloud.google.com/go/pubsub"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"google.golang.org/genai"
)

// ServiceClients is the central container for all clients that interact
// with external services. It is created once at startup and shared.
type ServiceClients struct {
	PubsubClient    *pubsub.Client                          // Client for Google Cloud Pub/Sub.
	GenAIClient     *genai.Client                           // Client for Google's Generative AI services (Vertex AI).
	MongoClient     *mongo.Client                           // Client for the MongoDB deployment.
	VideoIntel      *VideoIntelClient                       // Client for the video understanding service.
	PubSubListeners map[string]*PubSubListener              // Active Pub/Sub listeners, keyed by logical name from the config.
	Topics          map[string]*pubsub.Topic                // Publish handles for job topics, keyed by logical name.
	EmbeddingModels map[string]*QuotaAwareEmbeddingModel    // Configured embedding models, keyed by logical name.
	AgentModels     map[string]*QuotaAwareGenerativeAIModel // Configured agent (LLM) models, keyed by logical name.
}

// Close gracefully shuts down all active client connections. Client
// lifecycles are normally tied to the root context, but tests and
// controlled shutdowns release resources explicitly through this method.
func (c *ServiceClients) Close() {
	for _, topic := range c.Topics {
		topic.Stop()
	}
	_ = c.PubsubClient.Close()
	if c.MongoClient != nil {
		if err := c.MongoClient.Disconnect(context.Background()); err != nil {
			slog.Warn("failed to disconnect mongo client", "error", err)
		}
	}
}

// NewCloudServiceClients initializes all required service clients based on
// the provided configuration. It is the main entry point for setting up
// the application's external dependencies.
//
// Inputs:
//   - ctx: The root context for the application, which governs the
//     lifecycle of the clients.
//   - config: The loaded application configuration.
//
// Outputs:
//   - *ServiceClients: The fully initialized client container.
//   - error: An error if any of the clients fail to initialize.
func NewCloudServiceClients(ctx context.Context, config *Config) (cloud *ServiceClients, err error) {
	pc, err := pubsub.NewClient(ctx, config.Application.GoogleProjectId)
	if err != nil {
		return nil, err
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  config.Application.GoogleProjectId,
		Location: config.Application.GoogleLocation,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		slog.Error("error creating genai client", "error", err)
		return nil, err
	}

	mc, err := mongo.Connect(ctx, options.Client().ApplyURI(config.Mongo.URI))
	if err != nil {
		return nil, err
	}

	vi := NewVideoIntelClient(&config.VideoUnderstanding)

	// Create a listener per configured subscription. Commands are attached
	// later, once the workflow chains have been assembled.
	subscriptions := make(map[string]*PubSubListener)
	topics := make(map[string]*pubsub.Topic)
	for subKey := range config.TopicSubscriptions {
		values := config.TopicSubscriptions[subKey]
		actual, err := NewPubSubListener(pc, values.Name, nil)
		if err != nil {
			return nil, err
		}
		subscriptions[subKey] = actual
		if values.Topic != "" {
			topics[subKey] = pc.Topic(values.Topic)
		}
	}

	embeddingModels := make(map[string]*QuotaAwareEmbeddingModel)
	for embKey := range config.EmbeddingModels {
		values := config.EmbeddingModels[embKey]
		embeddingModels[embKey] = NewQuotaAwareEmbeddingModel(values.Model, gc.Models, values.MaxRequestsPerMinute)
	}

	// Build each agent model's generation config and wrap it with the rate
	// limiter before exposing it to the workflows.
	agentModels := make(map[string]*QuotaAwareGenerativeAIModel)
	for amKey := range config.AgentModels {
		values := config.AgentModels[amKey]

		model := &genai.GenerateContentConfig{
			Temperature:       genai.Ptr[float32](values.Temperature),
			TopP:              genai.Ptr[float32](values.TopP),
			TopK:              genai.Ptr[float32](values.TopK),
			MaxOutputTokens:   values.MaxTokens,
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: values.SystemInstructions}}},
			SafetySettings:    DefaultSafetySettings,
			ResponseMIMEType:  values.OutputFormat,
			Tools:             []*genai.Tool{},
		}
		agentModels[amKey] = NewQuotaAwareModel(model, values.Model, gc.Models, values.RateLimit)
	}

	cloud = &ServiceClients{
		PubsubClient:    pc,
		GenAIClient:     gc,
		MongoClient:     mc,
		VideoIntel:      vi,
		PubSubListeners: subscriptions,
		Topics:          topics,
		EmbeddingModels: embeddingModels,
		AgentModels:     agentModels,
	}

	return cloud, err
}
