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

package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/cliplens/video-analysis/internal/api"
	"github.com/cliplens/video-analysis/internal/cloud"
	"github.com/cliplens/video-analysis/internal/core/analyzer"
	"github.com/cliplens/video-analysis/internal/core/scene"
	"github.com/cliplens/video-analysis/internal/core/services"
	"github.com/cliplens/video-analysis/internal/core/workflow"
)

// AnalysisJobsSubscription is the logical name of the Pub/Sub
// subscription carrying analysis jobs, as keyed in the TOML config.
const AnalysisJobsSubscription = "AnalysisJobs"

type StateManager struct {
	config   *cloud.Config
	cloud    *cloud.ServiceClients
	videoAPI *api.VideoAPI
}

var state = &StateManager{}

func SetupOS() (err error) {
	err = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
	if err != nil {
		return err
	}
	err = os.Setenv(cloud.EnvConfigRuntime, "local")
	return err
}

func GetConfig() *cloud.Config {
	if state.config == nil {
		err := SetupOS()
		if err != nil {
			log.Fatalf("failed to setup os: %v\n", err)
		}
		// Create a default cloud config
		config := cloud.NewConfig()
		// Load it from the TOML files
		cloud.LoadConfig(&config)
		state.config = config
	}
	return state.config
}

// InitState builds the shared components: cloud clients, data stores, the
// analyzer set, the analysis workflow, and the ingest service behind the
// video API. The analysis workflow is attached to the job subscription
// listener before it starts receiving.
func InitState(ctx context.Context) {
	config := GetConfig()

	cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		panic(err)
	}
	state.cloud = cloudClients

	videoStore := services.NewVideoStore(cloudClients.MongoClient, &config.Mongo)
	chatStore := services.NewChatStore(cloudClients.MongoClient, &config.Mongo)
	knowledgeStore := services.NewKnowledgeStore(cloudClients.MongoClient, &config.Mongo)

	analyzerSet := analyzer.NewSet(
		cloudClients.AgentModels["analyst"],
		cloudClients.EmbeddingModels["knowledge"],
		knowledgeStore)

	extractor := scene.NewExtractor(
		cloudClients.AgentModels["formatter"],
		config.PromptTemplates.SceneToJSON)

	analysisWorkflow := workflow.NewVideoAnalysisWorkflow(
		config,
		cloudClients.VideoIntel,
		videoStore,
		chatStore,
		analyzerSet,
		extractor)

	vu := &config.VideoUnderstanding
	assetPoller := cloud.NewReadinessPoller(vu.AssetPollAttempts, time.Duration(vu.AssetPollSeconds)*time.Second)
	indexedPoller := cloud.NewReadinessPoller(vu.IndexedPollAttempts, time.Duration(vu.IndexedPollSeconds)*time.Second)

	publisher := services.NewTopicPublisher(cloudClients.Topics[AnalysisJobsSubscription])
	ingest := services.NewIngestService(
		videoStore,
		chatStore,
		cloudClients.VideoIntel,
		publisher,
		assetPoller,
		indexedPoller,
		vu.EnableVideoStream)

	state.videoAPI = api.NewVideoAPI(ingest, analysisWorkflow, config.Application.UserIDHeader)

	cloudClients.PubSubListeners[AnalysisJobsSubscription].SetCommand(analysisWorkflow)
	cloudClients.PubSubListeners[AnalysisJobsSubscription].Listen(ctx)
}
