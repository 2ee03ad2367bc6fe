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

// This file defines the video endpoints: upload from URL, listing,
// deletion, the viewed acknowledgement, and the synchronous analyze
// trigger. The caller's identity arrives in a gateway-set header; the
// handlers never trust identifiers in the request body for ownership.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cliplens/video-analysis/internal/core/model"
	"github.com/cliplens/video-analysis/internal/core/services"
	"github.com/cliplens/video-analysis/internal/core/workflow"
)

// AnalysisRunner is the synchronous entry point of the analysis workflow.
// Satisfied by workflow.VideoAnalysisWorkflow.
type AnalysisRunner interface {
	Run(ctx context.Context, message string) (*workflow.Result, error)
}

// VideoAPI holds the dependencies of the video endpoints.
type VideoAPI struct {
	ingest       *services.IngestService
	analysis     AnalysisRunner
	userIDHeader string
}

// NewVideoAPI is the constructor for the video endpoints.
func NewVideoAPI(ingest *services.IngestService, analysis AnalysisRunner, userIDHeader string) *VideoAPI {
	return &VideoAPI{ingest: ingest, analysis: analysis, userIDHeader: userIDHeader}
}

// Videos configures the video API routes on the given router group.
//
// Inputs:
//   - r: A *gin.RouterGroup (e.g. /api/v1) the "/videos" group is added to.
func (a *VideoAPI) Videos(r *gin.RouterGroup) {
	videos := r.Group("/videos")
	{
		videos.POST("/url", a.uploadFromURL)
		videos.POST("/analyze", a.analyze)
		videos.GET("", a.list)
		videos.DELETE("/:videoId", a.delete)
		videos.PATCH("/:videoId/viewed", a.markViewed)
	}
}

// userID extracts the caller's user id from the gateway header. An empty
// id is a bad request: the API sits behind an authenticating gateway.
func (a *VideoAPI) userID(c *gin.Context) (string, error) {
	id := c.GetHeader(a.userIDHeader)
	if id == "" {
		return "", NewApiError(http.StatusBadRequest, "User ID is required")
	}
	return id, nil
}

type uploadFromURLRequest struct {
	Title            string   `json:"title"`
	URL              string   `json:"url"`
	SelectedFeatures []string `json:"selectedFeatures"`
}

// uploadFromURL ingests a video from a publicly reachable URL and queues
// it for analysis. Responds 201 with the created video document.
func (a *VideoAPI) uploadFromURL(c *gin.Context) {
	userID, err := a.userID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req uploadFromURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, NewApiError(http.StatusBadRequest, "invalid request body"))
		return
	}
	if req.URL == "" {
		respondError(c, NewApiError(http.StatusBadRequest, "URL is required"))
		return
	}
	for _, feature := range req.SelectedFeatures {
		if !model.IsValidFeature(feature) {
			respondError(c, NewApiError(http.StatusBadRequest, "unknown feature: "+feature))
			return
		}
	}

	video, err := a.ingest.CreateFromURL(c.Request.Context(), userID, req.Title, req.URL, req.SelectedFeatures)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, video)
}

type analyzeRequest struct {
	VideoID string `json:"videoId"`
}

// analyze runs the analysis workflow synchronously for one video. This is
// the same pipeline the Pub/Sub listener drives; the endpoint exists for
// re-running an analysis and for deployments without a queue.
func (a *VideoAPI) analyze(c *gin.Context) {
	userID, err := a.userID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.VideoID == "" {
		respondError(c, NewApiError(http.StatusBadRequest, "Video ID is required"))
		return
	}

	job, err := json.Marshal(&model.AnalysisJob{VideoID: req.VideoID, UserID: userID})
	if err != nil {
		respondError(c, err)
		return
	}
	result, err := a.analysis.Run(c.Request.Context(), string(job))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":         "Video analysis completed successfully",
		"videoId":         req.VideoID,
		"indexedVideoId":  result.IndexedVideoID,
		"analysisResults": result.Analysis,
	})
}

// list returns the caller's videos, newest first.
func (a *VideoAPI) list(c *gin.Context) {
	userID, err := a.userID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	videos, err := a.ingest.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, videos)
}

// delete removes a video, its remote assets, and its conversations.
func (a *VideoAPI) delete(c *gin.Context) {
	userID, err := a.userID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := a.ingest.Delete(c.Request.Context(), c.Param("videoId"), userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Video deleted successfully"})
}

// markViewed acknowledges the analysis for the caller.
func (a *VideoAPI) markViewed(c *gin.Context) {
	userID, err := a.userID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	video, err := a.ingest.MarkViewed(c.Request.Context(), c.Param("videoId"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, video)
}
