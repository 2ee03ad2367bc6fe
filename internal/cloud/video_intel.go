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
// This file implements the client for the video understanding service: the
// hosted API that ingests video assets, indexes them for retrieval, and
// answers open-ended analysis prompts about their content.
//
// The service has no Go SDK, so the client is a thin layer over net/http.
// Response shapes differ slightly between endpoints and API revisions, so
// identifiers and status fields are probed with gjson rather than bound to
// rigid structs. The analyze endpoint's payload is returned raw; the scene
// extractor owns the interpretation of that payload.
package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

// AssetStatusReady is the terminal status the service reports once an asset
// (or indexed asset) can be used.
const AssetStatusReady = "ready"

// VideoIntelClient is an HTTP client for the video understanding service.
type VideoIntelClient struct {
	baseURL    string
	apiKey     string
	indexID    string
	httpClient *http.Client
}

// NewVideoIntelClient builds a client from the service configuration.
func NewVideoIntelClient(cfg *VideoUnderstanding) *VideoIntelClient {
	timeout := time.Duration(cfg.TimeoutInSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &VideoIntelClient{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		indexID:    cfg.IndexID,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// IndexID returns the configured index identifier, empty when indexing is
// not configured for this deployment.
func (c *VideoIntelClient) IndexID() string {
	return c.indexID
}

// do sends a JSON request and returns the raw response body. Non-2xx
// responses are returned as errors carrying the status code and a snippet
// of the body.
func (c *VideoIntelClient) do(ctx context.Context, method string, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request for %s: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(data)
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return nil, fmt.Errorf("%s %s returned %d: %s", method, path, resp.StatusCode, snippet)
	}
	return data, nil
}

// extractID probes the common identifier paths the service uses across
// endpoint revisions.
func extractID(data []byte) string {
	doc := gjson.ParseBytes(data)
	for _, path := range []string{"_id", "id", "data._id", "data.id"} {
		if v := doc.Get(path); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

// CreateAssetFromURL registers a new asset with the service, ingesting the
// video from a publicly reachable URL. It returns the asset handle.
func (c *VideoIntelClient) CreateAssetFromURL(ctx context.Context, videoURL string) (string, error) {
	data, err := c.do(ctx, http.MethodPost, "/assets", map[string]any{
		"method": "url",
		"url":    videoURL,
	})
	if err != nil {
		return "", err
	}
	id := extractID(data)
	if id == "" {
		return "", fmt.Errorf("asset create response contained no id")
	}
	return id, nil
}

// GetAssetStatus looks up an asset and returns its current status string.
func (c *VideoIntelClient) GetAssetStatus(ctx context.Context, assetID string) (string, error) {
	data, err := c.do(ctx, http.MethodGet, "/assets/"+assetID, nil)
	if err != nil {
		return "", err
	}
	return gjson.GetBytes(data, "status").String(), nil
}

// CreateIndexedAsset submits a ready asset to the configured index so it
// becomes addressable by analysis prompts. It returns the indexed video
// handle.
func (c *VideoIntelClient) CreateIndexedAsset(ctx context.Context, assetID string, enableStream bool) (string, error) {
	if c.indexID == "" {
		return "", fmt.Errorf("no index configured for indexed asset creation")
	}
	data, err := c.do(ctx, http.MethodPost, "/indexes/"+c.indexID+"/videos", map[string]any{
		"assetId":           assetID,
		"enableVideoStream": enableStream,
	})
	if err != nil {
		return "", err
	}
	id := extractID(data)
	if id == "" {
		return "", fmt.Errorf("indexed asset create response contained no id")
	}
	return id, nil
}

// GetIndexedAssetStatus looks up an indexed asset's current status string.
func (c *VideoIntelClient) GetIndexedAssetStatus(ctx context.Context, indexedID string) (string, error) {
	data, err := c.do(ctx, http.MethodGet, "/indexes/"+c.indexID+"/videos/"+indexedID, nil)
	if err != nil {
		return "", err
	}
	return gjson.GetBytes(data, "status").String(), nil
}

// DeleteAsset removes an asset from the service.
func (c *VideoIntelClient) DeleteAsset(ctx context.Context, assetID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/assets/"+assetID, nil)
	return err
}

// DeleteIndexedAsset removes an indexed asset from the configured index.
func (c *VideoIntelClient) DeleteIndexedAsset(ctx context.Context, indexedID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/indexes/"+c.indexID+"/videos/"+indexedID, nil)
	return err
}

// Analyze sends an open-ended prompt about an indexed video and returns the
// raw response payload. The payload shape varies between streaming and
// non-streaming deployments, so callers probe it rather than decode it
// into a struct here.
func (c *VideoIntelClient) Analyze(ctx context.Context, indexedVideoID string, prompt string, temperature float64) ([]byte, error) {
	return c.do(ctx, http.MethodPost, "/analyze", map[string]any{
		"video_id":    indexedVideoID,
		"prompt":      prompt,
		"temperature": temperature,
	})
}
