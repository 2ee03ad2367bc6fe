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

// Package api contains the HTTP route definitions for the server. This
// file defines the error taxonomy the handlers translate service and
// workflow errors into.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cliplens/video-analysis/internal/core/commands"
	"github.com/cliplens/video-analysis/internal/core/services"
)

// ApiError is an error with an HTTP status code attached. Handlers return
// these directly for request validation failures.
type ApiError struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

func (e *ApiError) Error() string {
	return e.Message
}

// NewApiError builds an ApiError with the given status and message.
func NewApiError(statusCode int, message string) *ApiError {
	return &ApiError{StatusCode: statusCode, Message: message}
}

// respondError maps an error to its HTTP status and writes the JSON error
// body. Unrecognized errors are internal server errors.
func respondError(c *gin.Context, err error) {
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		c.JSON(apiErr.StatusCode, gin.H{"error": apiErr.Message})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrVideoNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrInvalidSourceURL), errors.Is(err, commands.ErrNoIndexedHandle):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrAlreadyProcessing):
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
