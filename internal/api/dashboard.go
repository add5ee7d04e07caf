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

// Package api contains the HTTP route definitions for the server: the
// presentation endpoints and the job statistics dashboard.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jaycherian/gcp-go-course-video/internal/core/commands"
	"github.com/jaycherian/gcp-go-course-video/internal/core/services"
	"github.com/jaycherian/gcp-go-course-video/internal/core/workflow"
)

// Dashboard registers GET /stats, the job counts by state.
func Dashboard(r *gin.RouterGroup, registry *workflow.JobRegistry) {
	stats := r.Group("/stats")
	{
		stats.GET("", func(c *gin.Context) {
			c.JSON(http.StatusOK, registry.Stats())
		})
	}
}

// StatusFor maps a pipeline error to its HTTP status code.
func StatusFor(err error) int {
	var inProgress *commands.JobInProgressError
	var noSegments *commands.NoSegmentsError
	var missing *commands.MissingArtifactError
	var delivery *commands.DeliveryError
	var modelService *commands.ModelServiceError
	var content *commands.ContentError
	switch {
	case errors.As(err, &inProgress):
		return http.StatusConflict
	case errors.As(err, &noSegments):
		return http.StatusUnprocessableEntity
	case errors.As(err, &missing):
		return http.StatusNotFound
	case errors.As(err, &delivery), errors.As(err, &modelService), errors.As(err, &content):
		return http.StatusBadGateway
	case errors.Is(err, services.ErrNotConfigured):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(StatusFor(err), gin.H{"error": err.Error()})
}
