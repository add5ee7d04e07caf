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

package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-course-video/internal/core/commands"
	"github.com/jaycherian/gcp-go-course-video/internal/core/model"
	"github.com/jaycherian/gcp-go-course-video/internal/core/services"
	"github.com/jaycherian/gcp-go-course-video/internal/core/workflow"
)

// SignedURLTTL is how long a stream URL stays valid.
const SignedURLTTL = 15 * time.Minute

// Presentations serves the /presentations routes. Content may be nil, in
// which case generate/start answers 501.
type Presentations struct {
	Workflow *workflow.CourseVideoWorkflow
	Service  *services.PresentationService
	Content  commands.ContentSource
}

// PresentationRouter registers the presentation routes under r.
func PresentationRouter(r *gin.RouterGroup, h *Presentations) {
	presentations := r.Group("/presentations/:id", validUnitID)
	{
		presentations.POST("/generate/start", h.start)
		presentations.POST("/generate/process", h.process)
		presentations.POST("/transfer", h.transfer)
		presentations.GET("/slides", h.slides)
		presentations.GET("/slide/:n", h.slide)
		presentations.GET("/audio/:n", h.audio)
		presentations.GET("/status", h.status)
		presentations.GET("/stream", h.stream)
		presentations.GET("/history", h.history)
	}
}

// validUnitID rejects ids that are not UUIDs and stores the canonical form
// under "unit_id".
func validUnitID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unit id must be a UUID"})
		return
	}
	c.Set("unit_id", id.String())
	c.Next()
}

func slideNumber(c *gin.Context) (int, bool) {
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil || n < 1 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "slide number must be a positive integer"})
		return 0, false
	}
	return n, true
}

// bindOptionalJSON decodes the body into out; an empty body keeps out as is.
func bindOptionalJSON(c *gin.Context, out interface{}) bool {
	if err := c.ShouldBindJSON(out); err != nil && !errors.Is(err, io.EOF) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

// detached keeps a run alive when the client goes away.
func detached(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

func (h *Presentations) start(c *gin.Context) {
	unitID := c.GetString("unit_id")
	var course model.CourseRequest
	if !bindOptionalJSON(c, &course) {
		return
	}
	if h.Content == nil {
		abortWithError(c, services.ErrNotConfigured)
		return
	}
	content, err := h.Content.Generate(detached(c), unitID, course.WithDefaults())
	if err != nil {
		abortWithError(c, err)
		return
	}
	if err := h.Service.SaveContent(unitID, content); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, content)
}

func (h *Presentations) process(c *gin.Context) {
	req := &model.GenerationRequest{}
	if !bindOptionalJSON(c, req) {
		return
	}
	req.UnitID = c.GetString("unit_id")
	job, err := h.Workflow.Run(detached(c), req)
	if err != nil {
		body := gin.H{"error": err.Error()}
		if job != nil {
			body["job"] = job.Snapshot()
		}
		c.AbortWithStatusJSON(StatusFor(err), body)
		return
	}
	c.JSON(http.StatusOK, job.Snapshot())
}

func (h *Presentations) transfer(c *gin.Context) {
	var course model.CourseRequest
	if !bindOptionalJSON(c, &course) {
		return
	}
	job, err := h.Workflow.Transfer(detached(c), c.GetString("unit_id"), course)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, job.Snapshot())
}

func (h *Presentations) slides(c *gin.Context) {
	content, err := h.Service.Content(c.GetString("unit_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, content)
}

func (h *Presentations) slide(c *gin.Context) {
	n, ok := slideNumber(c)
	if !ok {
		return
	}
	path, err := h.Service.SlideDocumentPath(c.GetString("unit_id"), n)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.File(path)
}

func (h *Presentations) audio(c *gin.Context) {
	n, ok := slideNumber(c)
	if !ok {
		return
	}
	path, mimeType, err := h.Service.AudioFile(c.GetString("unit_id"), n)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.Header("Content-Type", mimeType)
	c.Header("Cache-Control", "public, max-age=3600")
	c.File(path)
}

func (h *Presentations) status(c *gin.Context) {
	job, ok := h.Workflow.Registry().Get(c.GetString("unit_id"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no job for unit"})
		return
	}
	c.JSON(http.StatusOK, job.Snapshot())
}

func (h *Presentations) stream(c *gin.Context) {
	signedURL, err := h.Service.SignedVideoURL(c, c.GetString("unit_id"), SignedURLTTL)
	if err != nil {
		slog.ErrorContext(c, "failed to sign video url", "unit_id", c.GetString("unit_id"), "error", err)
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": signedURL})
}

func (h *Presentations) history(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(services.DefaultHistoryLimit)))
	if err != nil {
		limit = services.DefaultHistoryLimit
	}
	records, err := h.Service.History(c, c.GetString("unit_id"), limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}
