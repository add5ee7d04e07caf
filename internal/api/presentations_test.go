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

package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jaycherian/gcp-go-course-video/internal/api"
	"github.com/jaycherian/gcp-go-course-video/internal/core/commands"
	"github.com/jaycherian/gcp-go-course-video/internal/core/model"
	"github.com/jaycherian/gcp-go-course-video/internal/core/services"
	"github.com/jaycherian/gcp-go-course-video/internal/core/workflow"
	test "github.com/jaycherian/gcp-go-course-video/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeOut is a stage that writes a placeholder to its output path.
type writeOut struct{}

func (writeOut) Synthesize(_ context.Context, _ string, _ string, outPath string) (string, error) {
	return outPath, os.WriteFile(outPath, []byte("mp3"), 0o644)
}

func (writeOut) Capture(_ context.Context, _ string, imagePath string) error {
	return os.WriteFile(imagePath, []byte("png"), 0o644)
}

func (writeOut) Compose(_ context.Context, _ string, _ string, outPath string) error {
	return os.WriteFile(outPath, []byte("mp4"), 0o644)
}

func (writeOut) Concatenate(_ context.Context, _ []string, outPath string) error {
	return os.WriteFile(outPath, []byte("mp4"), 0o644)
}

type cannedSource struct {
	content *model.ContentPayload
	err     error
}

func (c *cannedSource) Generate(_ context.Context, _ string, _ model.CourseRequest) (*model.ContentPayload, error) {
	return c.content, c.err
}

type server struct {
	router  *gin.Engine
	service *services.PresentationService
}

func newServer(t *testing.T, source commands.ContentSource) *server {
	gin.SetMode(gin.TestMode)
	config := test.NewTestConfig(t)
	stages := workflow.Stages{Synthesizer: writeOut{}, Capturer: writeOut{}, Composer: writeOut{}, Concatenator: writeOut{}}
	videoWorkflow := workflow.NewCourseVideoWorkflow(config, nil, workflow.NewJobRegistry(), stages)
	service := services.NewPresentationService(config, nil)

	router := gin.New()
	v1 := router.Group("/api/v1")
	api.PresentationRouter(v1, &api.Presentations{Workflow: videoWorkflow, Service: service, Content: source})
	api.Dashboard(v1, videoWorkflow.Registry())
	return &server{router: router, service: service}
}

func (s *server) do(method string, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func unitPath(suffix string) string {
	return fmt.Sprintf("/api/v1/presentations/%s%s", test.TestUnitID, suffix)
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	msg, _ := body["error"].(string)
	return msg
}

func TestRejectsNonUUIDUnitID(t *testing.T) {
	s := newServer(t, nil)
	w := s.do(http.MethodGet, "/api/v1/presentations/not-a-uuid/slides", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorOf(t, w), "UUID")
}

func TestProcessThenViewArtifacts(t *testing.T) {
	s := newServer(t, nil)

	w := s.do(http.MethodPost, unitPath("/generate/process"), map[string]interface{}{
		"language": "fr",
		"content":  test.GetTestContent(),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var status model.JobStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, model.StateConcatenated, status.State)
	assert.Len(t, status.Documents, 3)
	assert.Len(t, status.Audio, 3)
	assert.True(t, strings.HasSuffix(status.VideoPath, test.TestUnitID+".mp4"))

	w = s.do(http.MethodGet, unitPath("/status"), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, unitPath("/slide/2"), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Table tests")

	w = s.do(http.MethodGet, unitPath("/audio/1"), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/mpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=3600", w.Header().Get("Cache-Control"))

	w = s.do(http.MethodGet, unitPath("/audio/9"), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, unitPath("/slide/zero"), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats map[string]int
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats[string(model.StateConcatenated)])
	assert.Equal(t, 0, stats["RUNNING"])
}

func TestProcessWithoutContentIsNotFound(t *testing.T) {
	s := newServer(t, nil)
	w := s.do(http.MethodPost, unitPath("/generate/process"), map[string]interface{}{"language": "en"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, errorOf(t, w), "slides.json")
}

func TestStartStoresGeneratedContent(t *testing.T) {
	s := newServer(t, &cannedSource{content: test.GetTestContent()})

	w := s.do(http.MethodPost, unitPath("/generate/start"), model.CourseRequest{Language: "en", Topic: "Testing in Go"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stored, err := s.service.Content(test.TestUnitID)
	require.NoError(t, err)
	assert.Len(t, stored.Slides, 3)

	w = s.do(http.MethodGet, unitPath("/slides"), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStartErrors(t *testing.T) {
	w := newServer(t, nil).do(http.MethodPost, unitPath("/generate/start"), nil)
	assert.Equal(t, http.StatusNotImplemented, w.Code)

	failing := &cannedSource{err: &commands.ModelServiceError{StatusCode: 503, Body: "overloaded"}}
	w = newServer(t, failing).do(http.MethodPost, unitPath("/generate/start"), nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestTransferWithoutDeliveryIsBadGateway(t *testing.T) {
	s := newServer(t, nil)
	w := s.do(http.MethodPost, unitPath("/transfer"), nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, errorOf(t, w), "delivery is not configured")
}

func TestCloudRoutesWithoutClients(t *testing.T) {
	s := newServer(t, nil)
	assert.Equal(t, http.StatusNotImplemented, s.do(http.MethodGet, unitPath("/stream"), nil).Code)
	assert.Equal(t, http.StatusNotImplemented, s.do(http.MethodGet, unitPath("/history?limit=5"), nil).Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"in progress", &commands.JobInProgressError{UnitID: "u", State: "RENDERED"}, http.StatusConflict},
		{"no segments", &commands.NoSegmentsError{UnitID: "u"}, http.StatusUnprocessableEntity},
		{"missing", &commands.MissingArtifactError{Path: "x"}, http.StatusNotFound},
		{"delivery", &commands.DeliveryError{UnitID: "u", StatusCode: 500}, http.StatusBadGateway},
		{"model", &commands.ModelServiceError{StatusCode: 500}, http.StatusBadGateway},
		{"joined", errors.Join(errors.New("first"), &commands.NoSegmentsError{UnitID: "u"}), http.StatusUnprocessableEntity},
		{"encode", &commands.EncodeError{SlideID: 1, Err: errors.New("exit 1")}, http.StatusInternalServerError},
		{"disabled", services.ErrNotConfigured, http.StatusNotImplemented},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, api.StatusFor(tt.err))
		})
	}
}
