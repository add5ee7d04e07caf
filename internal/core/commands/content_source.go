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

package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jaycherian/gcp-go-course-video/internal/cloud"
	"github.com/jaycherian/gcp-go-course-video/internal/core/cor"
	"github.com/jaycherian/gcp-go-course-video/internal/core/model"
)

// ContentSource produces the slides and narration of a unit.
type ContentSource interface {
	Generate(ctx context.Context, unitID string, course model.CourseRequest) (*model.ContentPayload, error)
}

// HTTPContentClient asks the content model host for a unit's course content
// with POST {base_url}/generate/{unit_id}.
type HTTPContentClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPContentClient(config cloud.ModelService, httpClient *http.Client) *HTTPContentClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cloud.Seconds(config.TimeoutInSeconds, cloud.DefaultTimeoutInSeconds)}
	}
	return &HTTPContentClient{baseURL: strings.TrimRight(config.BaseURL, "/"), httpClient: httpClient}
}

func (h *HTTPContentClient) Generate(ctx context.Context, unitID string, course model.CourseRequest) (*model.ContentPayload, error) {
	body, err := json.Marshal(course.WithDefaults())
	if err != nil {
		return nil, &ModelServiceError{Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/generate/%s", h.baseURL, unitID), bytes.NewReader(body))
	if err != nil {
		return nil, &ModelServiceError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, &ModelServiceError{Err: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, &ModelServiceError{StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ModelServiceError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return ParseContentPayload(string(raw))
}

// ParseContentPayload decodes model output into a payload. Markdown fences are
// tolerated and at least one slide is required.
func ParseContentPayload(in string) (*model.ContentPayload, error) {
	payload := &model.ContentPayload{}
	if err := json.Unmarshal([]byte(cloud.StripJSONFence(in)), payload); err != nil {
		return nil, &ContentError{Reason: "malformed JSON", Err: err}
	}
	if len(payload.Slides) == 0 {
		return nil, &ContentError{Reason: "no slides"}
	}
	return payload, nil
}

// ContentAcquisition fills in the content of a generation request that
// arrived without any. Requests that already carry content pass through.
type ContentAcquisition struct {
	cor.BaseCommand
	source ContentSource
}

func NewContentAcquisition(name string, source ContentSource) *ContentAcquisition {
	return &ContentAcquisition{BaseCommand: *cor.NewBaseCommand(name), source: source}
}

func (c *ContentAcquisition) IsExecutable(context cor.Context) bool {
	return context != nil && context.GetContext() != nil && GetRequest(context) != nil
}

func (c *ContentAcquisition) Execute(context cor.Context) {
	req := GetRequest(context)
	if req.Content == nil && c.source != nil {
		content, err := c.source.Generate(context.GetContext(), req.UnitID, req.CourseRequest())
		if err != nil {
			c.Fail(context, err)
			return
		}
		req.Content = content
		slog.InfoContext(context.GetContext(), "acquired course content", "unit_id", req.UnitID, "slides", len(content.Slides))
	}
	c.Succeed(context)
	context.Add(c.GetOutputParam(), req)
}
