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

// Package commands holds the pipeline stages of the course video service. Each
// stage is a cor.Command; the stage's external tool (browser, TTS, ffmpeg,
// HTTP store) sits behind a small interface so workflows can be tested with
// fakes.
package commands

import (
	"github.com/jaycherian/gcp-go-course-video/internal/core/cor"
	"github.com/jaycherian/gcp-go-course-video/internal/core/model"
)

// Context keys shared by the course video commands.
const (
	JobParam       = "__JOB__"       // *model.Job for the running unit.
	WorkspaceParam = "__WORKSPACE__" // model.Workspace of the running unit.
	ContentParam   = "__CONTENT__"   // *model.ContentPayload being rendered.
	RequestParam   = "__REQUEST__"   // *model.GenerationRequest that triggered the run.
	SegmentsParam  = "__SEGMENTS__"  // []model.VideoSegment awaiting concatenation.
)

// GetJob returns the running job, or nil.
func GetJob(context cor.Context) *model.Job {
	job, _ := context.Get(JobParam).(*model.Job)
	return job
}

// GetWorkspace returns the running unit's workspace.
func GetWorkspace(context cor.Context) (model.Workspace, bool) {
	ws, ok := context.Get(WorkspaceParam).(model.Workspace)
	return ws, ok
}

// GetContent returns the content payload, or nil.
func GetContent(context cor.Context) *model.ContentPayload {
	content, _ := context.Get(ContentParam).(*model.ContentPayload)
	return content
}

// GetRequest returns the triggering request, or nil.
func GetRequest(context cor.Context) *model.GenerationRequest {
	req, _ := context.Get(RequestParam).(*model.GenerationRequest)
	return req
}

// hasJob is the shared precondition of the stage commands.
func hasJob(context cor.Context) bool {
	if context == nil || context.GetContext() == nil {
		return false
	}
	_, ok := GetWorkspace(context)
	return ok && GetJob(context) != nil
}
