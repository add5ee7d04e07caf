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

// Package workflow assembles commands into the pipelines the service runs:
// course video generation, video transfer, Gemini content generation and the
// Pub/Sub generation trigger.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/storage"
	"github.com/jaycherian/gcp-go-course-video/internal/cloud"
	"github.com/jaycherian/gcp-go-course-video/internal/core/commands"
	"github.com/jaycherian/gcp-go-course-video/internal/core/cor"
	"github.com/jaycherian/gcp-go-course-video/internal/core/model"
)

// Stages are the external tools the pipeline drives. Deliverer may be nil,
// in which case runs stop at CONCATENATED.
type Stages struct {
	Synthesizer  commands.Synthesizer
	Capturer     commands.Capturer
	Composer     commands.Composer
	Concatenator commands.Concatenator
	Deliverer    commands.Deliverer
}

// DefaultStages wires edge-tts, headless Chrome, ffmpeg and the HTTP course
// store from the configuration. Delivery is left out when no store URL is set.
func DefaultStages(config *cloud.Config) Stages {
	ffmpeg := commands.NewFFmpeg(config.Encoder)
	stages := Stages{
		Synthesizer:  commands.NewEdgeTTS(config.Narration.Command, cloud.Seconds(config.Narration.TimeoutInSeconds, cloud.DefaultTimeoutInSeconds)),
		Capturer:     commands.NewChromeCapturer(config.Capture),
		Composer:     ffmpeg,
		Concatenator: ffmpeg,
	}
	if config.Delivery.BaseURL != "" {
		stages.Deliverer = commands.NewHTTPDeliveryClient(config.Delivery, &http.Client{
			Timeout: cloud.Seconds(config.Delivery.TimeoutInSeconds, cloud.DefaultTimeoutInSeconds),
		})
	}
	return stages
}

// CourseVideoWorkflow turns one unit's course content into a delivered video.
//
// Logic Flow:
//  1. Register a new job; a unit already running is a JobInProgressError.
//  2. When {unit_id}.mp4 exists and regeneration was not requested, skip
//     straight to CONCATENATED.
//  3. Otherwise remove any previous final video, resolve the content (request,
//     then stored slides.json) and run the generation chain: prepare
//     workspace, render slides, synthesize narration, compose segments,
//     concatenate.
//  4. Run the publication chain: archive to GCS, deliver downstream.
//  5. Any recorded error fails the job. Transient files are removed; slide
//     documents and audio stay in the workspace.
//  6. Persist the job record to BigQuery and release the unit.
type CourseVideoWorkflow struct {
	cor.BaseCommand
	config      *cloud.Config
	registry    *JobRegistry
	deliverer   commands.Deliverer
	generation  *cor.BaseChain
	publication *cor.BaseChain
	restore     cor.Command
	persistence cor.Command
}

func NewCourseVideoWorkflow(
	config *cloud.Config,
	serviceClients *cloud.ServiceClients,
	registry *JobRegistry,
	stages Stages) *CourseVideoWorkflow {

	var storageClient *storage.Client
	var bigqueryClient *bigquery.Client
	if serviceClients != nil {
		storageClient = serviceClients.StorageClient
		bigqueryClient = serviceClients.BiqQueryClient
	}
	if registry == nil {
		registry = NewJobRegistry()
	}

	out := &CourseVideoWorkflow{
		BaseCommand: *cor.NewBaseCommand("course-video-workflow"),
		config:      config,
		registry:    registry,
		deliverer:   stages.Deliverer,
	}

	generation := cor.NewBaseChain("course-video-generation")
	generation.AddCommand(commands.NewPrepareWorkspace("prepare-workspace"))
	generation.AddCommand(commands.NewRenderSlides("render-slides", commands.NewSlideRenderer()))
	generation.AddCommand(commands.NewSynthesizeNarration("synthesize-narration", stages.Synthesizer, config.Narration))
	generation.AddCommand(commands.NewComposeSegments("compose-segments", stages.Capturer, stages.Composer))
	generation.AddCommand(commands.NewConcatenateSegments("concatenate-segments", stages.Concatenator))
	out.generation = generation

	publication := cor.NewBaseChain("course-video-publication")
	publication.AddCommand(commands.NewArchiveVideoToGCS("archive-video", storageClient, config.Storage))
	if stages.Deliverer != nil {
		publication.AddCommand(commands.NewDeliverVideo("deliver-video", stages.Deliverer))
	}
	out.publication = publication

	out.restore = commands.NewRestoreArchivedVideo("restore-archived-video", storageClient, config.Storage)
	out.persistence = commands.NewJobPersistToBigQuery(
		"write-job-to-bigquery",
		bigqueryClient,
		config.BigQueryDataSource.DatasetName,
		config.BigQueryDataSource.JobsTable)
	return out
}

// Registry returns the job registry shared with status readers.
func (m *CourseVideoWorkflow) Registry() *JobRegistry {
	return m.registry
}

func (m *CourseVideoWorkflow) IsExecutable(context cor.Context) bool {
	return context != nil && context.GetContext() != nil && commands.GetRequest(context) != nil
}

func (m *CourseVideoWorkflow) Execute(context cor.Context) {
	req := commands.GetRequest(context)
	job, ws, ok := m.begin(context, req.UnitID, req.CourseRequest())
	if !ok {
		return
	}
	defer m.finish(context, job)

	finalVideo := ws.FinalVideo()
	if fileExists(finalVideo) && !req.Regenerate {
		slog.InfoContext(context.GetContext(), "final video exists, skipping generation", "unit_id", ws.UnitID, "path", finalVideo)
		job.SetVideo(finalVideo, true)
		if err := job.Advance(model.StateConcatenated); err != nil {
			m.Fail(context, err)
			return
		}
	} else {
		content := req.Content
		if content == nil {
			stored, err := commands.ReadContentManifest(ws)
			if err != nil {
				m.Fail(context, err)
				return
			}
			content = stored
		}
		if err := os.Remove(finalVideo); err != nil && !errors.Is(err, os.ErrNotExist) {
			m.Fail(context, fmt.Errorf("failed to remove previous video %s: %w", finalVideo, err))
			return
		}
		context.Add(commands.ContentParam, content)
		m.generation.Execute(context)
	}

	if !context.HasErrors() {
		m.publication.Execute(context)
	}
}

// Transfer delivers an already generated video without regenerating it. The
// archived copy is restored first when the local file is gone.
func (m *CourseVideoWorkflow) Transfer(ctx context.Context, unitID string, course model.CourseRequest) (*model.Job, error) {
	chCtx := newChainContext(ctx)
	job, ws, ok := m.begin(chCtx, unitID, course.WithDefaults())
	if !ok {
		return nil, chCtx.Err()
	}
	func() {
		defer m.finish(chCtx, job)
		if m.deliverer == nil {
			m.Fail(chCtx, &commands.DeliveryError{UnitID: unitID, Err: errors.New("delivery is not configured")})
			return
		}
		if m.restore.IsExecutable(chCtx) {
			m.restore.Execute(chCtx)
			if chCtx.HasErrors() {
				return
			}
		}
		if !fileExists(ws.FinalVideo()) {
			m.Fail(chCtx, &commands.MissingArtifactError{Path: ws.FinalVideo()})
			return
		}
		job.SetVideo(ws.FinalVideo(), true)
		if err := job.Advance(model.StateConcatenated); err != nil {
			m.Fail(chCtx, err)
			return
		}
		m.publication.Execute(chCtx)
	}()
	return job, chCtx.Err()
}

// Run executes the workflow for req on a fresh context and returns the job
// with every recorded error joined.
func (m *CourseVideoWorkflow) Run(ctx context.Context, req *model.GenerationRequest) (*model.Job, error) {
	chCtx := newChainContext(ctx)
	chCtx.Add(commands.RequestParam, req)
	m.Execute(chCtx)
	return commands.GetJob(chCtx), chCtx.Err()
}

func (m *CourseVideoWorkflow) begin(context cor.Context, unitID string, course model.CourseRequest) (*model.Job, model.Workspace, bool) {
	ws := model.NewWorkspace(m.config.Workspace.BaseDir, unitID)
	job := model.NewJob(unitID, course)
	if err := m.registry.Begin(job); err != nil {
		m.Fail(context, err)
		return nil, ws, false
	}
	slog.InfoContext(context.GetContext(), "job started", "unit_id", unitID, "language", course.Language)
	context.Add(commands.JobParam, job)
	context.Add(commands.WorkspaceParam, ws)
	return job, ws, true
}

// finish settles the job: FAILED when anything went wrong, transient files
// removed, record persisted, unit released.
func (m *CourseVideoWorkflow) finish(context cor.Context, job *model.Job) {
	ctx := context.GetContext()
	if context.HasErrors() {
		job.Fail(context.Err())
		slog.ErrorContext(ctx, "job failed", "unit_id", job.UnitID, "error", context.Err())
	} else {
		m.Succeed(context)
		slog.InfoContext(ctx, "job finished", "unit_id", job.UnitID, "state", job.CurrentState())
	}
	context.Close()

	record := newChainContext(ctx)
	record.Add(commands.JobParam, job)
	if m.persistence.IsExecutable(record) {
		m.persistence.Execute(record)
		if record.HasErrors() {
			slog.WarnContext(ctx, "failed to persist job record", "unit_id", job.UnitID, "error", record.Err())
		}
	}

	m.registry.Finish(job)
	context.Add(m.GetOutputParam(), job)
}

func newChainContext(ctx context.Context) cor.Context {
	chCtx := cor.NewBaseContext()
	chCtx.SetContext(ctx)
	return chCtx
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// String describes the configured pipeline, used in startup logs.
func (m *CourseVideoWorkflow) String() string {
	return fmt.Sprintf("%s generation=%v publication=%v", m.GetName(), m.generation.Commands(), m.publication.Commands())
}
