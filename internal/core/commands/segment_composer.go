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
	"errors"
	"log/slog"
	"os"

	"github.com/jaycherian/gcp-go-course-video/internal/core/cor"
	"github.com/jaycherian/gcp-go-course-video/internal/core/model"
)

// ComposeSegments captures each rendered slide and muxes it with its narration
// into a per-slide segment.
//
// Logic Flow:
//  1. Walk the rendered documents in ascending slide id order.
//  2. Skip (warning) slides without audio in this run's audio manifest, or
//     whose document or audio file is missing on disk.
//  3. Capture slide{id}.png; a CaptureError skips the slide.
//  4. Compose slide{id}.mp4 and delete the image immediately.
//  5. An EncodeError is fatal: every segment composed so far is deleted and
//     the error is recorded.
//  6. No segments at all is a NoSegmentsError.
//  7. Otherwise advance through CAPTURED and SEGMENTS_COMPOSED and output the
//     ordered segments.
//
// Images and segments are registered as transient files so the workflow's
// cleanup removes them if a later stage fails.
type ComposeSegments struct {
	cor.BaseCommand
	capturer Capturer
	composer Composer
}

func NewComposeSegments(name string, capturer Capturer, composer Composer) *ComposeSegments {
	return &ComposeSegments{BaseCommand: *cor.NewBaseCommand(name), capturer: capturer, composer: composer}
}

func (c *ComposeSegments) IsExecutable(context cor.Context) bool {
	return hasJob(context)
}

func (c *ComposeSegments) Execute(context cor.Context) {
	ctx := context.GetContext()
	ws, _ := GetWorkspace(context)
	job := GetJob(context)

	documents := job.GetDocuments()
	model.SortAssets(documents)

	audioByID := make(map[int]string)
	for _, audio := range job.GetAudio() {
		audioByID[audio.SlideID] = audio.FilePath
	}

	segments := make([]model.VideoSegment, 0, len(documents))
	captured := 0
	for _, document := range documents {
		slideID := document.SlideID
		audioPath, voiced := audioByID[slideID]
		if !voiced || !fileExists(document.FilePath) || !fileExists(audioPath) {
			slog.WarnContext(ctx, "missing document or audio, skipping slide", "unit_id", ws.UnitID, "slide_id", slideID)
			job.Warn("slide %d skipped: missing document or audio", slideID)
			continue
		}

		imagePath := ws.SlideImage(slideID)
		context.AddTempFile(imagePath)
		if err := c.capturer.Capture(ctx, document.FilePath, imagePath); err != nil {
			captureErr := &CaptureError{SlideID: slideID, Document: document.FilePath, Err: err}
			slog.WarnContext(ctx, "capture failed, skipping slide", "unit_id", ws.UnitID, "slide_id", slideID, "error", captureErr)
			job.Warn("%v", captureErr)
			removeQuietly(imagePath)
			continue
		}
		captured++

		segmentPath := ws.SegmentVideo(slideID)
		context.AddTempFile(segmentPath)
		if err := c.composer.Compose(ctx, imagePath, audioPath, segmentPath); err != nil {
			removeQuietly(imagePath)
			removeQuietly(segmentPath)
			removeSegments(segments)
			job.ClearSegments()
			c.Fail(context, asEncodeError(err, slideID, segmentPath))
			return
		}
		removeQuietly(imagePath)

		segment := model.VideoSegment{SlideID: slideID, VideoPath: segmentPath}
		segments = append(segments, segment)
		job.AddSegment(segment)
		slog.InfoContext(ctx, "segment composed", "unit_id", ws.UnitID, "slide_id", slideID)
	}

	if len(segments) == 0 {
		c.Fail(context, &NoSegmentsError{UnitID: ws.UnitID})
		return
	}
	if captured > 0 {
		if err := job.Advance(model.StateCaptured); err != nil {
			c.Fail(context, err)
			return
		}
	}
	if err := job.Advance(model.StateSegmentsComposed); err != nil {
		c.Fail(context, err)
		return
	}
	c.Succeed(context)
	context.Add(SegmentsParam, segments)
	context.Add(c.GetOutputParam(), segments)
}

func asEncodeError(err error, slideID int, outPath string) *EncodeError {
	var encodeErr *EncodeError
	if errors.As(err, &encodeErr) {
		encodeErr.SlideID = slideID
		return encodeErr
	}
	return &EncodeError{SlideID: slideID, Output: outPath, Err: err}
}

func removeSegments(segments []model.VideoSegment) {
	for _, segment := range segments {
		removeQuietly(segment.VideoPath)
	}
}

func removeQuietly(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to remove file", "file", path, "error", err)
	}
}
