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

	"github.com/jaycherian/gcp-go-course-video/internal/core/cor"
	"github.com/jaycherian/gcp-go-course-video/internal/core/model"
)

// ConcatenateSegments joins the composed segments into {unit_id}.mp4 and
// deletes the segments. On failure the segments and any partial output are
// deleted and a ConcatError is recorded.
type ConcatenateSegments struct {
	cor.BaseCommand
	concatenator Concatenator
}

func NewConcatenateSegments(name string, concatenator Concatenator) *ConcatenateSegments {
	return &ConcatenateSegments{
		BaseCommand:  *cor.NewBaseCommandWithParams(name, SegmentsParam, ""),
		concatenator: concatenator,
	}
}

func (c *ConcatenateSegments) IsExecutable(context cor.Context) bool {
	segments, ok := context.Get(SegmentsParam).([]model.VideoSegment)
	return hasJob(context) && ok && len(segments) > 0
}

func (c *ConcatenateSegments) Execute(context cor.Context) {
	ctx := context.GetContext()
	ws, _ := GetWorkspace(context)
	job := GetJob(context)
	segments := context.Get(SegmentsParam).([]model.VideoSegment)

	paths := make([]string, 0, len(segments))
	for _, segment := range segments {
		paths = append(paths, segment.VideoPath)
	}
	finalPath := ws.FinalVideo()

	err := c.concatenator.Concatenate(ctx, paths, finalPath)
	removeSegments(segments)
	job.ClearSegments()
	context.Remove(SegmentsParam)
	if err != nil {
		removeQuietly(finalPath)
		var concatErr *ConcatError
		if !errors.As(err, &concatErr) {
			err = &ConcatError{Output: finalPath, Err: err}
		}
		c.Fail(context, err)
		return
	}

	job.SetVideo(finalPath, false)
	if err := job.Advance(model.StateConcatenated); err != nil {
		c.Fail(context, err)
		return
	}
	slog.InfoContext(ctx, "final video assembled", "unit_id", ws.UnitID, "path", finalPath, "segments", len(paths))
	c.Succeed(context)
	context.Add(c.GetOutputParam(), finalPath)
}
