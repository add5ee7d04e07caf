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

// Package model_test covers the job state machine and the content payload
// decoding rules.
package model_test

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-course-video/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestJobProgression walks the happy path and checks the history is recorded
// in order.
func TestJobProgression(t *testing.T) {
	job := model.NewJob("unit-1", model.CourseRequest{Language: "fr"}.WithDefaults())
	assert.Equal(t, model.StateCreated, job.CurrentState())
	assert.WithinDuration(t, time.Now(), job.CreatedAt, time.Second)

	for _, next := range model.States()[1:7] {
		require.NoError(t, job.Advance(next))
	}
	status := job.Snapshot()
	assert.Equal(t, model.StateDelivered, status.State)
	assert.Len(t, status.History, 7)
	assert.Equal(t, "fr", status.Language)

	// Terminal jobs cannot move or fail.
	assert.Error(t, job.Advance(model.StateConcatenated))
	job.Fail(errors.New("late"))
	assert.Equal(t, model.StateDelivered, job.CurrentState())
	assert.Empty(t, job.Snapshot().Error)
}

// TestJobAdvanceIsMonotonic verifies states can be skipped but never revisited.
func TestJobAdvanceIsMonotonic(t *testing.T) {
	job := model.NewJob("unit-2", model.CourseRequest{})
	require.NoError(t, job.Advance(model.StateConcatenated))
	assert.Error(t, job.Advance(model.StateSlidesRendered))
	assert.Error(t, job.Advance(model.StateConcatenated))
	assert.Error(t, job.Advance(model.StateFailed))

	job.Fail(errors.New("no videos"))
	assert.Equal(t, model.StateFailed, job.CurrentState())
	assert.Equal(t, "no videos", job.Snapshot().Error)
	assert.Error(t, job.Advance(model.StateDelivered))
}

func TestJobRecord(t *testing.T) {
	job := model.NewJob("unit-3", model.CourseRequest{Language: "es", Topic: "Go", Level: "advanced"})
	job.SetDocuments([]model.Asset{{SlideID: 1, FilePath: "a"}, {SlideID: 2, FilePath: "b"}})
	job.SetAudio([]model.Asset{{SlideID: 1, FilePath: "c"}})
	job.Warn("slide %d skipped", 2)
	job.SetVideo("/tmp/unit-3/unit-3.mp4", false)
	require.NoError(t, job.Advance(model.StateDelivered))

	record := job.Record()
	assert.Equal(t, "unit-3", record.UnitID)
	assert.Equal(t, "es", record.Language)
	assert.Equal(t, "DELIVERED", record.State)
	assert.Equal(t, 2, record.SlideCount)
	assert.Equal(t, 1, record.AudioCount)
	assert.True(t, record.Delivered)
	assert.Equal(t, []string{"slide 2 skipped"}, record.Warnings)
	assert.GreaterOrEqual(t, record.DurationSeconds, 0.0)
}

func TestSpeechListAcceptsStringEncodedArray(t *testing.T) {
	raw := `{"slides":[{"id":1,"title":"Intro"}],"speech":"[{\"id\":1,\"script\":\"Hello\"}]"}`
	var payload model.ContentPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	require.Len(t, payload.Speech, 1)
	assert.Equal(t, "Hello", payload.Speech[0].Script)

	raw = `{"slides":[],"speech":[{"id":2,"script":"Bye","code_explanation":"none"}]}`
	payload = model.ContentPayload{}
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	assert.Equal(t, "none", payload.SpeechByID()[2].CodeExplanation)

	assert.Error(t, json.Unmarshal([]byte(`{"speech":"not json"}`), &payload))
}

func TestCourseRequestDefaults(t *testing.T) {
	req := &model.GenerationRequest{
		UnitID:   "unit-4",
		Language: "it",
		Content:  &model.ContentPayload{Topic: "Testing", Axes: []string{"mocks"}},
	}
	course := req.CourseRequest()
	assert.Equal(t, "it", course.Language)
	assert.Equal(t, "Testing", course.Topic)
	assert.Equal(t, model.DefaultLevel, course.Level)
	assert.Equal(t, []string{"mocks"}, course.Axes)

	empty := model.CourseRequest{}.WithDefaults()
	assert.Equal(t, model.DefaultLanguage, empty.Language)
	assert.Equal(t, model.DefaultTopic, empty.Topic)
	assert.Equal(t, model.DefaultAxes, empty.Axes)
}

func TestWorkspacePaths(t *testing.T) {
	ws := model.NewWorkspace("/data/presentations", "abc")
	assert.Equal(t, filepath.Join("/data/presentations", "abc", "slides", "slide3.html"), ws.SlideDocument(3))
	assert.Equal(t, filepath.Join("/data/presentations", "abc", "audios", "audio3.mp3"), ws.AudioFile(3))
	assert.Equal(t, filepath.Join("/data/presentations", "abc", "slide3.png"), ws.SlideImage(3))
	assert.Equal(t, filepath.Join("/data/presentations", "abc", "slide3.mp4"), ws.SegmentVideo(3))
	assert.Equal(t, filepath.Join("/data/presentations", "abc", "abc.mp4"), ws.FinalVideo())
	assert.Equal(t, filepath.Join("/data/presentations", "abc", "videos.txt"), ws.ConcatManifest())
}

func TestExampleContentIsConsistent(t *testing.T) {
	example := model.GetExampleContent()
	speech := example.SpeechByID()
	for _, slide := range example.Slides {
		assert.True(t, slide.HasID())
		_, ok := speech[slide.ID]
		assert.True(t, ok, "slide %d has no narration", slide.ID)
	}
}
