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

package commands_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jaycherian/gcp-go-course-video/internal/core/commands"
	"github.com/jaycherian/gcp-go-course-video/internal/core/cor"
	"github.com/jaycherian/gcp-go-course-video/internal/core/model"
	test "github.com/jaycherian/gcp-go-course-video/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCapturer writes a placeholder image unless the document is listed in fail.
type fakeCapturer struct {
	fail     map[string]bool
	captured []string
}

func (f *fakeCapturer) Capture(_ context.Context, documentPath string, imagePath string) error {
	if f.fail[filepath.Base(documentPath)] {
		return errors.New("chrome crashed")
	}
	f.captured = append(f.captured, filepath.Base(documentPath))
	return os.WriteFile(imagePath, []byte("png"), 0o644)
}

// fakeEncoder composes by writing the output file and concatenates by
// writing the final file. Outputs listed in fail produce an EncodeError after
// a partial file has been written.
type fakeEncoder struct {
	fail       map[string]bool
	failConcat bool
	composed   []string
	joined     []string
}

func (f *fakeEncoder) Compose(_ context.Context, imagePath string, _ string, outPath string) error {
	if _, err := os.Stat(imagePath); err != nil {
		return err
	}
	if f.fail[filepath.Base(outPath)] {
		_ = os.WriteFile(outPath, []byte("partial"), 0o644)
		return &commands.EncodeError{Output: outPath, Stderr: "Invalid data found", Err: errors.New("exit status 1")}
	}
	f.composed = append(f.composed, filepath.Base(outPath))
	return os.WriteFile(outPath, []byte("mp4"), 0o644)
}

func (f *fakeEncoder) Concatenate(_ context.Context, videoPaths []string, outPath string) error {
	f.joined = append([]string(nil), videoPaths...)
	if f.failConcat {
		_ = os.WriteFile(outPath, []byte("partial"), 0o644)
		return &commands.ConcatError{Output: outPath, Stderr: "Non-monotonous DTS", Err: errors.New("exit status 1")}
	}
	return os.WriteFile(outPath, []byte("final"), 0o644)
}

// renderAndVoice renders the documents of content and writes audio files for
// the given slide ids, listing them as the job's audio.
func renderAndVoice(t *testing.T, content *model.ContentPayload, audioIDs ...int) (cor.Context, *model.Job, model.Workspace) {
	t.Helper()
	chCtx, job, ws := newRunContext(t, "en", content)
	commands.NewRenderSlides("render", nil).Execute(chCtx)
	require.NoError(t, chCtx.Err())
	audio := make([]model.Asset, 0, len(audioIDs))
	for _, id := range audioIDs {
		require.NoError(t, os.WriteFile(ws.AudioFile(id), []byte("mp3"), 0o644))
		audio = append(audio, model.Asset{SlideID: id, FilePath: ws.AudioFile(id)})
	}
	job.SetAudio(audio)
	return chCtx, job, ws
}

func TestComposeSegmentsInSlideOrder(t *testing.T) {
	chCtx, job, ws := renderAndVoice(t, test.GetTestContent(), 1, 3)
	encoder := &fakeEncoder{fail: map[string]bool{}}
	capturer := &fakeCapturer{fail: map[string]bool{}}

	commands.NewComposeSegments("compose", capturer, encoder).Execute(chCtx)
	require.NoError(t, chCtx.Err())

	assert.Equal(t, []string{"slide1.html", "slide3.html"}, capturer.captured)
	assert.Equal(t, []string{"slide1.mp4", "slide3.mp4"}, encoder.composed)
	segments := chCtx.Get(commands.SegmentsParam).([]model.VideoSegment)
	require.Len(t, segments, 2)
	assert.Equal(t, ws.SegmentVideo(1), segments[0].VideoPath)
	assert.Equal(t, ws.SegmentVideo(3), segments[1].VideoPath)
	assert.NoFileExists(t, ws.SlideImage(1))
	assert.NoFileExists(t, ws.SlideImage(3))
	assert.Equal(t, model.StateSegmentsComposed, job.CurrentState())
	assert.Len(t, job.Snapshot().Warnings, 1)
}

func TestComposeSegmentsSkipsFailedCapture(t *testing.T) {
	chCtx, _, ws := renderAndVoice(t, test.GetTestContent(), 1, 2, 3)
	encoder := &fakeEncoder{fail: map[string]bool{}}
	capturer := &fakeCapturer{fail: map[string]bool{"slide2.html": true}}

	commands.NewComposeSegments("compose", capturer, encoder).Execute(chCtx)
	require.NoError(t, chCtx.Err())
	assert.Equal(t, []string{"slide1.mp4", "slide3.mp4"}, encoder.composed)
	assert.NoFileExists(t, ws.SlideImage(2))
}

func TestComposeSegmentsEncodeErrorRemovesEverySegment(t *testing.T) {
	chCtx, job, ws := renderAndVoice(t, test.GetTestContent(), 1, 2, 3)
	encoder := &fakeEncoder{fail: map[string]bool{"slide2.mp4": true}}
	capturer := &fakeCapturer{fail: map[string]bool{}}

	commands.NewComposeSegments("compose", capturer, encoder).Execute(chCtx)

	var encodeErr *commands.EncodeError
	require.ErrorAs(t, chCtx.Err(), &encodeErr)
	assert.Equal(t, 2, encodeErr.SlideID)
	for _, id := range []int{1, 2, 3} {
		assert.NoFileExists(t, ws.SegmentVideo(id))
		assert.NoFileExists(t, ws.SlideImage(id))
	}
	assert.Empty(t, job.GetSegments())
	assert.Nil(t, chCtx.Get(commands.SegmentsParam))
	for _, document := range job.GetDocuments() {
		assert.FileExists(t, document.FilePath)
	}
	assert.FileExists(t, ws.AudioFile(1))
	assert.NotContains(t, encoder.composed, "slide3.mp4")
}

func TestComposeSegmentsWithoutAudio(t *testing.T) {
	chCtx, _, ws := renderAndVoice(t, test.GetTestContent())
	commands.NewComposeSegments("compose", &fakeCapturer{}, &fakeEncoder{}).Execute(chCtx)

	var noSegments *commands.NoSegmentsError
	require.ErrorAs(t, chCtx.Err(), &noSegments)
	assert.Equal(t, ws.UnitID, noSegments.UnitID)
	assert.Equal(t, "no videos were generated for unit "+ws.UnitID, noSegments.Error())
}

func TestConcatenateSegments(t *testing.T) {
	chCtx, job, ws := renderAndVoice(t, test.GetTestContent(), 1, 2, 3)
	encoder := &fakeEncoder{fail: map[string]bool{}}
	commands.NewComposeSegments("compose", &fakeCapturer{}, encoder).Execute(chCtx)
	require.NoError(t, chCtx.Err())

	cmd := commands.NewConcatenateSegments("concat", encoder)
	require.True(t, cmd.IsExecutable(chCtx))
	cmd.Execute(chCtx)
	require.NoError(t, chCtx.Err())

	assert.Equal(t, []string{ws.SegmentVideo(1), ws.SegmentVideo(2), ws.SegmentVideo(3)}, encoder.joined)
	assert.FileExists(t, ws.FinalVideo())
	for _, id := range []int{1, 2, 3} {
		assert.NoFileExists(t, ws.SegmentVideo(id))
		assert.FileExists(t, ws.SlideDocument(id))
		assert.FileExists(t, ws.AudioFile(id))
	}
	assert.Equal(t, ws.FinalVideo(), job.GetVideoPath())
	assert.Equal(t, model.StateConcatenated, job.CurrentState())
}

func TestConcatenateSegmentsFailureRemovesPartialOutput(t *testing.T) {
	chCtx, job, ws := renderAndVoice(t, test.GetTestContent(), 1, 2)
	encoder := &fakeEncoder{fail: map[string]bool{}, failConcat: true}
	commands.NewComposeSegments("compose", &fakeCapturer{}, encoder).Execute(chCtx)
	require.NoError(t, chCtx.Err())

	commands.NewConcatenateSegments("concat", encoder).Execute(chCtx)

	var concatErr *commands.ConcatError
	require.ErrorAs(t, chCtx.Err(), &concatErr)
	assert.NoFileExists(t, ws.FinalVideo())
	assert.NoFileExists(t, ws.SegmentVideo(1))
	assert.NoFileExists(t, ws.SegmentVideo(2))
	assert.Empty(t, job.GetVideoPath())
}

func TestComposeSegmentsIgnoresAudioOutsideManifest(t *testing.T) {
	chCtx, _, ws := renderAndVoice(t, test.GetTestContent(), 1, 3)
	require.NoError(t, os.WriteFile(ws.AudioFile(2), []byte("older run"), 0o644))
	encoder := &fakeEncoder{fail: map[string]bool{}}
	capturer := &fakeCapturer{fail: map[string]bool{}}

	commands.NewComposeSegments("compose", capturer, encoder).Execute(chCtx)
	require.NoError(t, chCtx.Err())
	assert.Equal(t, []string{"slide1.html", "slide3.html"}, capturer.captured)
	assert.Equal(t, []string{"slide1.mp4", "slide3.mp4"}, encoder.composed)
}
