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
	"os"
	"path/filepath"
	"testing"

	"github.com/jaycherian/gcp-go-course-video/internal/cloud"
	"github.com/jaycherian/gcp-go-course-video/internal/core/commands"
	test "github.com/jaycherian/gcp-go-course-video/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeArgs(t *testing.T) {
	ffmpeg := commands.NewFFmpeg(cloud.NewConfig().Encoder)
	assert.Equal(t, []string{
		"-y", "-hide_banner", "-loop", "1", "-i", "slide1.png", "-i", "audio1.mp3",
		"-c:v", "libx264", "-tune", "stillimage", "-c:a", "aac", "-b:a", "128k",
		"-vf", commands.EvenDimensionsFilter, "-pix_fmt", "yuv420p", "-shortest", "slide1.mp4",
	}, ffmpeg.ComposeArgs("slide1.png", "audio1.mp3", "slide1.mp4"))

	bare := commands.NewFFmpeg(cloud.Encoder{})
	assert.Equal(t, []string{
		"-y", "-hide_banner", "-loop", "1", "-i", "a.png", "-i", "a.mp3",
		"-c:v", "libx264", "-c:a", "aac",
		"-vf", commands.EvenDimensionsFilter, "-pix_fmt", "yuv420p", "-shortest", "a.mp4",
	}, bare.ComposeArgs("a.png", "a.mp3", "a.mp4"))
}

func TestConcatArgs(t *testing.T) {
	ffmpeg := commands.NewFFmpeg(cloud.Encoder{})
	assert.Equal(t,
		[]string{"-y", "-hide_banner", "-f", "concat", "-safe", "0", "-i", "videos.txt", "-c", "copy", "out.mp4"},
		ffmpeg.ConcatArgs("videos.txt", "out.mp4"))
}

func TestConcatManifestEscapesQuotes(t *testing.T) {
	manifest, err := commands.ConcatManifest([]string{"/data/slide1.mp4", "/data/it's/slide2.mp4"})
	require.NoError(t, err)
	assert.Equal(t, "file '/data/slide1.mp4'\nfile '/data/it'\\''s/slide2.mp4'\n", manifest)

	manifest, err = commands.ConcatManifest([]string{"relative.mp4"})
	require.NoError(t, err)
	abs, _ := filepath.Abs("relative.mp4")
	assert.Equal(t, "file '"+abs+"'\n", manifest)
}

func TestComposeSuccess(t *testing.T) {
	dir := t.TempDir()
	tool := test.WriteExecutable(t, dir, "ffmpeg", test.WriteLastArgScript)
	out := filepath.Join(dir, "slide1.mp4")

	ffmpeg := commands.NewFFmpeg(cloud.Encoder{Command: tool})
	require.NoError(t, ffmpeg.Compose(context.Background(), "slide1.png", "audio1.mp3", out))
	assert.FileExists(t, out)
}

func TestComposeFailureCarriesStderr(t *testing.T) {
	dir := t.TempDir()
	tool := test.WriteExecutable(t, dir, "ffmpeg", test.FailingScript)

	err := commands.NewFFmpeg(cloud.Encoder{Command: tool}).Compose(context.Background(), "a.png", "a.mp3", filepath.Join(dir, "a.mp4"))
	var encodeErr *commands.EncodeError
	require.ErrorAs(t, err, &encodeErr)
	assert.Contains(t, encodeErr.Stderr, "boom")
	assert.Contains(t, err.Error(), "boom")
}

func TestConcatenateRemovesManifest(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "unit.mp4")
	manifest := filepath.Join(dir, "videos.txt")

	ok := commands.NewFFmpeg(cloud.Encoder{Command: test.WriteExecutable(t, dir, "ffmpeg-ok", test.WriteLastArgScript)})
	require.NoError(t, ok.Concatenate(context.Background(), []string{"s1.mp4", "s2.mp4"}, out))
	assert.FileExists(t, out)
	assert.NoFileExists(t, manifest)

	require.NoError(t, os.Remove(out))
	bad := commands.NewFFmpeg(cloud.Encoder{Command: test.WriteExecutable(t, dir, "ffmpeg-bad", test.FailingScript)})
	err := bad.Concatenate(context.Background(), []string{"s1.mp4"}, out)
	var concatErr *commands.ConcatError
	require.ErrorAs(t, err, &concatErr)
	assert.Contains(t, concatErr.Stderr, "boom")
	assert.NoFileExists(t, manifest)

	err = bad.Concatenate(context.Background(), nil, out)
	require.ErrorAs(t, err, &concatErr)
}
