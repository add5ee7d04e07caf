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
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/jaycherian/gcp-go-course-video/internal/cloud"
)

// EvenDimensionsFilter rounds both dimensions down to even numbers, which
// yuv420p requires.
const EvenDimensionsFilter = "scale=trunc(iw/2)*2:trunc(ih/2)*2"

// Composer muxes a still image and an audio track into a video segment.
type Composer interface {
	Compose(ctx context.Context, imagePath string, audioPath string, outPath string) error
}

// Concatenator joins segments that share identical codec parameters.
type Concatenator interface {
	Concatenate(ctx context.Context, videoPaths []string, outPath string) error
}

// FFmpeg implements Composer and Concatenator with the ffmpeg executable. The
// codec parameters are fixed for the lifetime of the value so every segment of
// a run is stream-copy compatible.
type FFmpeg struct {
	command  string
	settings cloud.Encoder
}

func NewFFmpeg(settings cloud.Encoder) *FFmpeg {
	command := strings.TrimSpace(settings.Command)
	if command == "" {
		command = cloud.DefaultFFmpegCommand
	}
	if settings.VideoCodec == "" {
		settings.VideoCodec = "libx264"
	}
	if settings.AudioCodec == "" {
		settings.AudioCodec = "aac"
	}
	if settings.PixelFormat == "" {
		settings.PixelFormat = "yuv420p"
	}
	return &FFmpeg{command: command, settings: settings}
}

// ComposeArgs loops the image for the length of the audio:
//
//	-y -loop 1 -i IMG -i AUDIO -c:v libx264 -tune stillimage -c:a aac -b:a 128k
//	-vf scale=trunc(iw/2)*2:trunc(ih/2)*2 -pix_fmt yuv420p -shortest OUT
func (f *FFmpeg) ComposeArgs(imagePath string, audioPath string, outPath string) []string {
	args := []string{"-y", "-hide_banner", "-loop", "1", "-i", imagePath, "-i", audioPath, "-c:v", f.settings.VideoCodec}
	if f.settings.Tune != "" {
		args = append(args, "-tune", f.settings.Tune)
	}
	args = append(args, "-c:a", f.settings.AudioCodec)
	if f.settings.AudioBitrate != "" {
		args = append(args, "-b:a", f.settings.AudioBitrate)
	}
	args = append(args, "-vf", EvenDimensionsFilter, "-pix_fmt", f.settings.PixelFormat, "-shortest", outPath)
	return args
}

// ConcatArgs stream-copies the segments listed in manifest:
//
//	-y -f concat -safe 0 -i MANIFEST -c copy OUT
func (f *FFmpeg) ConcatArgs(manifestPath string, outPath string) []string {
	return []string{"-y", "-hide_banner", "-f", "concat", "-safe", "0", "-i", manifestPath, "-c", "copy", outPath}
}

func (f *FFmpeg) run(ctx context.Context, args []string) (string, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, f.command, args...)
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.String(), err
}

func (f *FFmpeg) Compose(ctx context.Context, imagePath string, audioPath string, outPath string) error {
	stderr, err := f.run(ctx, f.ComposeArgs(imagePath, audioPath, outPath))
	if err != nil {
		return &EncodeError{Output: outPath, Stderr: stderr, Err: err}
	}
	if !fileExists(outPath) {
		return &EncodeError{Output: outPath, Stderr: stderr, Err: errors.New("encoder produced no output")}
	}
	return nil
}

// Concatenate writes the concat manifest next to outPath, runs the stream copy
// and removes the manifest whatever the outcome.
func (f *FFmpeg) Concatenate(ctx context.Context, videoPaths []string, outPath string) error {
	if len(videoPaths) == 0 {
		return &ConcatError{Output: outPath, Err: errors.New("no segments to concatenate")}
	}
	manifestPath := filepath.Join(filepath.Dir(outPath), "videos.txt")
	manifest, err := ConcatManifest(videoPaths)
	if err != nil {
		return &ConcatError{Output: outPath, Err: err}
	}
	if err := os.WriteFile(manifestPath, []byte(manifest), 0o644); err != nil {
		return &ConcatError{Output: outPath, Err: fmt.Errorf("write concat manifest: %w", err)}
	}
	defer os.Remove(manifestPath)

	stderr, err := f.run(ctx, f.ConcatArgs(manifestPath, outPath))
	if err != nil {
		return &ConcatError{Output: outPath, Stderr: stderr, Err: err}
	}
	if !fileExists(outPath) {
		return &ConcatError{Output: outPath, Stderr: stderr, Err: errors.New("concatenation produced no output")}
	}
	return nil
}

// ConcatManifest renders the concat demuxer list, one absolute path per line:
//
//	file '/abs/path/slide1.mp4'
//
// Single quotes inside a path are escaped as '\''.
func ConcatManifest(videoPaths []string) (string, error) {
	var manifest strings.Builder
	for _, path := range videoPaths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("resolve segment path %s: %w", path, err)
		}
		fmt.Fprintf(&manifest, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}
	return manifest.String(), nil
}
