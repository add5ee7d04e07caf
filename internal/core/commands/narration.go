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
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/jaycherian/gcp-go-course-video/internal/cloud"
	"github.com/jaycherian/gcp-go-course-video/internal/core/cor"
	"github.com/jaycherian/gcp-go-course-video/internal/core/model"
)

// Sentinels the content model emits when it has no code explanation. They are
// compared case-insensitively after trimming.
var explanationSentinels = []string{
	"explanation unavailable",
	"explication indisponible",
}

// IsSentinel reports whether text is a "no explanation" placeholder.
func IsSentinel(text string) bool {
	normalized := strings.ToLower(strings.TrimSpace(text))
	for _, sentinel := range explanationSentinels {
		if normalized == sentinel {
			return true
		}
	}
	return false
}

// EffectiveScript is the text narrated for a slide: the script, followed by
// the code explanation on its own line when one is present. It returns false
// when there is nothing to narrate.
func EffectiveScript(entry model.SpeechEntry) (string, bool) {
	script := strings.TrimSpace(entry.Script)
	explanation := strings.TrimSpace(entry.CodeExplanation)
	if explanation != "" && !IsSentinel(explanation) {
		script = script + "\n" + explanation
	}
	script = strings.TrimSpace(script)
	if script == "" || IsSentinel(script) {
		return "", false
	}
	return script, true
}

// Synthesizer turns text into a speech audio file.
type Synthesizer interface {
	// Synthesize writes speech for text in voice to outPath and returns outPath.
	Synthesize(ctx context.Context, text string, voice string, outPath string) (string, error)
}

// EdgeTTS runs an edge-tts compatible executable:
//
//	edge-tts --voice VOICE --text TEXT --write-media OUT
type EdgeTTS struct {
	command string
	timeout time.Duration
}

func NewEdgeTTS(command string, timeout time.Duration) *EdgeTTS {
	if strings.TrimSpace(command) == "" {
		command = cloud.DefaultTTSCommand
	}
	return &EdgeTTS{command: command, timeout: timeout}
}

// Args returns the command-line arguments for one synthesis call.
func (e *EdgeTTS) Args(text string, voice string, outPath string) []string {
	return []string{"--voice", voice, "--text", text, "--write-media", outPath}
}

func (e *EdgeTTS) Synthesize(ctx context.Context, text string, voice string, outPath string) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	var output bytes.Buffer
	cmd := exec.CommandContext(ctx, e.command, e.Args(text, voice, outPath)...)
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		_ = os.Remove(outPath)
		return "", &SynthesisError{Voice: voice, Output: output.String(), Err: err}
	}
	info, err := os.Stat(outPath)
	if err != nil {
		return "", &SynthesisError{Voice: voice, Output: output.String(), Err: fmt.Errorf("no audio written: %w", err)}
	}
	if info.Size() == 0 {
		_ = os.Remove(outPath)
		return "", &SynthesisError{Voice: voice, Output: output.String(), Err: errors.New("empty audio written")}
	}
	return outPath, nil
}

// SynthesizeNarration produces audios/audio{id}.mp3 for every narration entry
// whose effective script is non-empty.
//
// Logic Flow:
//  1. Pick the voice for the job's language.
//  2. For each speech entry with a positive id, build the effective script;
//     entries with nothing to narrate are skipped with a warning.
//  3. Synthesize; a failure is a SynthesisError that is logged and leaves the
//     slide without audio. A slide without audio in this run has any older
//     audio{id} removed.
//  4. Store the audio manifest and advance to AUDIO_SYNTHESIZED.
type SynthesizeNarration struct {
	cor.BaseCommand
	synthesizer Synthesizer
	narration   cloud.Narration
}

func NewSynthesizeNarration(name string, synthesizer Synthesizer, narration cloud.Narration) *SynthesizeNarration {
	return &SynthesizeNarration{
		BaseCommand: *cor.NewBaseCommand(name),
		synthesizer: synthesizer,
		narration:   narration,
	}
}

func (c *SynthesizeNarration) IsExecutable(context cor.Context) bool {
	return hasJob(context) && GetContent(context) != nil
}

func (c *SynthesizeNarration) Execute(context cor.Context) {
	ctx := context.GetContext()
	ws, _ := GetWorkspace(context)
	job := GetJob(context)
	content := GetContent(context)
	voice := c.narration.VoiceFor(job.Course.Language)

	produced := make(map[int]model.Asset)
	for _, entry := range content.Speech {
		if entry.ID <= 0 {
			slog.WarnContext(ctx, "skipping narration without id", "unit_id", ws.UnitID)
			job.Warn("narration without id skipped")
			continue
		}
		path := ws.AudioFile(entry.ID)
		text, ok := EffectiveScript(entry)
		if !ok {
			slog.WarnContext(ctx, "no narration for slide", "unit_id", ws.UnitID, "slide_id", entry.ID)
			job.Warn("slide %d has no narration", entry.ID)
			delete(produced, entry.ID)
			removeQuietly(path)
			continue
		}
		if _, err := c.synthesizer.Synthesize(ctx, text, voice, path); err != nil {
			synthErr := asSynthesisError(err, entry.ID, voice)
			slog.WarnContext(ctx, "narration failed", "unit_id", ws.UnitID, "slide_id", entry.ID, "voice", voice, "error", synthErr)
			job.Warn("%v", synthErr)
			delete(produced, entry.ID)
			removeQuietly(path)
			continue
		}
		produced[entry.ID] = model.Asset{SlideID: entry.ID, FilePath: path}
	}

	// Audio left by an earlier run must not stand in for a slide this run
	// did not voice.
	for _, document := range job.GetDocuments() {
		if _, ok := produced[document.SlideID]; !ok {
			removeQuietly(ws.AudioFile(document.SlideID))
		}
	}

	audio := make([]model.Asset, 0, len(produced))
	for _, asset := range produced {
		audio = append(audio, asset)
	}
	model.SortAssets(audio)
	job.SetAudio(audio)

	if err := job.Advance(model.StateAudioSynthesized); err != nil {
		c.Fail(context, err)
		return
	}
	slog.InfoContext(ctx, "narration synthesized", "unit_id", ws.UnitID, "voice", voice, "count", len(audio))
	c.Succeed(context)
	context.Add(c.GetOutputParam(), audio)
}

func asSynthesisError(err error, slideID int, voice string) *SynthesisError {
	var synthErr *SynthesisError
	if errors.As(err, &synthErr) {
		synthErr.SlideID = slideID
		return synthErr
	}
	return &SynthesisError{SlideID: slideID, Voice: voice, Err: err}
}
