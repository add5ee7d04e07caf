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
	"sync"
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-course-video/internal/cloud"
	"github.com/jaycherian/gcp-go-course-video/internal/core/commands"
	"github.com/jaycherian/gcp-go-course-video/internal/core/model"
	test "github.com/jaycherian/gcp-go-course-video/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectiveScript(t *testing.T) {
	cases := []struct {
		name  string
		entry model.SpeechEntry
		want  string
		ok    bool
	}{
		{"script only", model.SpeechEntry{ID: 1, Script: " Hello "}, "Hello", true},
		{"with explanation", model.SpeechEntry{ID: 1, Script: "Hello", CodeExplanation: "This prints."}, "Hello\nThis prints.", true},
		{"english sentinel", model.SpeechEntry{ID: 1, Script: "Hello", CodeExplanation: "explanation unavailable"}, "Hello", true},
		{"french sentinel", model.SpeechEntry{ID: 1, Script: "Bonjour", CodeExplanation: " Explication indisponible "}, "Bonjour", true},
		{"explanation only", model.SpeechEntry{ID: 1, CodeExplanation: "Only code."}, "Only code.", true},
		{"empty", model.SpeechEntry{ID: 1, Script: "  "}, "", false},
		{"sentinel only", model.SpeechEntry{ID: 1, CodeExplanation: "explanation unavailable"}, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := commands.EffectiveScript(tc.entry)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEdgeTTSArgs(t *testing.T) {
	tts := commands.NewEdgeTTS("", 0)
	assert.Equal(t,
		[]string{"--voice", "fr-FR-DeniseNeural", "--text", "Bonjour", "--write-media", "/tmp/audio1.mp3"},
		tts.Args("Bonjour", "fr-FR-DeniseNeural", "/tmp/audio1.mp3"))
}

func TestEdgeTTSWritesAudio(t *testing.T) {
	dir := t.TempDir()
	tool := test.WriteExecutable(t, dir, "edge-tts", test.WriteLastArgScript)
	out := filepath.Join(dir, "audio1.mp3")

	path, err := commands.NewEdgeTTS(tool, 10*time.Second).Synthesize(context.Background(), "Hello", "en-US-AriaNeural", out)
	require.NoError(t, err)
	assert.Equal(t, out, path)
	assert.FileExists(t, out)
}

func TestEdgeTTSFailure(t *testing.T) {
	dir := t.TempDir()
	tool := test.WriteExecutable(t, dir, "edge-tts", test.FailingScript)
	out := filepath.Join(dir, "audio1.mp3")
	require.NoError(t, os.WriteFile(out, []byte("stale"), 0o644))

	_, err := commands.NewEdgeTTS(tool, 10*time.Second).Synthesize(context.Background(), "Hello", "en-US-AriaNeural", out)
	var synthErr *commands.SynthesisError
	require.ErrorAs(t, err, &synthErr)
	assert.Contains(t, synthErr.Output, "boom")
	assert.NoFileExists(t, out)
}

// fakeSynthesizer writes a file for every call except the ids listed in fail.
type fakeSynthesizer struct {
	mu     sync.Mutex
	fail   map[string]bool
	voices []string
	texts  []string
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, text string, voice string, outPath string) (string, error) {
	f.mu.Lock()
	f.voices = append(f.voices, voice)
	f.texts = append(f.texts, text)
	f.mu.Unlock()
	if f.fail[filepath.Base(outPath)] {
		return "", errors.New("voice service unavailable")
	}
	return outPath, os.WriteFile(outPath, []byte("mp3"), 0o644)
}

func TestSynthesizeNarrationAbsorbsFailures(t *testing.T) {
	content := test.GetTestContent()
	content.Speech = append(content.Speech, model.SpeechEntry{ID: 4, CodeExplanation: "explanation unavailable"})
	chCtx, job, ws := newRunContext(t, "fr", content)
	synth := &fakeSynthesizer{fail: map[string]bool{"audio3.mp3": true}}

	cmd := commands.NewSynthesizeNarration("narrate", synth, cloud.NewConfig().Narration)
	cmd.Execute(chCtx)
	require.NoError(t, chCtx.Err())

	audio := job.GetAudio()
	require.Len(t, audio, 2)
	assert.Equal(t, ws.AudioFile(1), audio[0].FilePath)
	assert.Equal(t, ws.AudioFile(2), audio[1].FilePath)
	assert.NoFileExists(t, ws.AudioFile(3))
	assert.NoFileExists(t, ws.AudioFile(4))
	assert.Equal(t, model.StateAudioSynthesized, job.CurrentState())

	for _, voice := range synth.voices {
		assert.Equal(t, "fr-FR-DeniseNeural", voice)
	}
	assert.Equal(t, "Table tests keep cases together.", synth.texts[1])
	assert.Len(t, job.Snapshot().Warnings, 2)
}

func TestSynthesizeNarrationRemovesAudioFromEarlierRuns(t *testing.T) {
	content := test.GetTestContent()
	content.Speech[1].Script = ""
	content.Speech[1].CodeExplanation = ""
	content.Speech = content.Speech[:2]
	chCtx, job, ws := newRunContext(t, "en", content)
	job.SetDocuments([]model.Asset{
		{SlideID: 1, FilePath: ws.SlideDocument(1)},
		{SlideID: 2, FilePath: ws.SlideDocument(2)},
		{SlideID: 3, FilePath: ws.SlideDocument(3)},
	})
	for _, id := range []int{1, 2, 3} {
		require.NoError(t, os.WriteFile(ws.AudioFile(id), []byte("older run"), 0o644))
	}

	commands.NewSynthesizeNarration("narrate", &fakeSynthesizer{fail: map[string]bool{}}, cloud.NewConfig().Narration).Execute(chCtx)
	require.NoError(t, chCtx.Err())

	audio := job.GetAudio()
	require.Len(t, audio, 1)
	assert.Equal(t, 1, audio[0].SlideID)
	assert.FileExists(t, ws.AudioFile(1))
	assert.NoFileExists(t, ws.AudioFile(2))
	assert.NoFileExists(t, ws.AudioFile(3))
}
