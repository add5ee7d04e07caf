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

// Package test provides helpers and fixtures shared by the test suites: the
// test configuration, sample course content, generation trigger messages and
// fake executables standing in for ffmpeg and edge-tts.
package test

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/jaycherian/gcp-go-course-video/internal/cloud"
	"github.com/jaycherian/gcp-go-course-video/internal/core/model"
)

// TestUnitID is a fixed unit id used across test suites.
const TestUnitID = "3f2b8c1e-9d4a-4e6b-8a7c-1b2d3e4f5a6b"

// WriteLastArgScript is a fake tool that writes "fake" to its last argument,
// the way ffmpeg and edge-tts write their output file.
const WriteLastArgScript = "#!/bin/sh\nfor last; do :; done\necho fake > \"$last\"\n"

// FailingScript is a fake tool that prints to stderr and exits non-zero.
const FailingScript = "#!/bin/sh\necho boom >&2\nexit 1\n"

// StateManager caches the test configuration for the lifetime of the test binary.
type StateManager struct {
	once   sync.Once
	config *cloud.Config
}

var state = &StateManager{}

// HandleErr fails the test when err is not nil.
func HandleErr(err error, t *testing.T) {
	t.Helper()
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// ConfigDir returns the absolute path of the repository's configs directory.
func ConfigDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "configs")
}

// SetupOS points the configuration loader at configs/.env.test.toml.
func SetupOS() (err error) {
	if err = os.Setenv(cloud.EnvConfigFilePrefix, ConfigDir()); err != nil {
		return err
	}
	return os.Setenv(cloud.EnvConfigRuntime, "test")
}

// GetConfig loads the test configuration once and returns the cached value.
func GetConfig() *cloud.Config {
	state.once.Do(func() {
		if err := SetupOS(); err != nil {
			panic(err)
		}
		config := cloud.NewConfig()
		if err := cloud.LoadConfig(config); err != nil {
			panic(err)
		}
		state.config = config
	})
	return state.config
}

// NewTestConfig returns a fresh test configuration whose workspace lives in a
// temporary directory owned by t.
func NewTestConfig(t *testing.T) *cloud.Config {
	t.Helper()
	config := *GetConfig()
	config.Workspace.BaseDir = t.TempDir()
	return &config
}

// GetTestContent returns three slides with narration. Slide 2 has the
// "explanation unavailable" sentinel as its code explanation.
func GetTestContent() *model.ContentPayload {
	return &model.ContentPayload{
		Topic: "Testing in Go",
		Level: "intermediate",
		Axes:  []string{"unit tests", "table tests"},
		Slides: []model.Slide{
			{ID: 1, Title: "Why test", Summary: "<p>Tests document behavior.</p>", ExampleCode: "<pre><code>go test ./...</code></pre>"},
			{ID: 2, Title: "Table tests", Summary: "<ul><li>One loop, many cases.</li></ul>"},
			{ID: 3, Title: "Subtests", Summary: "<p>t.Run names each case.</p>", ExampleCode: "<pre><code>t.Run(name, fn)</code></pre>"},
		},
		Speech: model.SpeechList{
			{ID: 1, Script: "Tests are executable documentation.", CodeExplanation: "This runs every test in the module."},
			{ID: 2, Script: "Table tests keep cases together.", CodeExplanation: "explanation unavailable"},
			{ID: 3, Script: "Subtests give each case a name.", CodeExplanation: "t.Run starts a named subtest."},
		},
	}
}

// GetTestGenerationMessageText returns the JSON body of a generation trigger
// message for unitID without embedded content.
func GetTestGenerationMessageText(unitID string) string {
	return fmt.Sprintf(`{
  "unit_id": %q,
  "language": "fr",
  "topic": "Les tests en Go",
  "level": "beginner",
  "axes": ["introduction"]
}`, unitID)
}

// WriteExecutable writes a shell script named name into dir and returns its path.
func WriteExecutable(t *testing.T, dir string, name string, script string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake executable %s: %v", name, err)
	}
	return path
}
