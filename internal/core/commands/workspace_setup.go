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
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jaycherian/gcp-go-course-video/internal/core/cor"
	"github.com/jaycherian/gcp-go-course-video/internal/core/model"
)

// PrepareWorkspace creates the unit's working directory tree and stores the
// content payload as slides.json so the viewing endpoints can serve it.
type PrepareWorkspace struct {
	cor.BaseCommand
}

func NewPrepareWorkspace(name string) *PrepareWorkspace {
	return &PrepareWorkspace{BaseCommand: *cor.NewBaseCommand(name)}
}

func (c *PrepareWorkspace) IsExecutable(context cor.Context) bool {
	return hasJob(context) && GetContent(context) != nil
}

func (c *PrepareWorkspace) Execute(context cor.Context) {
	ws, _ := GetWorkspace(context)
	if err := EnsureWorkspace(ws); err != nil {
		c.Fail(context, err)
		return
	}
	if err := WriteContentManifest(ws, GetContent(context)); err != nil {
		c.Fail(context, err)
		return
	}
	slog.InfoContext(context.GetContext(), "workspace ready", "unit_id", ws.UnitID, "root", ws.Root())
	c.Succeed(context)
}

// EnsureWorkspace creates the unit root with its slides and audios folders.
func EnsureWorkspace(ws model.Workspace) error {
	for _, dir := range []string{ws.Root(), ws.SlidesDir(), ws.AudiosDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create workspace directory %s: %w", dir, err)
		}
	}
	return nil
}

// WriteContentManifest stores content as the unit's slides.json.
func WriteContentManifest(ws model.Workspace, content *model.ContentPayload) error {
	if err := EnsureWorkspace(ws); err != nil {
		return err
	}
	data, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode content manifest: %w", err)
	}
	if err := os.WriteFile(ws.ContentManifest(), data, 0o644); err != nil {
		return fmt.Errorf("failed to write content manifest %s: %w", ws.ContentManifest(), err)
	}
	return nil
}

// ReadContentManifest loads the unit's slides.json. A missing file is reported
// as a MissingArtifactError.
func ReadContentManifest(ws model.Workspace) (*model.ContentPayload, error) {
	data, err := os.ReadFile(ws.ContentManifest())
	if errors.Is(err, os.ErrNotExist) {
		return nil, &MissingArtifactError{Path: ws.ContentManifest()}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read content manifest: %w", err)
	}
	var content model.ContentPayload
	if err := json.Unmarshal(data, &content); err != nil {
		return nil, &ContentError{Reason: "slides.json is not valid course content", Err: err}
	}
	return &content, nil
}

// fileExists reports whether path names an existing regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
