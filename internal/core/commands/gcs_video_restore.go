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
	"fmt"
	"io"
	"log/slog"
	"os"

	"cloud.google.com/go/storage"
	"github.com/jaycherian/gcp-go-course-video/internal/cloud"
	"github.com/jaycherian/gcp-go-course-video/internal/core/cor"
)

// RestoreArchivedVideo downloads a unit's archived video into its workspace
// when the local {unit_id}.mp4 is gone, so a transfer can still deliver it.
// It only runs when the local file is missing and archiving is configured.
// The download goes to a temporary file that is renamed into place once
// complete, so a partial download never looks like a final video.
type RestoreArchivedVideo struct {
	cor.BaseCommand
	client  *storage.Client
	storage cloud.Storage
}

func NewRestoreArchivedVideo(name string, client *storage.Client, storage cloud.Storage) *RestoreArchivedVideo {
	return &RestoreArchivedVideo{BaseCommand: *cor.NewBaseCommand(name), client: client, storage: storage}
}

func (c *RestoreArchivedVideo) IsExecutable(context cor.Context) bool {
	if !hasJob(context) || c.client == nil || c.storage.ArchiveBucket == "" {
		return false
	}
	ws, _ := GetWorkspace(context)
	return !fileExists(ws.FinalVideo())
}

func (c *RestoreArchivedVideo) Execute(context cor.Context) {
	ctx := context.GetContext()
	ws, _ := GetWorkspace(context)
	source := cloud.ArchivedVideoObject(c.storage, ws.UnitID)

	reader, err := c.client.Bucket(source.Bucket).Object(source.Name).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		c.Fail(context, &MissingArtifactError{Path: source.URI()})
		return
	}
	if err != nil {
		c.Fail(context, fmt.Errorf("failed to create GCS reader for %s: %w", source.URI(), err))
		return
	}
	defer reader.Close()

	if err := EnsureWorkspace(ws); err != nil {
		c.Fail(context, err)
		return
	}
	tempFile, err := os.CreateTemp(ws.Root(), "restore-*.mp4")
	if err != nil {
		c.Fail(context, fmt.Errorf("could not create temp file: %w", err))
		return
	}
	context.AddTempFile(tempFile.Name())

	written, err := io.Copy(tempFile, reader)
	_ = tempFile.Close()
	if err != nil {
		c.Fail(context, fmt.Errorf("download %s after %d bytes: %w", source.URI(), written, err))
		return
	}
	if err := os.Rename(tempFile.Name(), ws.FinalVideo()); err != nil {
		c.Fail(context, fmt.Errorf("move restored video into place: %w", err))
		return
	}

	GetJob(context).SetVideo(ws.FinalVideo(), true)
	slog.InfoContext(ctx, "restored archived video", "unit_id", ws.UnitID, "uri", source.URI(), "bytes", written)
	c.Succeed(context)
	context.Add(c.GetOutputParam(), ws.FinalVideo())
}
