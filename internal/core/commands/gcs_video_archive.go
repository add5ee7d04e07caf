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

// This file defines the command that copies a finished course video to Cloud
// Storage.
//
// Logic Flow:
// The archive runs after concatenation and before delivery. The local file is
// the source of truth for delivery and is never removed here. Videos reused
// from an earlier run are not archived again.
//
//  1. Resolve the final video path from the job (or the workspace default).
//  2. Open it; a missing file is a MissingArtifactError.
//  3. Stream it into {prefix}/{unit_id}/{unit_id}.mp4 of the archive bucket.
//  4. Close the writer, which commits the object, and record the gs:// URI
//     on the context.
package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"cloud.google.com/go/storage"
	"github.com/jaycherian/gcp-go-course-video/internal/cloud"
	"github.com/jaycherian/gcp-go-course-video/internal/core/cor"
)

// ArchiveURIParam holds the gs:// URI of the archived video.
const ArchiveURIParam = "__ARCHIVE_URI__"

// ArchiveVideoToGCS uploads the final video of a unit to the archive bucket.
type ArchiveVideoToGCS struct {
	cor.BaseCommand
	client  *storage.Client
	storage cloud.Storage
}

func NewArchiveVideoToGCS(name string, client *storage.Client, storage cloud.Storage) *ArchiveVideoToGCS {
	return &ArchiveVideoToGCS{BaseCommand: *cor.NewBaseCommand(name), client: client, storage: storage}
}

func (c *ArchiveVideoToGCS) IsExecutable(context cor.Context) bool {
	return hasJob(context) && c.client != nil && c.storage.ArchiveBucket != "" && !GetJob(context).GenerationSkipped()
}

func (c *ArchiveVideoToGCS) Execute(context cor.Context) {
	ctx := context.GetContext()
	ws, _ := GetWorkspace(context)
	path := GetJob(context).GetVideoPath()
	if path == "" {
		path = ws.FinalVideo()
	}

	dat, err := os.Open(path)
	if err != nil {
		c.Fail(context, &MissingArtifactError{Path: path})
		return
	}
	defer dat.Close()

	target := cloud.ArchivedVideoObject(c.storage, ws.UnitID)
	writer := c.client.Bucket(target.Bucket).Object(target.Name).NewWriter(ctx)
	writer.ContentType = target.MIMEType

	if written, err := io.Copy(writer, dat); err != nil {
		_ = writer.Close()
		c.Fail(context, fmt.Errorf("archive %s after %d bytes: %w", target.URI(), written, err))
		return
	}
	// The object only exists once Close returns without error.
	if err := writer.Close(); err != nil {
		c.Fail(context, fmt.Errorf("commit %s: %w", target.URI(), err))
		return
	}

	slog.InfoContext(ctx, "archived final video", "unit_id", ws.UnitID, "uri", target.URI())
	c.Succeed(context)
	context.Add(ArchiveURIParam, target.URI())
}
