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

// Package services exposes read-side operations over generated presentations:
// stored content, rendered slides, narration audio, archived video links and
// job history.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/iam/credentials/apiv1/credentialspb"
	"cloud.google.com/go/storage"
	"github.com/h2non/filetype"
	"google.golang.org/api/iterator"

	"github.com/jaycherian/gcp-go-course-video/internal/cloud"
	"github.com/jaycherian/gcp-go-course-video/internal/core/commands"
	"github.com/jaycherian/gcp-go-course-video/internal/core/model"
)

// DefaultHistoryLimit bounds History when the caller passes no limit.
const DefaultHistoryLimit = 20

// ErrNotConfigured is returned by operations whose backing service is disabled.
var ErrNotConfigured = errors.New("service not configured")

// PresentationService reads the artifacts of generated presentations. The
// cloud clients are optional; operations that need a missing client return
// ErrNotConfigured.
type PresentationService struct {
	BaseDir        string                            // Root of the unit workspaces.
	BigqueryClient *bigquery.Client                  // Client for job history queries.
	StorageClient  *storage.Client                   // Client for the video archive.
	IAMClient      *credentials.IamCredentialsClient // Client used to sign archive URLs.
	SignerEmail    string                            // Service account that signs URLs.
	Storage        cloud.Storage                     // Archive bucket and prefix.
	DatasetName    string                            // BigQuery dataset name.
	JobsTable      string                            // BigQuery table of job records.
}

func NewPresentationService(config *cloud.Config, serviceClients *cloud.ServiceClients) *PresentationService {
	out := &PresentationService{
		BaseDir:     config.Workspace.BaseDir,
		SignerEmail: config.Application.SignerServiceAccountEmail,
		Storage:     config.Storage,
		DatasetName: config.BigQueryDataSource.DatasetName,
		JobsTable:   config.BigQueryDataSource.JobsTable,
	}
	if serviceClients != nil {
		out.BigqueryClient = serviceClients.BiqQueryClient
		out.StorageClient = serviceClients.StorageClient
		out.IAMClient = serviceClients.IAMClient
	}
	return out
}

func (s *PresentationService) Workspace(unitID string) model.Workspace {
	return model.NewWorkspace(s.BaseDir, unitID)
}

// Content returns the unit's stored slides.json.
func (s *PresentationService) Content(unitID string) (*model.ContentPayload, error) {
	return commands.ReadContentManifest(s.Workspace(unitID))
}

// SaveContent stores content as the unit's slides.json.
func (s *PresentationService) SaveContent(unitID string, content *model.ContentPayload) error {
	return commands.WriteContentManifest(s.Workspace(unitID), content)
}

// SlideDocumentPath returns the rendered document of slide n.
func (s *PresentationService) SlideDocumentPath(unitID string, n int) (string, error) {
	path := s.Workspace(unitID).SlideDocument(n)
	if !isFile(path) {
		return "", &commands.MissingArtifactError{Path: path}
	}
	return path, nil
}

// AudioFile returns the narration of slide n and its sniffed MIME type,
// audio/mpeg when the content is not recognized.
func (s *PresentationService) AudioFile(unitID string, n int) (string, string, error) {
	path := s.Workspace(unitID).AudioFile(n)
	file, err := os.Open(path)
	if err != nil {
		return "", "", &commands.MissingArtifactError{Path: path}
	}
	defer file.Close()

	head := make([]byte, 261)
	read, _ := io.ReadFull(file, head)
	mimeType := "audio/mpeg"
	if kind, err := filetype.Match(head[:read]); err == nil && kind != filetype.Unknown {
		mimeType = kind.MIME.Value
	}
	return path, mimeType, nil
}

// FinalVideoPath returns the unit's {unit_id}.mp4.
func (s *PresentationService) FinalVideoPath(unitID string) (string, error) {
	path := s.Workspace(unitID).FinalVideo()
	if !isFile(path) {
		return "", &commands.MissingArtifactError{Path: path}
	}
	return path, nil
}

// SignedVideoURL returns a V4 signed GET URL for the archived video. Signing
// goes through the IAM credentials API so no private key is needed locally.
func (s *PresentationService) SignedVideoURL(ctx context.Context, unitID string, expires time.Duration) (string, error) {
	if s.StorageClient == nil || s.Storage.ArchiveBucket == "" {
		return "", ErrNotConfigured
	}
	object := cloud.ArchivedVideoObject(s.Storage, unitID)
	if _, err := s.StorageClient.Bucket(object.Bucket).Object(object.Name).Attrs(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return "", &commands.MissingArtifactError{Path: object.URI()}
		}
		return "", fmt.Errorf("lookup %s: %w", object.URI(), err)
	}

	opts := &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(expires),
	}
	if s.IAMClient != nil && s.SignerEmail != "" {
		opts.GoogleAccessID = s.SignerEmail
		opts.SignBytes = func(payload []byte) ([]byte, error) {
			resp, err := s.IAMClient.SignBlob(ctx, &credentialspb.SignBlobRequest{
				Name:    fmt.Sprintf("projects/-/serviceAccounts/%s", s.SignerEmail),
				Payload: payload,
			})
			if err != nil {
				return nil, err
			}
			return resp.SignedBlob, nil
		}
	}

	u, err := s.StorageClient.Bucket(object.Bucket).SignedURL(object.Name, opts)
	if err != nil {
		return "", fmt.Errorf("Bucket(%q).SignedURL(%q): %w", object.Bucket, object.Name, err)
	}
	return u, nil
}

// GetFQN returns the jobs table name in standard SQL form.
func (s *PresentationService) GetFQN() string {
	fqn := s.BigqueryClient.Dataset(s.DatasetName).Table(s.JobsTable).FullyQualifiedName()
	return strings.Replace(fqn, ":", ".", -1)
}

// History returns the persisted runs of a unit, newest first.
func (s *PresentationService) History(ctx context.Context, unitID string, limit int) ([]*model.JobRecord, error) {
	if s.BigqueryClient == nil || s.JobsTable == "" {
		return nil, ErrNotConfigured
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	q := s.BigqueryClient.Query(fmt.Sprintf(QryJobHistory, s.GetFQN()))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "unit_id", Value: unitID},
		{Name: "limit", Value: limit},
	}
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*model.JobRecord, 0)
	for {
		record := &model.JobRecord{}
		err := itr.Next(record)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return out, err
		}
		out = append(out, record)
	}
	return out, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
