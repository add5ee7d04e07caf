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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"github.com/jaycherian/gcp-go-course-video/internal/cloud"
	"github.com/jaycherian/gcp-go-course-video/internal/core/cor"
	"github.com/jaycherian/gcp-go-course-video/internal/core/model"
)

// VideoFieldName is the multipart field carrying the video file.
const VideoFieldName = "video"

// maxResponseBody bounds how much of a downstream response is kept.
const maxResponseBody = 64 << 10

// Deliverer uploads a finished video with its course metadata.
type Deliverer interface {
	Deliver(ctx context.Context, unitID string, videoPath string, metadata model.CourseRequest) (*model.DeliveryAck, error)
}

// HTTPDeliveryClient posts videos to the downstream course store as
// multipart/form-data. The file is streamed, not buffered. There is no retry;
// callers decide whether to deliver again.
type HTTPDeliveryClient struct {
	baseURL       string
	pathTemplate  string
	metadataField string
	httpClient    *http.Client
}

func NewHTTPDeliveryClient(config cloud.Delivery, httpClient *http.Client) *HTTPDeliveryClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cloud.Seconds(config.TimeoutInSeconds, cloud.DefaultTimeoutInSeconds)}
	}
	pathTemplate := config.PathTemplate
	if pathTemplate == "" {
		pathTemplate = cloud.DefaultDeliveryPath
	}
	metadataField := config.MetadataField
	if metadataField == "" {
		metadataField = cloud.DefaultMetadataField
	}
	return &HTTPDeliveryClient{
		baseURL:       strings.TrimRight(config.BaseURL, "/"),
		pathTemplate:  pathTemplate,
		metadataField: metadataField,
		httpClient:    httpClient,
	}
}

// Endpoint returns the upload URL for unitID.
func (d *HTTPDeliveryClient) Endpoint(unitID string) string {
	return d.baseURL + fmt.Sprintf(d.pathTemplate, unitID)
}

func (d *HTTPDeliveryClient) Deliver(ctx context.Context, unitID string, videoPath string, metadata model.CourseRequest) (*model.DeliveryAck, error) {
	file, err := os.Open(videoPath)
	if err != nil {
		return nil, &MissingArtifactError{Path: videoPath}
	}
	defer file.Close()
	sniffVideo(ctx, file, videoPath)

	metadataJSON, err := json.Marshal(metadata.WithDefaults())
	if err != nil {
		return nil, &DeliveryError{UnitID: unitID, Err: fmt.Errorf("encode metadata: %w", err)}
	}

	body, writer := io.Pipe()
	form := multipart.NewWriter(writer)
	go func() {
		writer.CloseWithError(d.writeForm(form, unitID, file, metadataJSON))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.Endpoint(unitID), body)
	if err != nil {
		body.CloseWithError(err)
		return nil, &DeliveryError{UnitID: unitID, Err: err}
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := d.httpClient.Do(req)
	if err != nil {
		body.CloseWithError(err)
		return nil, &DeliveryError{UnitID: unitID, Err: err}
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &DeliveryError{UnitID: unitID, StatusCode: resp.StatusCode, Body: string(raw)}
	}

	ack := &model.DeliveryAck{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(raw, &ack.Body); err != nil {
		ack.Raw = string(raw)
	}
	slog.InfoContext(ctx, "video delivered", "unit_id", unitID, "status", resp.StatusCode, "elapsed", time.Since(started).String())
	return ack, nil
}

func (d *HTTPDeliveryClient) writeForm(form *multipart.Writer, unitID string, video io.Reader, metadataJSON []byte) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, VideoFieldName, unitID+".mp4"))
	header.Set("Content-Type", "video/mp4")
	part, err := form.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, video); err != nil {
		return fmt.Errorf("stream video: %w", err)
	}
	if err := form.WriteField(d.metadataField, string(metadataJSON)); err != nil {
		return err
	}
	return form.Close()
}

// sniffVideo logs a warning when the file does not look like a video. The
// reader is rewound afterwards.
func sniffVideo(ctx context.Context, file *os.File, path string) {
	head := make([]byte, 261)
	n, _ := io.ReadFull(file, head)
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		slog.WarnContext(ctx, "failed to rewind video", "path", path, "error", err)
	}
	if !filetype.IsVideo(head[:n]) {
		kind, _ := filetype.Match(head[:n])
		slog.WarnContext(ctx, "delivering file without a video signature", "path", path, "detected", kind.MIME.Value)
	}
}

// DeliverVideo uploads the final video and advances the job to DELIVERED.
type DeliverVideo struct {
	cor.BaseCommand
	deliverer Deliverer
}

func NewDeliverVideo(name string, deliverer Deliverer) *DeliverVideo {
	return &DeliverVideo{BaseCommand: *cor.NewBaseCommand(name), deliverer: deliverer}
}

func (c *DeliverVideo) IsExecutable(context cor.Context) bool {
	return hasJob(context) && c.deliverer != nil
}

func (c *DeliverVideo) Execute(context cor.Context) {
	ws, _ := GetWorkspace(context)
	job := GetJob(context)
	videoPath := job.GetVideoPath()
	if videoPath == "" {
		videoPath = ws.FinalVideo()
	}

	ack, err := c.deliverer.Deliver(context.GetContext(), ws.UnitID, videoPath, job.Course)
	if err != nil {
		c.Fail(context, err)
		return
	}
	job.SetDelivery(ack)
	if err := job.Advance(model.StateDelivered); err != nil {
		c.Fail(context, err)
		return
	}
	c.Succeed(context)
	context.Add(c.GetOutputParam(), ack)
}
