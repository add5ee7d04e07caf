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
	"fmt"
	"strings"
)

// Per-slide errors. They are logged and recorded as job warnings; the slide is
// skipped and the run continues.

// RenderError reports a slide document that could not be produced.
type RenderError struct {
	SlideID int
	Err     error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render slide %d: %v", e.SlideID, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// SynthesisError reports narration audio that could not be produced.
type SynthesisError struct {
	SlideID int
	Voice   string
	Output  string // Captured tool output, if any.
	Err     error
}

func (e *SynthesisError) Error() string {
	msg := fmt.Sprintf("synthesize slide %d with voice %s: %v", e.SlideID, e.Voice, e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + out
	}
	return msg
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// CaptureError reports a slide image that could not be rasterized.
type CaptureError struct {
	SlideID  int
	Document string
	Err      error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture slide %d from %s: %v", e.SlideID, e.Document, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// Job-fatal errors. The run stops, transient files are removed and the job
// moves to FAILED.

// EncodeError reports a failed image+audio mux. Stderr holds the encoder's
// diagnostic output.
type EncodeError struct {
	SlideID int
	Output  string
	Stderr  string
	Err     error
}

func (e *EncodeError) Error() string {
	msg := fmt.Sprintf("encode segment %s: %v", e.Output, e.Err)
	if stderr := lastLines(e.Stderr, 5); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

func (e *EncodeError) Unwrap() error { return e.Err }

// ConcatError reports a failed concatenation.
type ConcatError struct {
	Output string
	Stderr string
	Err    error
}

func (e *ConcatError) Error() string {
	msg := fmt.Sprintf("concatenate into %s: %v", e.Output, e.Err)
	if stderr := lastLines(e.Stderr, 5); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

func (e *ConcatError) Unwrap() error { return e.Err }

// NoSegmentsError reports a run where no slide produced a segment.
type NoSegmentsError struct {
	UnitID string
}

func (e *NoSegmentsError) Error() string {
	return fmt.Sprintf("no videos were generated for unit %s", e.UnitID)
}

// MissingArtifactError reports a file that must exist but does not.
type MissingArtifactError struct {
	Path string
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("artifact not found: %s", e.Path)
}

// DeliveryError reports a failed upload. StatusCode is zero when the request
// never got a response.
type DeliveryError struct {
	UnitID     string
	StatusCode int
	Body       string
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("delivery of %s failed with status %d: %s", e.UnitID, e.StatusCode, strings.TrimSpace(e.Body))
	}
	return fmt.Sprintf("delivery of %s failed: %v", e.UnitID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// JobInProgressError rejects a second run for a unit that is still running.
type JobInProgressError struct {
	UnitID string
	State  string
}

func (e *JobInProgressError) Error() string {
	return fmt.Sprintf("a job for unit %s is already in progress (state %s)", e.UnitID, e.State)
}

// ModelServiceError reports a failed call to the content model host.
type ModelServiceError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *ModelServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("content model returned status %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
	}
	return fmt.Sprintf("content model request failed: %v", e.Err)
}

func (e *ModelServiceError) Unwrap() error { return e.Err }

// ContentError reports course content that could not be parsed or is unusable.
type ContentError struct {
	Reason string
	Err    error
}

func (e *ContentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid course content: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid course content: %s", e.Reason)
}

func (e *ContentError) Unwrap() error { return e.Err }

func lastLines(in string, n int) string {
	lines := strings.Split(strings.TrimSpace(in), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, " | "))
}
