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

// Package model defines the data structures that flow through the course video
// pipeline: the AI-generated course content (slides and narration), the per-run
// job with its state machine, the on-disk workspace layout, and the records
// persisted for history.
package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Defaults applied to delivery metadata when the request leaves them empty.
const (
	DefaultLanguage = "en"
	DefaultTopic    = "Default Topic"
	DefaultLevel    = "beginner"
)

// DefaultAxes are the course axes used when none are supplied.
var DefaultAxes = []string{"introduction", "examples"}

// Slide is one slide of generated course content. Summary and ExampleCode are
// HTML fragments produced by the content model. An ID of zero means the slide
// carried no id and cannot be correlated with narration.
type Slide struct {
	ID          int    `json:"id"`                     // Positive slide id, the only correlation key.
	Title       string `json:"title,omitempty"`        // Plain text title.
	Summary     string `json:"summary,omitempty"`      // HTML fragment summarizing the slide.
	ExampleCode string `json:"example_code,omitempty"` // HTML fragment holding a code example.
}

// HasID reports whether the slide can be correlated by id.
func (s Slide) HasID() bool {
	return s.ID > 0
}

// SpeechEntry is the narration for the slide with the same id.
type SpeechEntry struct {
	ID              int    `json:"id"`
	Script          string `json:"script"`
	CodeExplanation string `json:"code_explanation,omitempty"`
}

// SpeechList is a list of narration entries. The content model sometimes returns
// the list encoded as a JSON string, so both shapes are accepted on decode.
type SpeechList []SpeechEntry

func (l *SpeechList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*l = nil
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var encoded string
		if err := json.Unmarshal(data, &encoded); err != nil {
			return fmt.Errorf("failed to decode string-encoded speech list: %w", err)
		}
		encoded = strings.TrimSpace(encoded)
		if encoded == "" {
			*l = nil
			return nil
		}
		data = []byte(encoded)
	}
	var entries []SpeechEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("failed to decode speech list: %w", err)
	}
	*l = entries
	return nil
}

// ContentPayload is the course content for one unit, as produced by the content
// model and stored as slides.json in the unit's workspace.
type ContentPayload struct {
	Slides []Slide    `json:"slides"`
	Speech SpeechList `json:"speech"`
	Topic  string     `json:"topic,omitempty"`
	Level  string     `json:"level,omitempty"`
	Axes   []string   `json:"axes,omitempty"`
}

// SpeechByID indexes narration by slide id. Later duplicates win.
func (p *ContentPayload) SpeechByID() map[int]SpeechEntry {
	out := make(map[int]SpeechEntry, len(p.Speech))
	for _, entry := range p.Speech {
		out[entry.ID] = entry
	}
	return out
}

// CourseRequest describes the course a unit belongs to. It is sent to the
// content model and forwarded as delivery metadata.
type CourseRequest struct {
	Language string   `json:"language"`
	Topic    string   `json:"topic"`
	Level    string   `json:"level"`
	Axes     []string `json:"axes"`
}

// WithDefaults returns a copy with empty fields replaced by the defaults.
func (r CourseRequest) WithDefaults() CourseRequest {
	if strings.TrimSpace(r.Language) == "" {
		r.Language = DefaultLanguage
	}
	if strings.TrimSpace(r.Topic) == "" {
		r.Topic = DefaultTopic
	}
	if strings.TrimSpace(r.Level) == "" {
		r.Level = DefaultLevel
	}
	if len(r.Axes) == 0 {
		r.Axes = append([]string(nil), DefaultAxes...)
	}
	return r
}

// GenerationRequest asks for a course video to be produced for one unit. It is
// the body of the Pub/Sub trigger and of the process endpoint. Content is
// optional; when absent it is acquired from the content source or read from the
// unit's stored slides.json.
type GenerationRequest struct {
	UnitID     string          `json:"unit_id"`
	Language   string          `json:"language"`
	Topic      string          `json:"topic,omitempty"`
	Level      string          `json:"level,omitempty"`
	Axes       []string        `json:"axes,omitempty"`
	Content    *ContentPayload `json:"content,omitempty"`
	Regenerate bool            `json:"regenerate,omitempty"` // Rebuild even when the final video exists.
}

// CourseRequest returns the course description with content-level values used
// as fallbacks and defaults applied last.
func (r *GenerationRequest) CourseRequest() CourseRequest {
	out := CourseRequest{Language: r.Language, Topic: r.Topic, Level: r.Level, Axes: r.Axes}
	if r.Content != nil {
		if out.Topic == "" {
			out.Topic = r.Content.Topic
		}
		if out.Level == "" {
			out.Level = r.Content.Level
		}
		if len(out.Axes) == 0 {
			out.Axes = r.Content.Axes
		}
	}
	return out.WithDefaults()
}

// Asset is a generated file correlated with a slide id.
type Asset struct {
	SlideID  int    `json:"slide_id"`
	FilePath string `json:"file_path"`
}

// SortAssets orders assets by slide id.
func SortAssets(assets []Asset) {
	sort.Slice(assets, func(i, j int) bool { return assets[i].SlideID < assets[j].SlideID })
}

// VideoSegment is one composed per-slide video.
type VideoSegment struct {
	SlideID   int    `json:"slide_id"`
	VideoPath string `json:"video_path"`
}

// DeliveryAck is the downstream store's response to a successful delivery.
type DeliveryAck struct {
	StatusCode int                    `json:"status_code"`
	Body       map[string]interface{} `json:"body,omitempty"`
	Raw        string                 `json:"raw,omitempty"`
}
