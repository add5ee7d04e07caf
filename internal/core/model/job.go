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

package model

import (
	"fmt"
	"sync"
	"time"
)

// State is a stage of the per-unit generation state machine.
type State string

const (
	StateCreated          State = "CREATED"
	StateSlidesRendered   State = "SLIDES_RENDERED"
	StateAudioSynthesized State = "AUDIO_SYNTHESIZED"
	StateCaptured         State = "CAPTURED"
	StateSegmentsComposed State = "SEGMENTS_COMPOSED"
	StateConcatenated     State = "CONCATENATED"
	StateDelivered        State = "DELIVERED"
	StateFailed           State = "FAILED"
)

// stateOrder ranks the non-terminal progression. FAILED is reachable from any
// state and is handled separately.
var stateOrder = map[State]int{
	StateCreated:          0,
	StateSlidesRendered:   1,
	StateAudioSynthesized: 2,
	StateCaptured:         3,
	StateSegmentsComposed: 4,
	StateConcatenated:     5,
	StateDelivered:        6,
}

// States lists every state in progression order, FAILED last.
func States() []State {
	return []State{
		StateCreated, StateSlidesRendered, StateAudioSynthesized, StateCaptured,
		StateSegmentsComposed, StateConcatenated, StateDelivered, StateFailed,
	}
}

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	return s == StateFailed || s == StateDelivered
}

// Transition records when a job entered a state.
type Transition struct {
	State State     `json:"state"`
	At    time.Time `json:"at"`
}

// Job tracks one generation run for a unit. It is shared between the running
// pipeline and status readers, so every accessor takes the lock.
type Job struct {
	mu sync.RWMutex

	UnitID    string
	Course    CourseRequest
	State     State
	History   []Transition
	Documents []Asset
	Audio     []Asset
	Segments  []VideoSegment
	VideoPath string
	Skipped   bool // Generation skipped because the final video already existed.
	Delivery  *DeliveryAck
	Warnings  []string
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewJob creates a job in the CREATED state.
func NewJob(unitID string, course CourseRequest) *Job {
	now := time.Now().UTC()
	return &Job{
		UnitID:    unitID,
		Course:    course,
		State:     StateCreated,
		History:   []Transition{{State: StateCreated, At: now}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Advance moves the job forward. Transitions must move strictly forward in
// the progression; states may be skipped when a stage has nothing to do.
func (j *Job) Advance(next State) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if next == StateFailed {
		return fmt.Errorf("use Fail to enter %s", StateFailed)
	}
	if j.State.IsTerminal() {
		return fmt.Errorf("job %s is %s and cannot move to %s", j.UnitID, j.State, next)
	}
	if stateOrder[next] <= stateOrder[j.State] {
		return fmt.Errorf("job %s cannot move from %s to %s", j.UnitID, j.State, next)
	}
	j.enter(next)
	return nil
}

// Fail moves the job to FAILED and records the cause. Failing a terminal job
// is a no-op.
func (j *Job) Fail(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.State.IsTerminal() {
		return
	}
	if err != nil {
		j.Error = err.Error()
	}
	j.enter(StateFailed)
}

func (j *Job) enter(state State) {
	now := time.Now().UTC()
	j.State = state
	j.History = append(j.History, Transition{State: state, At: now})
	j.UpdatedAt = now
}

func (j *Job) CurrentState() State {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.State
}

// Warn records a non-fatal per-slide problem.
func (j *Job) Warn(format string, args ...interface{}) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Warnings = append(j.Warnings, fmt.Sprintf(format, args...))
}

func (j *Job) SetDocuments(documents []Asset) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Documents = documents
}

func (j *Job) SetAudio(audio []Asset) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Audio = audio
}

func (j *Job) AddSegment(segment VideoSegment) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Segments = append(j.Segments, segment)
}

// ClearSegments forgets segments once they are deleted from disk.
func (j *Job) ClearSegments() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Segments = nil
}

func (j *Job) SetVideo(path string, skipped bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.VideoPath = path
	j.Skipped = skipped
}

// GenerationSkipped reports whether the final video came from an earlier run.
func (j *Job) GenerationSkipped() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Skipped
}

func (j *Job) SetDelivery(ack *DeliveryAck) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Delivery = ack
}

// GetDocuments returns a copy of the rendered document manifest.
func (j *Job) GetDocuments() []Asset {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return append([]Asset(nil), j.Documents...)
}

// GetAudio returns a copy of the synthesized audio manifest.
func (j *Job) GetAudio() []Asset {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return append([]Asset(nil), j.Audio...)
}

// GetSegments returns a copy of the composed segments.
func (j *Job) GetSegments() []VideoSegment {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return append([]VideoSegment(nil), j.Segments...)
}

func (j *Job) GetVideoPath() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.VideoPath
}

// JobStatus is an immutable view of a job for API responses.
type JobStatus struct {
	UnitID    string         `json:"unit_id"`
	Language  string         `json:"language"`
	State     State          `json:"state"`
	History   []Transition   `json:"history"`
	Documents []Asset        `json:"slides"`
	Audio     []Asset        `json:"audio_files"`
	Segments  []VideoSegment `json:"segments,omitempty"`
	VideoPath string         `json:"video,omitempty"`
	Skipped   bool           `json:"skipped,omitempty"`
	Delivery  *DeliveryAck   `json:"delivery,omitempty"`
	Warnings  []string       `json:"warnings,omitempty"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Snapshot copies the job under its read lock.
func (j *Job) Snapshot() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return JobStatus{
		UnitID:    j.UnitID,
		Language:  j.Course.Language,
		State:     j.State,
		History:   append([]Transition(nil), j.History...),
		Documents: append([]Asset(nil), j.Documents...),
		Audio:     append([]Asset(nil), j.Audio...),
		Segments:  append([]VideoSegment(nil), j.Segments...),
		VideoPath: j.VideoPath,
		Skipped:   j.Skipped,
		Delivery:  j.Delivery,
		Warnings:  append([]string(nil), j.Warnings...),
		Error:     j.Error,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

// JobRecord is the row persisted to BigQuery at the end of every run.
type JobRecord struct {
	UnitID          string    `json:"unit_id" bigquery:"unit_id"`
	Language        string    `json:"language" bigquery:"language"`
	Topic           string    `json:"topic" bigquery:"topic"`
	Level           string    `json:"level" bigquery:"level"`
	State           string    `json:"state" bigquery:"state"`
	SlideCount      int       `json:"slide_count" bigquery:"slide_count"`
	AudioCount      int       `json:"audio_count" bigquery:"audio_count"`
	VideoPath       string    `json:"video_path" bigquery:"video_path"`
	Skipped         bool      `json:"skipped" bigquery:"skipped"`
	Delivered       bool      `json:"delivered" bigquery:"delivered"`
	Warnings        []string  `json:"warnings" bigquery:"warnings"`
	Error           string    `json:"error" bigquery:"error"`
	StartedAt       time.Time `json:"started_at" bigquery:"started_at"`
	FinishedAt      time.Time `json:"finished_at" bigquery:"finished_at"`
	DurationSeconds float64   `json:"duration_seconds" bigquery:"duration_seconds"`
}

// Record builds the persisted row for the job's current state.
func (j *Job) Record() *JobRecord {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return &JobRecord{
		UnitID:          j.UnitID,
		Language:        j.Course.Language,
		Topic:           j.Course.Topic,
		Level:           j.Course.Level,
		State:           string(j.State),
		SlideCount:      len(j.Documents),
		AudioCount:      len(j.Audio),
		VideoPath:       j.VideoPath,
		Skipped:         j.Skipped,
		Delivered:       j.State == StateDelivered,
		Warnings:        append([]string{}, j.Warnings...),
		Error:           j.Error,
		StartedAt:       j.CreatedAt,
		FinishedAt:      j.UpdatedAt,
		DurationSeconds: j.UpdatedAt.Sub(j.CreatedAt).Seconds(),
	}
}
