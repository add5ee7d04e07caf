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

package workflow

import (
	"sync"

	"github.com/jaycherian/gcp-go-course-video/internal/core/commands"
	"github.com/jaycherian/gcp-go-course-video/internal/core/model"
)

// JobRegistry tracks the running job of every unit and remembers the last
// finished one. A unit can have at most one running job.
type JobRegistry struct {
	mu      sync.Mutex
	running map[string]*model.Job
	latest  map[string]*model.Job
}

func NewJobRegistry() *JobRegistry {
	return &JobRegistry{
		running: make(map[string]*model.Job),
		latest:  make(map[string]*model.Job),
	}
}

// Begin registers job as running. It returns a JobInProgressError when the
// unit already has a running job.
func (r *JobRegistry) Begin(job *model.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.running[job.UnitID]; ok {
		return &commands.JobInProgressError{UnitID: job.UnitID, State: string(current.CurrentState())}
	}
	r.running[job.UnitID] = job
	r.latest[job.UnitID] = job
	return nil
}

// Finish releases the unit. Only the job that began the run can finish it.
func (r *JobRegistry) Finish(job *model.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running[job.UnitID] == job {
		delete(r.running, job.UnitID)
	}
}

// Get returns the running job of a unit, or its last finished one.
func (r *JobRegistry) Get(unitID string) (*model.Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.latest[unitID]
	return job, ok
}

func (r *JobRegistry) IsRunning(unitID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.running[unitID]
	return ok
}

// Stats counts the latest job of every known unit by state, plus the number
// currently running under the "RUNNING" key.
func (r *JobRegistry) Stats() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int, len(model.States())+1)
	for _, state := range model.States() {
		out[string(state)] = 0
	}
	for _, job := range r.latest {
		out[string(job.CurrentState())]++
	}
	out["RUNNING"] = len(r.running)
	return out
}
